package strategy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/oaixml"
	"github.com/oai-harvester/harvester/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *oaixml.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := oaixml.NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)
	return client
}

func TestFormatHarvestingSingleShot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<OAI-PMH><ListMetadataFormats>
			<metadataFormat><metadataPrefix>oai_dc</metadataPrefix></metadataFormat>
			<metadataFormat><metadataPrefix>mods</metadataPrefix></metadataFormat>
		</ListMetadataFormats></OAI-PMH>`))
	})

	strat := NewFormatHarvesting(client)
	state := Drive(context.Background(), strat)
	require.Equal(t, StateDone, state)
	require.Equal(t, []string{"oai_dc", "mods"}, strat.Prefixes())
	require.True(t, strat.FullyParsed())
}

func TestFormatHarvestingFailsOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client, err := oaixml.NewClient(srv.URL, 100*time.Millisecond, nil)
	require.NoError(t, err)

	strat := NewFormatHarvesting(client)
	state := Drive(context.Background(), strat)
	require.Equal(t, StateFailed, state)
}

func TestRecordListHarvestingPagesByResumptionToken(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`<OAI-PMH><ListRecords>
				<record><header><identifier>a</identifier></header></record>
				<resumptionToken>tok-1</resumptionToken>
			</ListRecords></OAI-PMH>`))
			return
		}
		w.Write([]byte(`<OAI-PMH><ListRecords>
			<record><header><identifier>b</identifier></header></record>
		</ListRecords></OAI-PMH>`))
	})

	strat := NewRecordListHarvesting(client, "oai_dc", "")

	state := Drive(context.Background(), strat)
	require.Equal(t, StateHasMore, state)
	page, ok := strat.Page()
	require.True(t, ok)
	require.Len(t, page.Records, 1)
	require.Equal(t, "a", page.Records[0].Header.Identifier)
	require.True(t, strat.FullyParsed())

	state = Drive(context.Background(), strat)
	require.Equal(t, StateDone, state)
	page, ok = strat.Page()
	require.True(t, ok)
	require.Equal(t, "b", page.Records[0].Header.Identifier)
	require.Equal(t, 2, calls)
}

func TestIdentifierListHarvestingFetchesEachRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		verb := r.URL.Query().Get("verb")
		switch verb {
		case "ListIdentifiers":
			w.Write([]byte(`<OAI-PMH><ListIdentifiers>
				<header><identifier>a</identifier></header>
				<header status="deleted"><identifier>b</identifier></header>
			</ListIdentifiers></OAI-PMH>`))
		case "GetRecord":
			id := r.URL.Query().Get("identifier")
			w.Write([]byte(`<OAI-PMH><GetRecord><record><header><identifier>` + id + `</identifier></header></record></GetRecord></OAI-PMH>`))
		}
	})

	strat := NewIdentifierListHarvesting(client, "oai_dc", "")

	state := Drive(context.Background(), strat)
	require.Equal(t, StateHasMore, state)
	require.False(t, strat.FullyParsed())

	state = Drive(context.Background(), strat)
	require.Equal(t, StateDone, state)
	rec, ok := strat.Next()
	require.True(t, ok)
	require.Equal(t, "a", rec.Header.Identifier)
	require.True(t, strat.FullyParsed())
}

func writeArchive(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestStaticPrefixHarvesting(t *testing.T) {
	path := writeArchive(t, `<archive>
		<metadataFormats><metadataFormat><metadataPrefix>oai_dc</metadataPrefix></metadataFormat></metadataFormats>
		<records></records>
	</archive>`)
	src := &provider.StaticProvider{Name: "test", ArchivePath: path}

	strat := NewStaticPrefixHarvesting(src)
	state := Drive(context.Background(), strat)
	require.Equal(t, StateDone, state)
	require.Equal(t, []string{"oai_dc"}, strat.Prefixes())
}

func TestStaticRecordListHarvesting(t *testing.T) {
	path := writeArchive(t, `<archive>
		<metadataFormats></metadataFormats>
		<records>
			<record><header><identifier>a</identifier></header></record>
			<record><header><identifier>b</identifier></header></record>
		</records>
	</archive>`)
	src := &provider.StaticProvider{Name: "test", ArchivePath: path}

	strat := NewStaticRecordListHarvesting(src, "oai_dc")
	state := Drive(context.Background(), strat)
	require.Equal(t, StateDone, state)
	records := strat.Records()
	require.Len(t, records, 2)
	require.True(t, strat.FullyParsed())
}

func TestStaticPrefixHarvestingFailsOnMissingArchive(t *testing.T) {
	src := &provider.StaticProvider{Name: "test", ArchivePath: "/nonexistent/archive.xml"}
	strat := NewStaticPrefixHarvesting(src)
	state := Drive(context.Background(), strat)
	require.Equal(t, StateFailed, state)
}
