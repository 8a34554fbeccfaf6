package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/action"
	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/provider"
	"github.com/oai-harvester/harvester/scenario"
	"github.com/oai-harvester/harvester/worker"
)

func TestControllerHarvestsNewlyConfiguredProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("verb") {
		case "ListMetadataFormats":
			w.Write([]byte(`<OAI-PMH><ListMetadataFormats><metadataFormat><metadataPrefix>oai_dc</metadataPrefix></metadataFormat></ListMetadataFormats></OAI-PMH>`))
		case "ListRecords":
			w.Write([]byte(`<OAI-PMH><ListRecords><record><header><identifier>a</identifier></header><metadata><dc/></metadata></record></ListRecords></OAI-PMH>`))
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	overviewPath := filepath.Join(t.TempDir(), "overview.xml")
	c, err := cycle.Load(overviewPath, cycle.Properties{Mode: cycle.ModeNormal, Scenario: string(scenario.NameListRecords)}, nil)
	require.NoError(t, err)

	p := &provider.Provider{Name: "test", BaseURL: srv.URL}
	seq := &action.ActionSequence{
		Name:  "default",
		Input: action.FormatDescriptor{Prefix: "oai_dc"},
		Steps: []action.Action{action.Split{}, &action.Strip{}, &action.Save{Store: &action.FileStore{Root: root}}},
	}

	ctrl := &Controller{
		Cycle:     c,
		Providers: []provider.Harvestable{p},
		Sequences: []*action.ActionSequence{seq},
		Pool:      worker.NewPool(2, nil),
	}
	require.NoError(t, ctrl.Run(context.Background()))

	saved := 0
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			saved++
		}
		return nil
	})
	require.Equal(t, 1, saved)

	reloaded, err := cycle.Load(overviewPath, cycle.Properties{Mode: cycle.ModeNormal}, nil)
	require.NoError(t, err)
	ep := reloaded.NextFor(p.Identity(), "")
	require.NotNil(t, ep)
	require.True(t, ep.Succeeded())
	_ = scenario.NameListRecords
}

func TestControllerSkipsBlockedEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("blocked endpoint must not be contacted")
	}))
	defer srv.Close()

	overviewPath := filepath.Join(t.TempDir(), "overview.xml")
	c, err := cycle.Load(overviewPath, cycle.Properties{Mode: cycle.ModeNormal}, nil)
	require.NoError(t, err)

	p := &provider.Provider{Name: "test", BaseURL: srv.URL}
	ep := c.EnsureEndpoint(p.Identity(), "")
	ep.Blocked = true

	ctrl := &Controller{
		Cycle:     c,
		Providers: []provider.Harvestable{p},
		Sequences: nil,
		Pool:      worker.NewPool(1, nil),
	}
	require.NoError(t, ctrl.Run(context.Background()))
}
