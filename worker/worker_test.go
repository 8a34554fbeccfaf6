package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/action"
	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/provider"
	"github.com/oai-harvester/harvester/scenario"
)

func TestWorkerSavesRecordsAndRecordsAttempt(t *testing.T) {
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
	c, err := cycle.Load(overviewPath, cycle.Properties{Mode: cycle.ModeNormal}, nil)
	require.NoError(t, err)
	ep := c.NextFor(srv.URL, "test")

	p := &provider.Provider{Name: "test", BaseURL: srv.URL}
	seq := &action.ActionSequence{
		Name:  "default",
		Input: action.FormatDescriptor{Prefix: "oai_dc"},
		Steps: []action.Action{
			action.Split{},
			&action.Strip{},
			&action.Save{Store: &action.FileStore{Root: root}},
		},
	}

	w := &Worker{Provider: p, Endpoint: ep, Cycle: c, ScenarioName: scenario.NameListRecords, Sequences: []*action.ActionSequence{seq}}
	require.NoError(t, w.Run(context.Background()))
	require.True(t, ep.Succeeded())

	saved := 0
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			saved++
		}
		return nil
	})
	require.Equal(t, 1, saved)
}

func TestWorkerTriesNextSequenceOnFailure(t *testing.T) {
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
	c, err := cycle.Load(overviewPath, cycle.Properties{Mode: cycle.ModeNormal}, nil)
	require.NoError(t, err)
	ep := c.NextFor(srv.URL, "test")

	p := &provider.Provider{Name: "test", BaseURL: srv.URL}
	// wrongPrefix never matches what the endpoint offers, so it contributes
	// nothing; the second sequence should still succeed.
	wrongPrefix := &action.ActionSequence{Name: "wrong", Input: action.FormatDescriptor{Prefix: "mods"}}
	good := &action.ActionSequence{
		Name:  "good",
		Input: action.FormatDescriptor{Prefix: "oai_dc"},
		Steps: []action.Action{action.Split{}, &action.Strip{}, &action.Save{Store: &action.FileStore{Root: root}}},
	}

	w := &Worker{Provider: p, Endpoint: ep, Cycle: c, ScenarioName: scenario.NameListRecords, Sequences: []*action.ActionSequence{wrongPrefix, good}}
	require.NoError(t, w.Run(context.Background()))
	require.True(t, ep.Succeeded())
}

func TestPoolEnforcesConcurrencyCap(t *testing.T) {
	pool := NewPool(2, nil)
	var inFlight atomic.Int32
	var maxObserved atomic.Int32
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := pool.Run(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			cur := inFlight.Add(1)
			for {
				max := maxObserved.Load()
				if cur <= max || maxObserved.CompareAndSwap(max, cur) {
					break
				}
			}
			time.Sleep(100 * time.Millisecond)
			inFlight.Add(-1)
		})
		require.NoError(t, err)
	}
	wg.Wait()
	pool.Wait()

	elapsed := time.Since(start)
	require.LessOrEqual(t, int(maxObserved.Load()), 2)
	require.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
}

func TestPoolRecoversFromPanic(t *testing.T) {
	pool := NewPool(1, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	err := pool.Run(context.Background(), func(ctx context.Context) {
		defer wg.Done()
		panic("boom")
	})
	require.NoError(t, err)
	wg.Wait()
	pool.Wait()

	// A second run must still acquire the permit: the panic did not leak it.
	done := make(chan struct{})
	err = pool.Run(context.Background(), func(ctx context.Context) { close(done) })
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("permit leaked after panic")
	}
}
