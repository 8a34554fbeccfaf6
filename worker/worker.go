package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oai-harvester/harvester/action"
	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/provider"
	"github.com/oai-harvester/harvester/scenario"
)

// Worker drives one provider through one cycle iteration: pick one
// scenario name and try each candidate ActionSequence in order until
// one succeeds, then report the outcome back to the Cycle. A Worker
// owns its Scenario and Harvesting Strategy instances exclusively for
// the run — each Run call clones its sequences so concurrent Workers
// never share action/parser state.
type Worker struct {
	Provider     provider.Harvestable
	Endpoint     *cycle.Endpoint
	Cycle        *cycle.Cycle
	ScenarioName scenario.Name
	Sequences    []*action.ActionSequence
	Logger       core.Logger
}

// Run executes the worker's scenario against each candidate sequence in
// turn, stopping at the first one that saves at least one record. It
// always calls Cycle.RecordAttempt, even on error, and returns a
// persistence failure from that call since it leaves the overview
// inconsistent with what was actually harvested.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	attemptID := uuid.New().String()[:8]

	from := ""
	if w.Cycle != nil && w.Endpoint != nil {
		if req := w.Cycle.GetRequestDate(w.Endpoint); !req.IsZero() {
			from = req.UTC().Format(time.RFC3339)
		}
	}

	logger.Info("endpoint attempt started", map[string]interface{}{
		"attempt_id": attemptID, "provider": w.Provider.Identity(), "scenario": w.ScenarioName, "from": from,
	})

	succeeded := false
	var lastErr error
	for _, seq := range w.Sequences {
		s := &scenario.Scenario{
			Provider: w.Provider,
			Sequence: seq.Clone(),
			Name:     w.ScenarioName,
			From:     from,
			Logger:   logger,
		}
		saved, err := s.Run(ctx)
		if err != nil {
			lastErr = err
			logger.Warn("sequence failed", map[string]interface{}{
				"attempt_id": attemptID, "provider": w.Provider.Identity(), "sequence": seq.Name, "error": err,
			})
			continue
		}
		if saved {
			succeeded = true
			break
		}
	}

	if w.Cycle != nil && w.Endpoint != nil {
		if recErr := w.Cycle.RecordAttempt(w.Endpoint, succeeded); recErr != nil {
			return recErr
		}
	}

	if !succeeded && lastErr != nil {
		return lastErr
	}
	return nil
}
