// Package controller implements the top-level harvest loop: while Cycle.Next() yields an endpoint, build the matching
// provider and dispatch a Worker through the bounded pool.
package controller

import (
	"context"
	"fmt"

	"github.com/oai-harvester/harvester/action"
	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/provider"
	"github.com/oai-harvester/harvester/scenario"
	"github.com/oai-harvester/harvester/worker"
)

// Controller owns the Cycle, the configured providers, and the pool
// that bounds concurrent endpoint harvests.
type Controller struct {
	Cycle     *cycle.Cycle
	Providers []provider.Harvestable
	Sequences []*action.ActionSequence
	Pool      *worker.Pool
	Logger    core.Logger
}

// providerByIdentity indexes Providers by Harvestable.Identity for
// lookup against an Endpoint's URI, which is the provider's identity
// at the time it was first dispensed by the Cycle.
func (c *Controller) providerByIdentity(identity string) provider.Harvestable {
	for _, p := range c.Providers {
		if p.Identity() == identity {
			return p
		}
	}
	return nil
}

// Run drains the Cycle, dispatching one Worker per eligible endpoint
// through the pool, and blocks until every dispatched worker has
// finished. It returns an error only when the pool refuses a dispatch
// (ctx is done); an endpoint with no matching provider is logged and
// skipped, and per-worker failures are recorded on the Cycle and do not
// abort the loop.
func (c *Controller) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	props := c.Cycle.Properties()
	scenarioName := scenario.Name(props.Scenario)

	for _, p := range c.Providers {
		c.Cycle.EnsureEndpoint(p.Identity(), "")
	}

	for {
		ep := c.Cycle.Next()
		if ep == nil {
			break
		}
		if !c.Cycle.DoHarvest(ep) {
			continue
		}

		prov := c.providerByIdentity(ep.URI)
		if prov == nil {
			logger.Error("no provider configured for endpoint", map[string]interface{}{"uri": ep.URI})
			continue
		}

		w := &worker.Worker{
			Provider:     prov,
			Endpoint:     ep,
			Cycle:        c.Cycle,
			ScenarioName: scenarioName,
			Sequences:    c.Sequences,
			Logger:       logger,
		}

		err := c.Pool.Run(ctx, func(runCtx context.Context) {
			if runErr := w.Run(runCtx); runErr != nil {
				logger.Error("worker failed", map[string]interface{}{"uri": ep.URI, "error": runErr})
			}
		})
		if err != nil {
			c.Pool.Wait()
			return fmt.Errorf("controller: dispatch endpoint %s: %w", ep.URI, err)
		}
	}

	c.Pool.Wait()
	return nil
}
