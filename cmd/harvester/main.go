// Command harvester runs the OAI-PMH metadata harvester: a full cycle
// over every configured provider, or a dump of the persistent endpoint
// overview. -endpoint adds its URI to the overview and then runs the
// same full cycle; it does not restrict the run to that endpoint.
// Flag parsing uses stdlib flag — no CLI argument library appears
// anywhere in the retrieval pack (see DESIGN.md).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oai-harvester/harvester/config"
	"github.com/oai-harvester/harvester/controller"
	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/telemetry"
	"github.com/oai-harvester/harvester/worker"
)

// Exit codes
const (
	exitSuccess         = 0
	exitEndpointsFailed = 1
	exitConfigError     = 2
	exitPersistence     = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("harvester", flag.ContinueOnError)
	configPath := fs.String("config", "harvester.xml", "path to the harvester configuration file")
	endpoint := fs.String("endpoint", "", "add an endpoint URI to the overview before running the full cycle")
	dumpStatus := fs.Bool("status", false, "dump endpoint overview status as YAML and exit")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	ambient, err := core.NewConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	logger := ambient.Logger()

	if ambient.Telemetry.Enabled {
		if err := telemetry.EnableFromConfig(ambient); err != nil {
			logger.Error("telemetry initialization failed", map[string]interface{}{"error": err})
		}
	}

	doc, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration error", map[string]interface{}{"error": err})
		return exitConfigError
	}

	cycleProps, err := doc.CycleProperties()
	if err != nil {
		logger.Error("configuration error", map[string]interface{}{"error": err})
		return exitConfigError
	}

	c, err := cycle.Load(doc.OverviewPath, cycleProps, logger)
	if err != nil {
		logger.Error("configuration error", map[string]interface{}{"error": err})
		return exitConfigError
	}

	if *dumpStatus {
		return dumpOverview(c)
	}

	providers, err := doc.BuildProviders()
	if err != nil {
		logger.Error("configuration error", map[string]interface{}{"error": err})
		return exitConfigError
	}
	sequences, err := doc.ActionSequences()
	if err != nil {
		logger.Error("configuration error", map[string]interface{}{"error": err})
		return exitConfigError
	}

	if *endpoint != "" {
		c.EnsureEndpoint(*endpoint, "")
	}

	concurrency := cycleProps.Concurrency
	if concurrency <= 0 {
		concurrency = ambient.DefaultConcurrency
	}

	ctrl := &controller.Controller{
		Cycle:     c,
		Providers: providers,
		Sequences: sequences,
		Pool:      worker.NewPool(concurrency, logger),
		Logger:    logger,
	}

	ctx := context.Background()
	if err := ctrl.Run(ctx); err != nil {
		if errors.Is(err, core.ErrPersistenceFailed) {
			logger.Error("persistence failure", map[string]interface{}{"error": err})
			return exitPersistence
		}
		logger.Error("cycle failed", map[string]interface{}{"error": err})
		return exitEndpointsFailed
	}
	return exitSuccess
}

// dumpOverview prints, as YAML, the status of each endpoint that Next
// dispenses. Endpoints already attempted today are not listed.
func dumpOverview(c *cycle.Cycle) int {
	var statuses []map[string]interface{}
	for {
		ep := c.Next()
		if ep == nil {
			break
		}
		statuses = append(statuses, map[string]interface{}{
			"uri":       ep.URI,
			"group":     ep.Group,
			"blocked":   ep.Blocked,
			"retry":     ep.Retry,
			"attempted": ep.Attempted,
			"harvested": ep.Harvested,
			"succeeded": ep.Succeeded(),
		})
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(statuses); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitPersistence
	}
	return exitSuccess
}
