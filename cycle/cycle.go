// Package cycle implements the Cycle state machine: the single shared,
// mutex-guarded authority over which endpoints get harvested on a
// given run and from what date.
package cycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/telemetry"
)

// Properties is the run-wide policy a Cycle applies uniformly to every
// endpoint it dispenses.
type Properties struct {
	Mode         Mode
	Scenario     string
	Concurrency  int
	FromOverride *time.Time // optional cycle-wide "from" override
}

// Cycle is the authoritative state machine over endpoints between runs.
// All access is serialised behind mu; it is the single shared mutable
// object every worker touches.
type Cycle struct {
	mu           sync.Mutex
	overviewPath string
	props        Properties
	endpoints    map[string]*Endpoint // keyed by URI
	order        []string             // file order, for next()'s "first remaining" rule
	dispensed    map[string]bool      // in-memory only, reset each process run
	logger       core.Logger
}

// Load reads the overview file at path (a missing file starts empty)
// and returns a ready-to-use Cycle.
func Load(path string, props Properties, logger core.Logger) (*Cycle, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	endpoints, err := loadOverview(path)
	if err != nil {
		return nil, err
	}

	c := &Cycle{
		overviewPath: path,
		props:        props,
		endpoints:    make(map[string]*Endpoint, len(endpoints)),
		dispensed:    make(map[string]bool),
		logger:       logger,
	}
	for _, e := range endpoints {
		c.endpoints[e.URI] = e
		c.order = append(c.order, e.URI)
	}
	return c, nil
}

// Next returns the next endpoint eligible for harvesting this cycle, or
// nil when none remain. It never returns the same endpoint twice
// within a process lifetime.
func (c *Cycle) Next() *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, uri := range c.order {
		if c.dispensed[uri] {
			continue
		}
		e := c.endpoints[uri]
		if sameDay(e.Attempted, today) {
			continue
		}
		c.dispensed[uri] = true
		return e
	}
	return nil
}

func sameDay(t, day time.Time) bool {
	return t.UTC().Truncate(24 * time.Hour).Equal(day)
}

// NextFor looks up or creates the endpoint matching (uri, group), for
// targeted single-endpoint runs (`next(uri, group)`).
func (c *Cycle) NextFor(uri, group string) *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.endpoints[uri]; ok {
		c.dispensed[uri] = true
		return e
	}
	e := newEndpoint(uri, group)
	c.endpoints[uri] = e
	c.order = append(c.order, uri)
	c.dispensed[uri] = true
	return e
}

// EnsureEndpoint creates the endpoint record for (uri, group) if this
// is its first appearance, leaving it undispensed so a subsequent
// Next() call can still select it. A pre-existing endpoint is returned
// unchanged.
func (c *Cycle) EnsureEndpoint(uri, group string) *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.endpoints[uri]; ok {
		return e
	}
	e := newEndpoint(uri, group)
	c.endpoints[uri] = e
	c.order = append(c.order, uri)
	return e
}

// DoHarvest is the authoritative "should we contact this endpoint now"
// predicate, mode-dependent.
func (c *Cycle) DoHarvest(e *Endpoint) bool {
	switch c.props.Mode {
	case ModeNormal:
		return !e.Blocked
	case ModeRetry:
		return e.Retry && !e.Attempted.Equal(e.Harvested)
	case ModeRefresh:
		return !e.Blocked
	default:
		panic(fmt.Sprintf("%v: unknown cycle mode %q", core.ErrUnknownMode, c.props.Mode))
	}
}

// GetRequestDate is the "from" timestamp to use on OAI selective
// harvesting, mode-dependent.
func (c *Cycle) GetRequestDate(e *Endpoint) time.Time {
	if c.props.FromOverride != nil {
		return *c.props.FromOverride
	}
	switch c.props.Mode {
	case ModeNormal:
		if e.Blocked || !e.AllowIncrementalHarvest {
			return epoch
		}
		return e.Harvested
	case ModeRetry:
		if !e.Retry {
			return epoch
		}
		if e.Attempted.Equal(e.Harvested) {
			return epoch
		}
		return e.Attempted
	case ModeRefresh:
		return epoch
	default:
		panic(fmt.Sprintf("%v: unknown cycle mode %q", core.ErrUnknownMode, c.props.Mode))
	}
}

// RecordAttempt updates Attempted to now, and Harvested too on
// success, then persists the overview. In-memory state is updated
// before the flush so an in-process retry still observes progress
// even if the flush itself fails.
func (c *Cycle) RecordAttempt(e *Endpoint, success bool) error {
	c.mu.Lock()
	now := time.Now().UTC()
	e.Attempted = now
	if success {
		e.Harvested = now
	}
	snapshot := make([]*Endpoint, 0, len(c.order))
	for _, uri := range c.order {
		snapshot = append(snapshot, c.endpoints[uri])
	}
	path := c.overviewPath
	c.mu.Unlock()

	if err := saveOverview(path, snapshot); err != nil {
		c.logger.Error("overview persist failed", map[string]interface{}{"uri": e.URI, "error": err})
		telemetry.RecordError("harvester.endpoint.attempts", "persist_failed", "mode", string(c.props.Mode))
		return err
	}
	if success {
		telemetry.RecordSuccess("harvester.endpoint.attempts", "mode", string(c.props.Mode))
	} else {
		telemetry.Counter("harvester.endpoint.attempts", "mode", string(c.props.Mode), "status", "failed")
	}
	return nil
}

// Retry is intentionally unimplemented: the underlying retry() operation
// has no defined body, and its intent — a cycle-wide re-queue of failed
// endpoints — isn't specified closely enough to implement without
// guessing. Callers should drive retries by running a second Cycle with
// Mode=ModeRetry instead.
func (c *Cycle) Retry() error {
	return fmt.Errorf("cycle: Retry is not implemented; run a cycle with Mode=ModeRetry instead")
}

// Properties returns the Cycle's run-wide properties.
func (c *Cycle) Properties() Properties { return c.props }
