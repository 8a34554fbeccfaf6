// Package strategy implements the Harvesting Strategy variants: a
// stateful iterator over a provider that produces either metadata
// prefixes or records, driven through an explicit state machine
// rather than implicit subclass state.
package strategy

import (
	"context"

	"github.com/oai-harvester/harvester/oaixml"
)

// State is a harvesting strategy's position in its request/parse cycle.
type State int

const (
	StateReady State = iota
	StateRequesting
	StateParsing
	StateHasMore
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRequesting:
		return "requesting"
	case StateParsing:
		return "parsing"
	case StateHasMore:
		return "has_more"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is DONE or FAILED. A strategy's own State()
// reads DONE after every parsed page, including pages that have a
// successor, and leaves DONE on the next Request; Drive's return value is
// what tells HAS_MORE from DONE. DONE is therefore not absorbing at the
// strategy level.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Strategy is the common surface of every harvesting strategy variant.
// The output item type (string prefix, or oaixml.Record) differs per
// variant, so callers type-assert or use the *Items()-style accessor
// the concrete variant exposes alongside this interface.
type Strategy interface {
	// Request performs the next protocol call and populates the internal
	// response. Returns false (and transitions to Failed) on error.
	Request(ctx context.Context) bool

	// ProcessResponse parses the populated response into output items.
	// Returns false (and transitions to Failed) on malformed content.
	ProcessResponse() bool

	// FullyParsed reports whether the current page's output items have
	// all been consumed by the caller.
	FullyParsed() bool

	// ResumptionToken returns the token for the next page, if any.
	ResumptionToken() (string, bool)

	// State returns the strategy's current position in its state machine.
	State() State
}

// Drive advances a Strategy through Request -> ProcessResponse once,
// returning the resulting state. Callers loop on this until Terminal()
// or until a resumption token is exhausted, implementing the
// READY -> REQUESTING -> PARSING -> (HAS_MORE | DONE | FAILED) machine.
func Drive(ctx context.Context, s Strategy) State {
	if !s.Request(ctx) {
		return StateFailed
	}
	if !s.ProcessResponse() {
		return StateFailed
	}
	if _, ok := s.ResumptionToken(); ok {
		return StateHasMore
	}
	return StateDone
}

// classifyResponse reports whether resp signals protocol failure.
func classifyResponse(resp *oaixml.Response) bool {
	return resp != nil && !resp.HasError()
}
