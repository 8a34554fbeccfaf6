package strategy

import (
	"context"

	"github.com/oai-harvester/harvester/oaixml"
)

// IdentifierListHarvesting pages ListIdentifiers and issues one
// GetRecord per identifier, yielding one oaixml.Record per call. The
// identifiers of a page are fetched before the next page is requested;
// the whole identifier list is not collected first.
type IdentifierListHarvesting struct {
	client *oaixml.Client
	prefix string
	from   string

	state   State
	pending *oaixml.Response

	// identifiers accumulates across ListIdentifiers pages; records are
	// fetched and drained one at a time by Next.
	identifiers []string
	cursor      int
	resumption  string
	hasMore     bool

	ready []oaixml.Record
}

var _ Strategy = (*IdentifierListHarvesting)(nil)

// NewIdentifierListHarvesting constructs a strategy for one prefix.
func NewIdentifierListHarvesting(client *oaixml.Client, prefix, from string) *IdentifierListHarvesting {
	return &IdentifierListHarvesting{client: client, prefix: prefix, from: from, state: StateReady}
}

func (h *IdentifierListHarvesting) State() State { return h.state }

// Request fetches the record for the next unfetched identifier, or —
// once every collected identifier has been fetched — the next page of
// identifiers. Scenario drives this in a loop until Done/Failed.
func (h *IdentifierListHarvesting) Request(ctx context.Context) bool {
	h.state = StateRequesting

	if h.cursor < len(h.identifiers) {
		resp, err := h.client.GetRecord(ctx, h.identifiers[h.cursor], h.prefix)
		if err != nil {
			h.state = StateFailed
			return false
		}
		h.pending = resp
		return true
	}

	resp, err := h.client.ListIdentifiers(ctx, h.prefix, h.from, h.resumption)
	if err != nil {
		h.state = StateFailed
		return false
	}
	h.pending = resp
	return true
}

func (h *IdentifierListHarvesting) ProcessResponse() bool {
	h.state = StateParsing
	if !classifyResponse(h.pending) {
		h.state = StateFailed
		return false
	}

	if h.pending.GetRecord.Record.Header.Identifier != "" {
		h.ready = append(h.ready, h.pending.GetRecord.Record)
		h.cursor++
		h.state = StateDone
		return true
	}

	for _, hdr := range h.pending.ListIdentifiers.Headers {
		if hdr.Status == "deleted" {
			continue
		}
		h.identifiers = append(h.identifiers, hdr.Identifier)
	}
	if tok, ok := h.pending.ResumptionToken(); ok {
		h.resumption = tok
		h.hasMore = true
	} else {
		h.hasMore = false
	}
	h.state = StateDone
	return true
}

func (h *IdentifierListHarvesting) FullyParsed() bool {
	return len(h.ready) == 0 && h.cursor >= len(h.identifiers)
}

// ResumptionToken reports whether there is more identifier-list
// pagination OR unconsumed identifiers awaiting GetRecord — both keep
// the strategy alive for another Drive() iteration.
func (h *IdentifierListHarvesting) ResumptionToken() (string, bool) {
	if h.cursor < len(h.identifiers) {
		return h.resumption, true
	}
	if h.hasMore {
		return h.resumption, true
	}
	return "", false
}

// Next drains the most recently fetched record, if any.
func (h *IdentifierListHarvesting) Next() (oaixml.Record, bool) {
	if len(h.ready) == 0 {
		return oaixml.Record{}, false
	}
	rec := h.ready[0]
	h.ready = h.ready[1:]
	return rec, true
}
