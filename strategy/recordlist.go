package strategy

import (
	"context"

	"github.com/oai-harvester/harvester/oaixml"
)

// RecordListHarvesting pages ListRecords by resumption token. Each page
// is surfaced as a single envelope item: the raw page document still needs Split to pull individual
// <record> elements out before Save can persist them.
type RecordListHarvesting struct {
	client *oaixml.Client
	prefix string
	from   string

	state      State
	pending    *oaixml.Response
	resumption string
	hasMore    bool
	consumed   bool
}

var _ Strategy = (*RecordListHarvesting)(nil)

// NewRecordListHarvesting constructs a strategy for one prefix.
func NewRecordListHarvesting(client *oaixml.Client, prefix, from string) *RecordListHarvesting {
	return &RecordListHarvesting{client: client, prefix: prefix, from: from, state: StateReady}
}

func (r *RecordListHarvesting) State() State { return r.state }

func (r *RecordListHarvesting) Request(ctx context.Context) bool {
	r.state = StateRequesting
	resp, err := r.client.ListRecords(ctx, r.prefix, r.from, r.resumption)
	if err != nil {
		r.state = StateFailed
		return false
	}
	r.pending = resp
	r.consumed = false
	return true
}

func (r *RecordListHarvesting) ProcessResponse() bool {
	r.state = StateParsing
	if !classifyResponse(r.pending) {
		r.state = StateFailed
		return false
	}
	if tok, ok := r.pending.ResumptionToken(); ok {
		r.resumption = tok
		r.hasMore = true
	} else {
		r.hasMore = false
	}
	r.state = StateDone
	return true
}

func (r *RecordListHarvesting) FullyParsed() bool { return r.consumed }

func (r *RecordListHarvesting) ResumptionToken() (string, bool) {
	if r.hasMore {
		return r.resumption, true
	}
	return "", false
}

// Page returns the raw ListRecords document for the page just parsed,
// marking it consumed. Callers feed this through Split to recover
// individual records.
func (r *RecordListHarvesting) Page() (oaixml.ListRecords, bool) {
	if r.consumed || r.pending == nil {
		return oaixml.ListRecords{}, false
	}
	r.consumed = true
	return r.pending.ListRecords, true
}
