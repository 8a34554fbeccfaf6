package strategy

import (
	"context"

	"github.com/oai-harvester/harvester/oaixml"
)

// FormatHarvesting issues one ListMetadataFormats call and yields the
// resulting prefix strings. It never has more than one page.
type FormatHarvesting struct {
	client *oaixml.Client

	state    State
	pending  *oaixml.Response
	prefixes []string
	consumed bool
}

var _ Strategy = (*FormatHarvesting)(nil)

// NewFormatHarvesting constructs a FormatHarvesting strategy against client.
func NewFormatHarvesting(client *oaixml.Client) *FormatHarvesting {
	return &FormatHarvesting{client: client, state: StateReady}
}

func (f *FormatHarvesting) State() State { return f.state }

func (f *FormatHarvesting) Request(ctx context.Context) bool {
	f.state = StateRequesting
	resp, err := f.client.ListMetadataFormats(ctx)
	if err != nil {
		f.state = StateFailed
		return false
	}
	f.pending = resp
	return true
}

func (f *FormatHarvesting) ProcessResponse() bool {
	f.state = StateParsing
	if !classifyResponse(f.pending) {
		f.state = StateFailed
		return false
	}
	for _, mf := range f.pending.ListMetadataFormats.MetadataFormat {
		f.prefixes = append(f.prefixes, mf.MetadataPrefix)
	}
	f.state = StateDone
	return true
}

func (f *FormatHarvesting) FullyParsed() bool { return f.consumed }

// ResumptionToken always returns false: a single ListMetadataFormats
// call is never paginated.
func (f *FormatHarvesting) ResumptionToken() (string, bool) { return "", false }

// Prefixes returns the harvested prefix list and marks it consumed.
func (f *FormatHarvesting) Prefixes() []string {
	f.consumed = true
	return f.prefixes
}
