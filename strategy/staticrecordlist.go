package strategy

import (
	"context"

	"github.com/oai-harvester/harvester/oaixml"
	"github.com/oai-harvester/harvester/provider"
)

// StaticRecordListHarvesting is the static-archive equivalent of
// RecordListHarvesting: the whole prefix's record set is already
// resident, so there is exactly one page and no resumption token.
type StaticRecordListHarvesting struct {
	source *provider.StaticProvider
	prefix string

	state    State
	records  []oaixml.Record
	loadErr  error
	consumed bool
}

var _ Strategy = (*StaticRecordListHarvesting)(nil)

// NewStaticRecordListHarvesting constructs a strategy for one prefix
// over a static archive.
func NewStaticRecordListHarvesting(source *provider.StaticProvider, prefix string) *StaticRecordListHarvesting {
	return &StaticRecordListHarvesting{source: source, prefix: prefix, state: StateReady}
}

func (s *StaticRecordListHarvesting) State() State { return s.state }

func (s *StaticRecordListHarvesting) Request(ctx context.Context) bool {
	s.state = StateRequesting
	records, err := s.source.RecordsForPrefix(s.prefix)
	if err != nil {
		s.loadErr = err
		s.state = StateFailed
		return false
	}
	s.records = records
	return true
}

func (s *StaticRecordListHarvesting) ProcessResponse() bool {
	s.state = StateParsing
	if s.loadErr != nil {
		s.state = StateFailed
		return false
	}
	s.state = StateDone
	return true
}

func (s *StaticRecordListHarvesting) FullyParsed() bool { return s.consumed }

// ResumptionToken always returns false: the whole prefix is one page.
func (s *StaticRecordListHarvesting) ResumptionToken() (string, bool) { return "", false }

// Records returns the archived record set for this prefix and marks it
// consumed.
func (s *StaticRecordListHarvesting) Records() []oaixml.Record {
	s.consumed = true
	return s.records
}
