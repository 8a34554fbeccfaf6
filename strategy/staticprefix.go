package strategy

import (
	"context"

	"github.com/oai-harvester/harvester/provider"
)

// StaticPrefixHarvesting is the static-archive equivalent of
// FormatHarvesting: it reads the archive's declared prefixes instead of
// issuing ListMetadataFormats over HTTP, but otherwise drives the same
// state machine so scenario code does not need to special-case it.
type StaticPrefixHarvesting struct {
	source *provider.StaticProvider

	state    State
	prefixes []string
	loadErr  error
	consumed bool
}

var _ Strategy = (*StaticPrefixHarvesting)(nil)

// NewStaticPrefixHarvesting constructs a strategy over a static archive.
func NewStaticPrefixHarvesting(source *provider.StaticProvider) *StaticPrefixHarvesting {
	return &StaticPrefixHarvesting{source: source, state: StateReady}
}

func (s *StaticPrefixHarvesting) State() State { return s.state }

// Request loads the archive (idempotent, sync.Once-guarded) rather than
// making a network call.
func (s *StaticPrefixHarvesting) Request(ctx context.Context) bool {
	s.state = StateRequesting
	prefixes, err := s.source.ListMetadataFormats()
	if err != nil {
		s.loadErr = err
		s.state = StateFailed
		return false
	}
	s.prefixes = prefixes
	return true
}

func (s *StaticPrefixHarvesting) ProcessResponse() bool {
	s.state = StateParsing
	if s.loadErr != nil {
		s.state = StateFailed
		return false
	}
	s.state = StateDone
	return true
}

func (s *StaticPrefixHarvesting) FullyParsed() bool { return s.consumed }

// ResumptionToken always returns false: the archive is read in full.
func (s *StaticPrefixHarvesting) ResumptionToken() (string, bool) { return "", false }

// Prefixes returns the archived prefix list and marks it consumed.
func (s *StaticPrefixHarvesting) Prefixes() []string {
	s.consumed = true
	return s.prefixes
}
