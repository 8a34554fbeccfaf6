// Package action implements the Action Pipeline: Split, Strip,
// Transform, and Save, composed into an ActionSequence bound to an
// input/output format descriptor.
package action

import (
	"context"
	"fmt"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/record"
)

// Action transforms a batch of records. Each variant's Perform returns
// the resulting batch, or an error describing why it couldn't, with
// distinct content vs. pipeline error kinds (content errors skip a
// record; pipeline errors abort it).
type Action interface {
	// Perform returns the batch produced from batch, plus an error.
	Perform(ctx context.Context, batch record.Batch) (record.Batch, error)

	// Kind names the action variant, used for equality and config diagnostics.
	Kind() string

	// Equal reports value-equality with another Action: same variant,
	// same parameters. A Split has no parameters, so all Splits compare equal.
	Equal(other Action) bool

	// Clone returns an action with the same configuration but independent
	// internal state (its own XML/XSLT parser), so each worker can safely
	// share an ActionSequence template without racing on parser state.
	Clone() Action
}

// FormatDescriptor identifies the metadata format an ActionSequence
// consumes or produces.
type FormatDescriptor struct {
	Prefix string // e.g. "oai_dc"
	Schema string // XML schema URI, informational
	Type   string // free-form type tag, e.g. "envelope", "record"
}

// ActionSequence is an ordered chain of actions bound to an input
// format. Validate checks two structural rules (Split only as the first
// step, Save as the last); it does not check the other pairings of
// adjacent actions (Strip after Split, Transform on a recognized prefix),
// which surface only as errors from Perform at run time.
type ActionSequence struct {
	Name   string
	Input  FormatDescriptor
	Output FormatDescriptor
	Steps  []Action
}

// Validate checks the adjacency rules: Split, if present, must be the
// first step (it consumes an envelope, which only exists before any
// record-level action has run), and a sequence must end in Save to
// have any externally visible effect.
func (s *ActionSequence) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: action sequence %q has no steps", core.ErrInvalidConfiguration, s.Name)
	}
	for i, step := range s.Steps {
		if step.Kind() == KindSplit && i != 0 {
			return fmt.Errorf("%w: action sequence %q: split must be the first step, found at position %d", core.ErrInvalidConfiguration, s.Name, i)
		}
	}
	if last := s.Steps[len(s.Steps)-1]; last.Kind() != KindSave {
		return fmt.Errorf("%w: action sequence %q must end in save, got %q", core.ErrInvalidConfiguration, s.Name, last.Kind())
	}
	return nil
}

// Run executes every step in order, threading the batch through each.
// A step's error aborts the sequence for this batch; it
// does not abort sibling sequences or other records already saved.
func (s *ActionSequence) Run(ctx context.Context, batch record.Batch) (record.Batch, error) {
	current := batch
	for _, step := range s.Steps {
		next, err := step.Perform(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// RunPage executes a sequence against one envelope page with per-record
// failure isolation: if the sequence opens with Split, Split runs once
// over the whole page (a Split failure aborts the page with a content
// error on an empty envelope), and every remaining step then runs
// independently per emitted record, so one record's Strip/Transform/
// Save failure does not block its siblings. Returns the count of
// records that reached the end of the sequence without error.
func (s *ActionSequence) RunPage(ctx context.Context, envelope record.Record) (int, error) {
	batch := record.Batch{envelope}
	rest := s.Steps

	if len(s.Steps) > 0 && s.Steps[0].Kind() == KindSplit {
		next, err := s.Steps[0].Perform(ctx, batch)
		if err != nil {
			return 0, err
		}
		batch = next
		rest = s.Steps[1:]
	}

	saved := 0
	for _, rec := range batch {
		cur := record.Batch{rec}
		ok := true
		for _, step := range rest {
			next, err := step.Perform(ctx, cur)
			if err != nil {
				ok = false
				break
			}
			cur = next
		}
		if ok {
			saved++
		}
	}
	return saved, nil
}

// Clone returns an ActionSequence with independently-cloned steps, so a
// worker can run its own instance of a shared configuration template
// concurrently with other workers.
func (s *ActionSequence) Clone() *ActionSequence {
	steps := make([]Action, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = step.Clone()
	}
	return &ActionSequence{Name: s.Name, Input: s.Input, Output: s.Output, Steps: steps}
}

// Equal reports whether two sequences have the same name, formats, and
// step-wise equal actions.
func (s *ActionSequence) Equal(other *ActionSequence) bool {
	if other == nil || s.Name != other.Name || s.Input != other.Input || s.Output != other.Output {
		return false
	}
	if len(s.Steps) != len(other.Steps) {
		return false
	}
	for i := range s.Steps {
		if !s.Steps[i].Equal(other.Steps[i]) {
			return false
		}
	}
	return true
}

// Action kind tags, shared across split.go/strip.go/transform.go/save.go.
const (
	KindSplit     = "split"
	KindStrip     = "strip"
	KindTransform = "transform"
	KindSave      = "save"
)
