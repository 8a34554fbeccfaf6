// Package scenario implements the Scenario Engine: it glues one
// Harvesting Strategy to one provider, drives pagination to
// exhaustion, and feeds every record or envelope it produces into an
// ActionSequence.
package scenario

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/oai-harvester/harvester/action"
	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/oaixml"
	"github.com/oai-harvester/harvester/provider"
	"github.com/oai-harvester/harvester/record"
	"github.com/oai-harvester/harvester/strategy"
	"github.com/oai-harvester/harvester/telemetry"
)

// Name identifies which protocol scenario a worker requested.
type Name string

const (
	NameListIdentifiers Name = "ListIdentifiers"
	NameListRecords     Name = "ListRecords"
)

// Scenario drives one provider through one named protocol scenario and
// one ActionSequence. A Worker constructs and owns a Scenario for the
// duration of a single harvest.
type Scenario struct {
	Provider provider.Harvestable
	Sequence *action.ActionSequence
	Name     Name
	From     string
	Logger   core.Logger
}

// Run executes the scenario to completion and reports whether at least
// one record reached Save without error. A false
// result with a nil error means no record was saved: either the provider
// offers none of the sequence's prefixes (not a failure, just
// inapplicable), or every matching prefix failed or yielded nothing —
// per-prefix failures are logged, not returned.
func (s *Scenario) Run(ctx context.Context) (bool, error) {
	logger := s.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	prefixes, err := s.getPrefixes(ctx)
	if err != nil {
		return false, err
	}
	if len(prefixes) == 0 {
		return false, nil
	}

	anySaved := false
	for _, prefix := range prefixes {
		var saved bool
		var runErr error
		if s.Provider.IsStatic() {
			saved, runErr = s.runStatic(ctx, prefix)
		} else {
			switch s.Name {
			case NameListIdentifiers:
				saved, runErr = s.runListIdentifiers(ctx, prefix)
			case NameListRecords:
				saved, runErr = s.runListRecords(ctx, prefix)
			default:
				runErr = fmt.Errorf("%w: unknown scenario name %q", core.ErrInvalidConfiguration, s.Name)
			}
		}
		if runErr != nil {
			// Transient/protocol failure aborts this prefix only; other prefixes still get a chance.
			logger.Warn("scenario prefix failed", map[string]interface{}{
				"provider": s.Provider.Identity(), "prefix": prefix, "error": runErr,
			})
			telemetry.RecordError("harvester.scenario.prefixes", "prefix_failed", "scenario", string(s.Name))
			continue
		}
		if saved {
			anySaved = true
		}
	}
	return anySaved, nil
}

// getPrefixes performs ListMetadataFormats (live) or reads the archive's
// format list (static), then intersects with the sequence's declared
// input prefix. An empty Input.Prefix matches
// every offered prefix.
func (s *Scenario) getPrefixes(ctx context.Context) ([]string, error) {
	var offered []string

	switch p := s.Provider.(type) {
	case *provider.StaticProvider:
		strat := strategy.NewStaticPrefixHarvesting(p)
		if state := strategy.Drive(ctx, strat); state == strategy.StateFailed {
			return nil, fmt.Errorf("%w: static metadata formats", core.ErrProtocolViolation)
		}
		offered = strat.Prefixes()
	case *provider.Provider:
		client, err := p.Client(s.Logger)
		if err != nil {
			return nil, err
		}
		strat := strategy.NewFormatHarvesting(client)
		if state := strategy.Drive(ctx, strat); state == strategy.StateFailed {
			return nil, fmt.Errorf("%w: list metadata formats", core.ErrProtocolViolation)
		}
		offered = strat.Prefixes()
	default:
		return nil, fmt.Errorf("%w: unsupported provider type %T", core.ErrInvalidConfiguration, s.Provider)
	}

	want := s.Sequence.Input.Prefix
	if want == "" {
		return offered, nil
	}
	for _, p := range offered {
		if p == want && s.Provider.AllowsPrefix(p) {
			return []string{p}, nil
		}
	}
	return nil, nil
}

// runListIdentifiers pages ListIdentifiers to exhaustion, issues one
// GetRecord per identifier, and runs each resulting record through the
// sequence individually.
func (s *Scenario) runListIdentifiers(ctx context.Context, prefix string) (bool, error) {
	p := s.Provider.(*provider.Provider)
	client, err := p.Client(s.Logger)
	if err != nil {
		return false, err
	}

	strat := strategy.NewIdentifierListHarvesting(client, prefix, s.From)
	saved := false
	for {
		state := strategy.Drive(ctx, strat)
		if state == strategy.StateFailed {
			return saved, fmt.Errorf("%w: list identifiers %s", core.ErrTransientNetwork, prefix)
		}
		for {
			rec, ok := strat.Next()
			if !ok {
				break
			}
			if s.runOneRecord(ctx, prefix, rec) {
				saved = true
			}
		}
		if state != strategy.StateHasMore {
			break
		}
	}
	return saved, nil
}

// runListRecords pages ListRecords to exhaustion, wraps each page as an
// envelope, and runs it through the sequence via RunPage so a single
// record's pipeline failure does not block its page-mates.
func (s *Scenario) runListRecords(ctx context.Context, prefix string) (bool, error) {
	p := s.Provider.(*provider.Provider)
	client, err := p.Client(s.Logger)
	if err != nil {
		return false, err
	}

	strat := strategy.NewRecordListHarvesting(client, prefix, s.From)
	saved := false
	for {
		state := strategy.Drive(ctx, strat)
		if state == strategy.StateFailed {
			return saved, fmt.Errorf("%w: list records %s", core.ErrTransientNetwork, prefix)
		}
		if page, ok := strat.Page(); ok {
			raw, err := marshalListRecords(page)
			if err != nil {
				return saved, fmt.Errorf("%w: marshal page: %v", core.ErrProtocolViolation, err)
			}
			envelope := record.NewEnvelope(prefix, s.Provider.Identity(), raw)
			count, err := s.Sequence.RunPage(ctx, envelope)
			if err != nil {
				// Content/pipeline error on this page only; pagination for
				// this prefix stops.
				telemetry.RecordError("harvester.records.saved", "page_failed", "prefix", prefix)
				return saved, err
			}
			telemetry.Histogram("harvester.records.saved_per_page", float64(count), "prefix", prefix)
			if count > 0 {
				saved = true
			}
		}
		if state != strategy.StateHasMore {
			break
		}
	}
	return saved, nil
}

// runStatic serves either scenario name from a pre-loaded archive: no
// network calls, no pagination, all records resident after one Request.
func (s *Scenario) runStatic(ctx context.Context, prefix string) (bool, error) {
	sp := s.Provider.(*provider.StaticProvider)
	strat := strategy.NewStaticRecordListHarvesting(sp, prefix)
	if state := strategy.Drive(ctx, strat); state == strategy.StateFailed {
		return false, fmt.Errorf("%w: static records %s", core.ErrProtocolViolation, prefix)
	}
	records := strat.Records()
	if len(records) == 0 {
		return false, nil
	}

	if s.Name == NameListRecords {
		raw, err := marshalListRecords(oaixml.ListRecords{Records: records})
		if err != nil {
			return false, fmt.Errorf("%w: marshal static page: %v", core.ErrProtocolViolation, err)
		}
		envelope := record.NewEnvelope(prefix, s.Provider.Identity(), raw)
		count, err := s.Sequence.RunPage(ctx, envelope)
		if err != nil {
			telemetry.RecordError("harvester.records.saved", "page_failed", "prefix", prefix)
			return false, err
		}
		telemetry.Histogram("harvester.records.saved_per_page", float64(count), "prefix", prefix)
		return count > 0, nil
	}

	saved := false
	for _, rec := range records {
		if s.runOneRecord(ctx, prefix, rec) {
			saved = true
		}
	}
	return saved, nil
}

// runOneRecord marshals a single already-finalized oaixml.Record and
// runs it through the sequence, logging (not propagating) a failure so
// sibling records keep processing.
func (s *Scenario) runOneRecord(ctx context.Context, prefix string, rec oaixml.Record) bool {
	if rec.Header.Identifier == "" {
		return false
	}
	raw, err := marshalRecord(rec)
	if err != nil {
		return false
	}
	rb := record.NewFinal(rec.Header.Identifier, prefix, s.Provider.Identity(), raw)
	if _, err := s.Sequence.Run(ctx, record.Batch{rb}); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("record failed", map[string]interface{}{"id": rb.ID, "error": err})
		}
		telemetry.RecordError("harvester.records.saved", "pipeline_failed", "prefix", prefix)
		return false
	}
	telemetry.RecordSuccess("harvester.records.saved", "prefix", prefix)
	return true
}

// recordElement gives oaixml.Record an explicit root element name for
// re-marshaling; the type itself carries no XMLName so its Go type name
// would otherwise leak into the wire format.
type recordElement struct {
	XMLName xml.Name `xml:"record"`
	oaixml.Record
}

func marshalRecord(rec oaixml.Record) ([]byte, error) {
	return xml.Marshal(recordElement{Record: rec})
}

type listRecordsElement struct {
	XMLName         xml.Name        `xml:"ListRecords"`
	Records         []oaixml.Record `xml:"record"`
	ResumptionToken string          `xml:"resumptionToken,omitempty"`
}

func marshalListRecords(page oaixml.ListRecords) ([]byte, error) {
	return xml.Marshal(listRecordsElement{Records: page.Records, ResumptionToken: page.ResumptionToken})
}
