// Package config loads the harvester's declarative XML configuration
// file: providers, action sequences, and cycle properties.
// No configuration-file library exists anywhere in the retrieval pack
// for this XML shape, so parsing uses stdlib encoding/xml — consistent
// with scoping "configuration file loading" out as an
// external collaborator with its own format, and with oaixml's own
// justified use of the same package for the wire protocol.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/oai-harvester/harvester/action"
	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/provider"
)

// ProviderConfig is one <provider> element: either a live endpoint or a
// static archive.
type ProviderConfig struct {
	Name            string   `xml:"name,attr"`
	BaseURL         string   `xml:"baseUrl,attr"`
	Static          bool     `xml:"static,attr"`
	ArchivePath     string   `xml:"archivePath,attr"`
	TimeoutSeconds  int      `xml:"timeoutSeconds,attr"`
	AllowedPrefixes []string `xml:"allowedPrefix"`
}

// Build constructs the runtime provider.Harvestable this config describes.
func (p ProviderConfig) Build() (provider.Harvestable, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: provider missing name", core.ErrInvalidConfiguration)
	}
	if p.Static {
		if p.ArchivePath == "" {
			return nil, fmt.Errorf("%w: static provider %q missing archivePath", core.ErrInvalidConfiguration, p.Name)
		}
		return &provider.StaticProvider{Name: p.Name, ArchivePath: p.ArchivePath, AllowedPrefixes: p.AllowedPrefixes}, nil
	}
	if p.BaseURL == "" {
		return nil, fmt.Errorf("%w: provider %q missing baseUrl", core.ErrInvalidConfiguration, p.Name)
	}
	timeout := time.Duration(p.TimeoutSeconds) * time.Second
	return &provider.Provider{Name: p.Name, BaseURL: p.BaseURL, AllowedPrefixes: p.AllowedPrefixes, Timeout: timeout}, nil
}

// ActionConfig is one <action> step inside a sequence: Kind selects the
// variant, and the remaining fields are that variant's parameters —
// unused fields are simply left zero for variants that don't need them.
type ActionConfig struct {
	Kind           string `xml:"kind,attr"`
	StylesheetPath string `xml:"stylesheetPath,attr"`
	OutputRoot     string `xml:"outputRoot,attr"`
}

// Build constructs the runtime action.Action this config describes.
func (a ActionConfig) Build() (action.Action, error) {
	switch a.Kind {
	case action.KindSplit:
		return action.Split{}, nil
	case action.KindStrip:
		return &action.Strip{}, nil
	case action.KindTransform:
		return &action.Transform{StylesheetPath: a.StylesheetPath, Engine: action.IdentityEngine{}}, nil
	case action.KindSave:
		if a.OutputRoot == "" {
			return nil, fmt.Errorf("%w: save action missing outputRoot", core.ErrInvalidConfiguration)
		}
		return &action.Save{Store: &action.FileStore{Root: a.OutputRoot}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action kind %q", core.ErrInvalidConfiguration, a.Kind)
	}
}

// FormatConfig mirrors action.FormatDescriptor on the wire.
type FormatConfig struct {
	Prefix string `xml:"prefix,attr"`
	Schema string `xml:"schema,attr"`
	Type   string `xml:"type,attr"`
}

func (f FormatConfig) toDescriptor() action.FormatDescriptor {
	return action.FormatDescriptor{Prefix: f.Prefix, Schema: f.Schema, Type: f.Type}
}

// SequenceConfig is one <actionSequence> element.
type SequenceConfig struct {
	Name    string         `xml:"name,attr"`
	Input   FormatConfig   `xml:"input"`
	Output  FormatConfig   `xml:"output"`
	Actions []ActionConfig `xml:"action"`
}

// Build constructs the runtime action.ActionSequence this config describes.
func (s SequenceConfig) Build() (*action.ActionSequence, error) {
	steps := make([]action.Action, 0, len(s.Actions))
	for _, ac := range s.Actions {
		step, err := ac.Build()
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", s.Name, err)
		}
		steps = append(steps, step)
	}
	seq := &action.ActionSequence{Name: s.Name, Input: s.Input.toDescriptor(), Output: s.Output.toDescriptor(), Steps: steps}
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("sequence %q: %w", s.Name, err)
	}
	return seq, nil
}

// CyclePropertiesConfig is the <cycle> element.
type CyclePropertiesConfig struct {
	Mode        string `xml:"mode,attr"`
	Scenario    string `xml:"scenario,attr"`
	Concurrency int    `xml:"concurrency,attr"`
	From        string `xml:"from,attr"` // optional RFC3339 override
}

// Build constructs the runtime cycle.Properties this config describes.
func (c CyclePropertiesConfig) Build() (cycle.Properties, error) {
	mode := cycle.Mode(c.Mode)
	switch mode {
	case cycle.ModeNormal, cycle.ModeRetry, cycle.ModeRefresh:
	default:
		return cycle.Properties{}, fmt.Errorf("%w: unknown cycle mode %q", core.ErrInvalidConfiguration, c.Mode)
	}
	props := cycle.Properties{Mode: mode, Scenario: c.Scenario, Concurrency: c.Concurrency}
	if c.From != "" {
		t, err := time.Parse(time.RFC3339, c.From)
		if err != nil {
			return cycle.Properties{}, fmt.Errorf("%w: invalid cycle from %q: %v", core.ErrInvalidConfiguration, c.From, err)
		}
		props.FromOverride = &t
	}
	return props, nil
}

// Document is the root <harvester> configuration element.
type Document struct {
	XMLName      xml.Name               `xml:"harvester"`
	OverviewPath string                 `xml:"overviewPath,attr"`
	Cycle        CyclePropertiesConfig  `xml:"cycle"`
	Providers    []ProviderConfig       `xml:"providers>provider"`
	Sequences    []SequenceConfig       `xml:"actionSequences>actionSequence"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config %s: %v", core.ErrInvalidConfiguration, path, err)
	}
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing config %s: %v", core.ErrInvalidConfiguration, path, err)
	}
	if doc.OverviewPath == "" {
		return nil, fmt.Errorf("%w: config missing overviewPath", core.ErrInvalidConfiguration)
	}
	if len(doc.Providers) == 0 {
		return nil, fmt.Errorf("%w: config declares no providers", core.ErrMissingConfiguration)
	}
	return &doc, nil
}

// BuildProviders builds every configured provider.
func (d *Document) BuildProviders() ([]provider.Harvestable, error) {
	out := make([]provider.Harvestable, 0, len(d.Providers))
	for _, p := range d.Providers {
		built, err := p.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

// ActionSequences builds every configured action sequence.
func (d *Document) ActionSequences() ([]*action.ActionSequence, error) {
	out := make([]*action.ActionSequence, 0, len(d.Sequences))
	for _, s := range d.Sequences {
		built, err := s.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

// CycleProperties builds the configured cycle properties.
func (d *Document) CycleProperties() (cycle.Properties, error) {
	return d.Cycle.Build()
}
