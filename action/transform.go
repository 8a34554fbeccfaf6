package action

import (
	"context"
	"fmt"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/record"
)

// XSLTEngine is the port an XSLT transformation engine implements,
// left as an external collaborator. No XSLT processor exists in the
// retrieval pack's dependency surface, so production wiring of a real
// engine is left to a caller that imports one; this repository ships
// only the interface and an IdentityEngine suitable for tests and
// stylesheet-less pipelines.
type XSLTEngine interface {
	// Transform applies the stylesheet named by stylesheetPath to doc,
	// returning the transformed document.
	Transform(stylesheetPath string, doc []byte) ([]byte, error)
}

// IdentityEngine returns its input unchanged. It satisfies XSLTEngine
// for pipelines that declare a Transform step without actually needing
// reshaping (e.g. passing a prefix through for Save to persist as-is).
type IdentityEngine struct{}

func (IdentityEngine) Transform(stylesheetPath string, doc []byte) ([]byte, error) {
	return doc, nil
}

// Transform applies a precompiled XSLT stylesheet, identified by
// filename, to each record's document.
type Transform struct {
	StylesheetPath string
	Engine         XSLTEngine
}

var _ Action = (*Transform)(nil)

func (*Transform) Kind() string { return KindTransform }

func (t *Transform) Equal(other Action) bool {
	o, ok := other.(*Transform)
	return ok && o.StylesheetPath == t.StylesheetPath
}

// Clone returns a Transform with its own Engine instance when the
// Engine has a Clone() XSLTEngine method; any other Engine is shared
// between the original and the clone.
func (t *Transform) Clone() Action {
	engine := t.Engine
	if cloner, ok := engine.(interface{ Clone() XSLTEngine }); ok {
		engine = cloner.Clone()
	}
	return &Transform{StylesheetPath: t.StylesheetPath, Engine: engine}
}

// Perform runs the stylesheet over every record's document. Fails the
// batch on any XSLT runtime error.
func (t *Transform) Perform(ctx context.Context, batch record.Batch) (record.Batch, error) {
	engine := t.Engine
	if engine == nil {
		engine = IdentityEngine{}
	}
	out := make(record.Batch, len(batch))
	for i, in := range batch {
		transformed, err := engine.Transform(t.StylesheetPath, in.Document.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: transform %s on record %q: %v", core.ErrActionFailed, t.StylesheetPath, in.ID, err)
		}
		out[i] = in
		out[i].Document = record.Document{Raw: transformed}
	}
	return out, nil
}
