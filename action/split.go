package action

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/record"
)

// Split breaks an envelope record (a ListRecords response body) into
// one finalized Record per `<record>` element, regardless of XML
// namespace. No XPath/XSLT library exists anywhere in the retrieval
// pack (see DESIGN.md), so this walks the token stream by local name
// instead, the equivalent stdlib technique for namespace-agnostic
// matching.
type Split struct{}

var _ Action = Split{}

func (Split) Kind() string { return KindSplit }

// Equal always returns true for two Splits: the action carries no
// parameters, so every Split instance is structurally equal.
func (Split) Equal(other Action) bool {
	_, ok := other.(Split)
	return ok
}

// Clone returns a fresh Split; it owns no internal state to isolate.
func (Split) Clone() Action { return Split{} }

// Perform replaces the batch with the records extracted from each
// input document. An input that yields zero matches fails the whole
// batch with ErrNoContent.
func (Split) Perform(ctx context.Context, batch record.Batch) (record.Batch, error) {
	out := make(record.Batch, 0, len(batch))
	for _, in := range batch {
		elements, err := extractElementsByLocalName(in.Document.Raw, "record")
		if err != nil {
			return nil, fmt.Errorf("%w: split: %v", core.ErrActionFailed, err)
		}
		if len(elements) == 0 {
			return nil, fmt.Errorf("%w: split produced no record elements", core.ErrNoContent)
		}
		for _, raw := range elements {
			id, err := findIdentifier(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: split: %v", core.ErrMissingIdentifier, err)
			}
			doc := record.Document{Raw: raw}.Clone()
			out = append(out, record.Record{
				ID:       id,
				Prefix:   in.Prefix,
				Document: doc,
				Origin:   in.Origin,
			})
		}
	}
	return out, nil
}

// findIdentifier returns the text of the first `identifier` element
// inside the first `header` element, both matched by local name at any
// depth rather than only as direct children.
func findIdentifier(raw []byte) (string, error) {
	headers, err := extractElementsByLocalName(raw, "header")
	if err != nil {
		return "", err
	}
	if len(headers) == 0 {
		return "", fmt.Errorf("no header element")
	}
	ids, err := extractElementsByLocalName(headers[0], "identifier")
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no identifier element")
	}
	return elementText(ids[0]), nil
}

// extractElementsByLocalName returns the serialized bytes of every
// top-level descendant element (at any depth) whose local name matches
// name, ignoring namespace prefixes — a namespace-agnostic equivalent
// of the XPath `//*[local-name()='name']` used by Split. Matches are
// not nested: once an element is captured, its children are not
// separately searched.
func extractElementsByLocalName(raw []byte, name string) ([][]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var matches [][]byte

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != name {
			continue
		}
		var buf bytes.Buffer
		enc := xml.NewEncoder(&buf)
		depth := 1
		if err := enc.EncodeToken(start); err != nil {
			return nil, err
		}
		for depth > 0 {
			inner, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("unterminated element %q: %w", name, err)
			}
			if err := enc.EncodeToken(inner); err != nil {
				return nil, err
			}
			switch inner.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				depth--
			}
		}
		if err := enc.Flush(); err != nil {
			return nil, err
		}
		matches = append(matches, append([]byte(nil), buf.Bytes()...))
	}
	return matches, nil
}

// elementText returns the concatenated character data of an element's
// immediate text content.
func elementText(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var text bytes.Buffer
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			text.Write(cd)
		}
	}
	return text.String()
}
