// Package record defines the Metadata Record value type that flows
// through the action pipeline (split.go, strip.go, transform.go,
// save.go) from OAI-PMH response to a saved file.
package record

import (
	"bytes"
	"encoding/xml"
)

// Document is the opaque XML tree a Record carries. The action pipeline
// only ever mutates a Record by producing a new Document, never by
// editing one in place — this is what lets Split deep-copy safely
// (see Clone).
type Document struct {
	// Raw holds the serialized XML body. Actions that only need to move
	// or persist a document (Save, the pass-through parts of Transform)
	// never need to unmarshal it.
	Raw []byte
}

// Clone returns an independently owned copy of d. Required after Split:
// sharing a parent document's backing array between sibling records is
// the "XML identity" bug called out for this pipeline — each emitted
// record must own its bytes outright.
func (d Document) Clone() Document {
	cp := make([]byte, len(d.Raw))
	copy(cp, d.Raw)
	return Document{Raw: cp}
}

// Record is a single unit flowing through an ActionSequence: either a
// finalized, single-record document ready for Save, or — while
// isEnvelope/isList is true — a still-batched OAI response awaiting
// Split.
type Record struct {
	// ID is the OAI identifier, unique within (Origin, Prefix). Empty
	// until the document has been split down to a single record.
	ID string

	// Prefix is the metadata format this document was harvested under
	// (e.g. "oai_dc").
	Prefix string

	// Document is the record's XML payload at this pipeline stage.
	Document Document

	// Origin names the provider this record came from, used to build
	// the save-tree path <outputRoot>/<Origin>/<Prefix>/<ID>.xml.
	Origin string

	// IsEnvelope is true while Document still wraps multiple <record>
	// elements in an OAI-PMH response envelope (ListRecords output
	// before Split has run).
	IsEnvelope bool

	// IsList is true for a list response that has not yet been split
	// into individual records. A Record is "finalized" exactly when
	// both IsEnvelope and IsList are false.
	IsList bool
}

// Finalized reports whether r is a single, self-contained record ready
// for Strip/Transform/Save, per the data model invariant: once
// IsEnvelope=false and IsList=false, Document contains exactly one
// <record> element and ID is non-empty.
func (r Record) Finalized() bool {
	return !r.IsEnvelope && !r.IsList && r.ID != ""
}

// NewEnvelope wraps a ListRecords/GetRecord response body as an envelope
// awaiting Split.
func NewEnvelope(prefix, origin string, raw []byte) Record {
	return Record{
		Prefix:     prefix,
		Document:   Document{Raw: raw},
		Origin:     origin,
		IsEnvelope: true,
		IsList:     true,
	}
}

// NewFinal wraps a single already-split record.
func NewFinal(id, prefix, origin string, raw []byte) Record {
	return Record{
		ID:       id,
		Prefix:   prefix,
		Document: Document{Raw: raw},
		Origin:   origin,
	}
}

// Batch is the unit the action pipeline operates on: a slice of Records
// that each Action consumes, returning a new Batch in its place.
type Batch []Record

// EqualXML reports whether two XML fragments are structurally
// equivalent, ignoring attribute order and insignificant whitespace —
// used by round-trip tests on the save tree.
func EqualXML(a, b []byte) bool {
	da := xml.NewDecoder(bytes.NewReader(a))
	db := xml.NewDecoder(bytes.NewReader(b))
	for {
		ta, errA := nextSignificantToken(da)
		tb, errB := nextSignificantToken(db)
		if errA != nil || errB != nil {
			return errA == errB
		}
		if !tokenEqual(ta, tb) {
			return false
		}
	}
}

// nextSignificantToken skips whitespace-only CharData, the pretty-print
// indentation a re-marshaled document introduces but the original may
// not have had.
func nextSignificantToken(dec *xml.Decoder) (xml.Token, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if cd, ok := tok.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		return tok, nil
	}
}

func tokenEqual(a, b xml.Token) bool {
	switch av := a.(type) {
	case xml.StartElement:
		bv, ok := b.(xml.StartElement)
		if !ok || av.Name != bv.Name || len(av.Attr) != len(bv.Attr) {
			return false
		}
		return attrsEqual(av.Attr, bv.Attr)
	case xml.EndElement:
		bv, ok := b.(xml.EndElement)
		return ok && av.Name == bv.Name
	case xml.CharData:
		bv, ok := b.(xml.CharData)
		return ok && string(av) == string(bv)
	default:
		return true
	}
}

// attrsEqual compares two attribute sets regardless of order.
func attrsEqual(a, b []xml.Attr) bool {
	used := make([]bool, len(b))
	for _, attr := range a {
		found := false
		for i, other := range b {
			if !used[i] && attr.Name == other.Name && attr.Value == other.Value {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
