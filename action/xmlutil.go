package action

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// stripOuterElement returns the serialized children of raw's single
// root element, discarding the root start/end tag itself. Used by
// Strip to unwrap `<metadata>...</metadata>` down to its payload.
func stripOuterElement(raw []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))

	// Consume the opening root tag.
	var sawRoot bool
	for !sawRoot {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("no root element: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawRoot = true
		}
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break // EOF after the root's matching EndElement
		}
		if se, ok := tok.(xml.StartElement); ok {
			depth++
			_ = se
		}
		if _, ok := tok.(xml.EndElement); ok {
			if depth == 0 {
				break // this is the root's own closing tag
			}
			depth--
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
