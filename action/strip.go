package action

import (
	"context"
	"fmt"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/record"
)

// Strip removes the OAI-PMH envelope wrapper from an already-split
// record, leaving only the payload found inside `<metadata>`.
type Strip struct{}

var _ Action = Strip{}

func (Strip) Kind() string { return KindStrip }

func (Strip) Equal(other Action) bool {
	_, ok := other.(Strip)
	return ok
}

func (Strip) Clone() Action { return Strip{} }

// Perform replaces each record's document with the contents of its
// `<metadata>` element. Fails the batch if a record's structure does
// not contain one.
func (Strip) Perform(ctx context.Context, batch record.Batch) (record.Batch, error) {
	out := make(record.Batch, len(batch))
	for i, in := range batch {
		payloads, err := extractElementsByLocalName(in.Document.Raw, "metadata")
		if err != nil || len(payloads) == 0 {
			return nil, fmt.Errorf("%w: strip: no metadata element in record %q", core.ErrActionFailed, in.ID)
		}
		inner, err := innerXML(payloads[0])
		if err != nil {
			return nil, fmt.Errorf("%w: strip: %v", core.ErrActionFailed, err)
		}
		out[i] = in
		out[i].Document = record.Document{Raw: inner}
	}
	return out, nil
}

// innerXML returns the content inside the outermost element of raw,
// i.e. the <metadata> wrapper itself is discarded and its children kept.
func innerXML(raw []byte) ([]byte, error) {
	return stripOuterElement(raw)
}
