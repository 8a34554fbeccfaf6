package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/record"
)

func TestSplitProducesOneRecordPerElement(t *testing.T) {
	envelope := []byte(`<ListRecords>
		<record><header><identifier>a</identifier></header><metadata><dc>1</dc></metadata></record>
		<record><header><identifier>b</identifier></header><metadata><dc>2</dc></metadata></record>
	</ListRecords>`)

	out, err := Split{}.Perform(context.Background(), record.Batch{record.NewEnvelope("oai_dc", "origin", envelope)})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "b", out[1].ID)
}

func TestSplitIgnoresElementNamespace(t *testing.T) {
	envelope := []byte(`<oai:ListRecords xmlns:oai="http://www.openarchives.org/OAI/2.0/">
		<oai:record><oai:header><oai:identifier>a</oai:identifier></oai:header><oai:metadata><dc>1</dc></oai:metadata></oai:record>
	</oai:ListRecords>`)

	out, err := Split{}.Perform(context.Background(), record.Batch{record.NewEnvelope("oai_dc", "origin", envelope)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "a", out[0].ID)
}

func TestSplitEmptyEnvelopeFailsWithNoContent(t *testing.T) {
	envelope := []byte(`<ListRecords></ListRecords>`)
	_, err := Split{}.Perform(context.Background(), record.Batch{record.NewEnvelope("oai_dc", "origin", envelope)})
	require.ErrorIs(t, err, core.ErrNoContent)
}

func TestSplitMissingIdentifierFails(t *testing.T) {
	envelope := []byte(`<ListRecords><record><metadata><dc/></metadata></record></ListRecords>`)
	_, err := Split{}.Perform(context.Background(), record.Batch{record.NewEnvelope("oai_dc", "origin", envelope)})
	require.ErrorIs(t, err, core.ErrMissingIdentifier)
}

func TestSplitClonedRecordsDoNotShareBackingArray(t *testing.T) {
	envelope := []byte(`<ListRecords>
		<record><header><identifier>a</identifier></header><metadata><dc>1</dc></metadata></record>
		<record><header><identifier>b</identifier></header><metadata><dc>2</dc></metadata></record>
	</ListRecords>`)

	out, err := Split{}.Perform(context.Background(), record.Batch{record.NewEnvelope("oai_dc", "origin", envelope)})
	require.NoError(t, err)
	require.NotEqual(t, &out[0].Document.Raw[0], &out[1].Document.Raw[0])
}
