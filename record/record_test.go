package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentCloneIsIndependent(t *testing.T) {
	d := Document{Raw: []byte("<a>1</a>")}
	cp := d.Clone()

	cp.Raw[0] = 'X'
	require.Equal(t, byte('<'), d.Raw[0], "mutating the clone must not affect the original")
	require.NotEqual(t, string(d.Raw), string(cp.Raw))
}

func TestFinalizedRequiresNoEnvelopeOrListAndAnID(t *testing.T) {
	cases := []struct {
		name string
		r    Record
		want bool
	}{
		{"envelope", Record{ID: "x", IsEnvelope: true}, false},
		{"list", Record{ID: "x", IsList: true}, false},
		{"no id", Record{}, false},
		{"finalized", Record{ID: "x"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.r.Finalized())
		})
	}
}

func TestNewEnvelopeStartsAsEnvelopeAndList(t *testing.T) {
	r := NewEnvelope("oai_dc", "http://example.org/oai", []byte("<ListRecords/>"))
	require.True(t, r.IsEnvelope)
	require.True(t, r.IsList)
	require.False(t, r.Finalized())
}

func TestNewFinalIsImmediatelyFinalized(t *testing.T) {
	r := NewFinal("oai:example:1", "oai_dc", "http://example.org/oai", []byte("<record/>"))
	require.True(t, r.Finalized())
	require.Equal(t, "oai:example:1", r.ID)
}

func TestEqualXMLIgnoresAttributeOrderAndWhitespace(t *testing.T) {
	a := []byte(`<record id="1" kind="a"> <title>Foo</title> </record>`)
	b := []byte(`<record kind="a" id="1"><title>Foo</title></record>`)
	require.True(t, EqualXML(a, b))
}

func TestEqualXMLDetectsTextDifference(t *testing.T) {
	a := []byte(`<title>Foo</title>`)
	b := []byte(`<title>Bar</title>`)
	require.False(t, EqualXML(a, b))
}

func TestEqualXMLDetectsStructuralDifference(t *testing.T) {
	a := []byte(`<a><b/></a>`)
	b := []byte(`<a><c/></a>`)
	require.False(t, EqualXML(a, b))
}
