package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/record"
)

func TestTransformWithNilEngineDefaultsToIdentity(t *testing.T) {
	tr := &Transform{StylesheetPath: "unused.xsl"}
	batch := record.Batch{record.NewFinal("id1", "oai_dc", "originA", []byte("<a>1</a>"))}

	out, err := tr.Perform(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, "<a>1</a>", string(out[0].Document.Raw))
}

type failingEngine struct{}

func (failingEngine) Transform(stylesheetPath string, doc []byte) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestTransformPropagatesEngineError(t *testing.T) {
	tr := &Transform{StylesheetPath: "broken.xsl", Engine: failingEngine{}}
	batch := record.Batch{record.NewFinal("id1", "oai_dc", "originA", []byte("<a/>"))}

	_, err := tr.Perform(context.Background(), batch)
	require.Error(t, err)
}

func TestTransformEqualComparesStylesheetPathOnly(t *testing.T) {
	a := &Transform{StylesheetPath: "same.xsl", Engine: IdentityEngine{}}
	b := &Transform{StylesheetPath: "same.xsl", Engine: failingEngine{}}
	require.True(t, a.Equal(b))

	c := &Transform{StylesheetPath: "other.xsl"}
	require.False(t, a.Equal(c))
}

func TestTransformCloneCopiesStylesheetPath(t *testing.T) {
	orig := &Transform{StylesheetPath: "s.xsl", Engine: IdentityEngine{}}
	clone := orig.Clone().(*Transform)
	require.NotSame(t, orig, clone)
	require.Equal(t, orig.StylesheetPath, clone.StylesheetPath)
}
