package action

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/record"
)

func TestFileStoreWritesAtPrefixedPath(t *testing.T) {
	root := t.TempDir()
	store := &FileStore{Root: root}

	require.NoError(t, store.Write("provider-a", "oai_dc", "oai:example:1", []byte("<record/>")))

	data, err := os.ReadFile(filepath.Join(root, "provider-a", "oai_dc", "oai:example:1.xml"))
	require.NoError(t, err)
	require.Equal(t, "<record/>", string(data))
}

func TestFileStoreLeavesNoTempFileBehindOnSuccess(t *testing.T) {
	root := t.TempDir()
	store := &FileStore{Root: root}
	require.NoError(t, store.Write("p", "oai_dc", "id1", []byte("<a/>")))

	entries, err := os.ReadDir(filepath.Join(root, "p", "oai_dc"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "id1.xml", entries[0].Name())
}

func TestSavePerformRejectsUnfinalizedRecord(t *testing.T) {
	s := &Save{Store: &FileStore{Root: t.TempDir()}}
	batch := record.Batch{{IsEnvelope: true, Document: record.Document{Raw: []byte("<a/>")}}}
	_, err := s.Perform(context.Background(), batch)
	require.Error(t, err)
}

func TestSavePerformWritesEveryRecordInBatch(t *testing.T) {
	root := t.TempDir()
	s := &Save{Store: &FileStore{Root: root}}
	batch := record.Batch{
		record.NewFinal("id1", "oai_dc", "providerA", []byte("<a/>")),
		record.NewFinal("id2", "oai_dc", "providerA", []byte("<b/>")),
	}
	out, err := s.Perform(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, batch, out)

	for _, id := range []string{"id1", "id2"} {
		_, err := os.Stat(filepath.Join(root, "providerA", "oai_dc", id+".xml"))
		require.NoError(t, err)
	}
}

func TestSaveCloneSharesStoreButIsDistinctValue(t *testing.T) {
	s := &Save{Store: &FileStore{Root: "/tmp/x"}}
	clone := s.Clone().(*Save)
	require.NotSame(t, s, clone)
	require.Same(t, s.Store, clone.Store)
}
