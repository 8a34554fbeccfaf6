package action

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/record"
)

// Store is the filesystem port a harvest targets: "file-system storage
// of final records, contracts only" — Save depends on the interface,
// never a concrete filesystem call. FileStore below is the stdlib-backed
// default implementation; no storage library in the retrieval pack
// targets a local save-tree, so stdlib os/filepath is the justified
// choice here (see DESIGN.md).
type Store interface {
	// Write persists doc under the given provider/prefix/id coordinates,
	// atomically: callers must never observe a partially-written file.
	Write(provider, prefix, id string, doc []byte) error
}

// FileStore writes records to <Root>/<provider>/<prefix>/<id>.xml.
type FileStore struct {
	Root string
}

var _ Store = (*FileStore)(nil)

// Write creates the destination directory if needed, writes doc to a
// temp file in the same directory, then renames it into place —
// atomic per-file.
func (f *FileStore) Write(providerName, prefix, id string, doc []byte) error {
	dir := filepath.Join(f.Root, providerName, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", core.ErrPersistenceFailed, dir, err)
	}

	final := filepath.Join(dir, id+".xml")
	tmp, err := os.CreateTemp(dir, ".tmp-*.xml")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", core.ErrPersistenceFailed, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", core.ErrPersistenceFailed, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %v", core.ErrPersistenceFailed, tmpPath, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s -> %s: %v", core.ErrPersistenceFailed, tmpPath, final, err)
	}
	return nil
}

// Save persists each finalized record to the configured Store. It is
// normally the last step of an ActionSequence.
type Save struct {
	Store Store
}

var _ Action = (*Save)(nil)

func (*Save) Kind() string { return KindSave }

func (s *Save) Equal(other Action) bool {
	_, ok := other.(*Save)
	return ok // the store is wiring, not a value parameter
}

// Clone shares the underlying Store (it is safe for concurrent use —
// each Write targets a distinct temp file) but returns a distinct Save
// value, consistent with the one-clone-per-worker convention.
func (s *Save) Clone() Action { return &Save{Store: s.Store} }

// Perform writes every record in batch and returns it unchanged: Save
// is a pipeline sink, not a transform.
func (s *Save) Perform(ctx context.Context, batch record.Batch) (record.Batch, error) {
	for _, rec := range batch {
		if !rec.Finalized() {
			return nil, fmt.Errorf("%w: save: record %q is not finalized", core.ErrActionFailed, rec.ID)
		}
		if err := s.Store.Write(rec.Origin, rec.Prefix, rec.ID, rec.Document.Raw); err != nil {
			return nil, err
		}
	}
	return batch, nil
}
