package cycle

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oai-harvester/harvester/core"
)

// overviewDocument is the on-disk shape of the persistent overview
// file: one <endpoint> element per provider, timestamps as ISO-8601
// date-times via time.Time's default XML marshaling.
type overviewDocument struct {
	XMLName   xml.Name    `xml:"overview"`
	Endpoints []*Endpoint `xml:"endpoint"`
}

// loadOverview reads and parses the overview file at path. A missing
// file is not an error — a fresh cycle starts with no known endpoints —
// but a malformed one is a configuration error.
func loadOverview(path string) ([]*Endpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading overview %s: %v", core.ErrInvalidConfiguration, path, err)
	}
	var doc overviewDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing overview %s: %v", core.ErrInvalidConfiguration, path, err)
	}
	return doc.Endpoints, nil
}

// saveOverview writes endpoints to path atomically: a temp file in the
// same directory, then a rename, matching action.FileStore's approach
// so a crash mid-write never leaves a truncated overview.
func saveOverview(path string, endpoints []*Endpoint) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", core.ErrPersistenceFailed, dir, err)
	}

	data, err := xml.MarshalIndent(overviewDocument{Endpoints: endpoints}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal overview: %v", core.ErrPersistenceFailed, err)
	}

	tmp, err := os.CreateTemp(dir, ".overview-*.xml")
	if err != nil {
		return fmt.Errorf("%w: create temp overview: %v", core.ErrPersistenceFailed, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write overview: %v", core.ErrPersistenceFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close overview: %v", core.ErrPersistenceFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename overview into place: %v", core.ErrPersistenceFailed, err)
	}
	return nil
}
