package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/core"
)

const testArchiveXML = `<archive>
	<metadataFormats>
		<metadataFormat><metadataPrefix>oai_dc</metadataPrefix></metadataFormat>
	</metadataFormats>
	<records>
		<record><header><identifier>oai:example:1</identifier></header><metadata><dc>one</dc></metadata></record>
		<record><header><identifier>oai:example:2</identifier></header><metadata><dc>two</dc></metadata></record>
	</records>
</archive>`

func writeTestArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.xml")
	require.NoError(t, os.WriteFile(path, []byte(testArchiveXML), 0o644))
	return path
}

func TestStaticProviderIdentityIsArchivePathPrefixed(t *testing.T) {
	s := &StaticProvider{ArchivePath: "/data/a.xml"}
	require.Equal(t, "static:/data/a.xml", s.Identity())
}

func TestStaticProviderIsStaticIsTrue(t *testing.T) {
	require.True(t, (&StaticProvider{}).IsStatic())
}

func TestStaticProviderLoadsArchiveOnlyOnce(t *testing.T) {
	path := writeTestArchive(t)
	s := &StaticProvider{ArchivePath: path}

	prefixes, err := s.ListMetadataFormats()
	require.NoError(t, err)
	require.Equal(t, []string{"oai_dc"}, prefixes)

	// Remove the backing file; a second call must not re-read it.
	require.NoError(t, os.Remove(path))
	prefixes2, err := s.ListMetadataFormats()
	require.NoError(t, err)
	require.Equal(t, prefixes, prefixes2)
}

func TestStaticProviderLoadErrorIsCachedAndWrapsInvalidConfiguration(t *testing.T) {
	s := &StaticProvider{ArchivePath: filepath.Join(t.TempDir(), "missing.xml")}

	_, err1 := s.ListMetadataFormats()
	require.ErrorIs(t, err1, core.ErrInvalidConfiguration)

	_, err2 := s.ListMetadataFormats()
	require.ErrorIs(t, err2, core.ErrInvalidConfiguration)
}

func TestStaticProviderRecordsForPrefixReturnsAllRecords(t *testing.T) {
	s := &StaticProvider{ArchivePath: writeTestArchive(t)}
	records, err := s.RecordsForPrefix("oai_dc")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestStaticProviderGetRecordFindsByIdentifier(t *testing.T) {
	s := &StaticProvider{ArchivePath: writeTestArchive(t)}
	rec, err := s.GetRecord("oai:example:2")
	require.NoError(t, err)
	require.Equal(t, "oai:example:2", rec.Header.Identifier)
}

func TestStaticProviderGetRecordMissingIdentifierFails(t *testing.T) {
	s := &StaticProvider{ArchivePath: writeTestArchive(t)}
	_, err := s.GetRecord("oai:example:missing")
	require.ErrorIs(t, err, core.ErrMissingIdentifier)
}

func TestStaticProviderAllowsPrefixHonorsAllowList(t *testing.T) {
	s := &StaticProvider{AllowedPrefixes: []string{"oai_dc"}}
	require.True(t, s.AllowsPrefix("oai_dc"))
	require.False(t, s.AllowsPrefix("mods"))
}
