package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/cycle"
	"github.com/oai-harvester/harvester/provider"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesProvidersSequencesAndCycle(t *testing.T) {
	path := writeConfig(t, `<harvester overviewPath="overview.xml">
		<cycle mode="normal" scenario="ListRecords" concurrency="4"/>
		<providers>
			<provider name="p1" baseUrl="http://example.org/oai" timeoutSeconds="30">
				<allowedPrefix>oai_dc</allowedPrefix>
			</provider>
			<provider name="archive" static="true" archivePath="/data/archive.xml"/>
		</providers>
		<actionSequences>
			<actionSequence name="default">
				<input prefix="oai_dc"/>
				<output prefix="oai_dc" type="record"/>
				<action kind="split"/>
				<action kind="strip"/>
				<action kind="save" outputRoot="/out"/>
			</actionSequence>
		</actionSequences>
	</harvester>`)

	doc, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "overview.xml", doc.OverviewPath)
	require.Len(t, doc.Providers, 2)

	providers, err := doc.BuildProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	_, isStatic := providers[1].(*provider.StaticProvider)
	require.True(t, isStatic)

	sequences, err := doc.ActionSequences()
	require.NoError(t, err)
	require.Len(t, sequences, 1)
	require.Len(t, sequences[0].Steps, 3)

	props, err := doc.CycleProperties()
	require.NoError(t, err)
	require.Equal(t, cycle.ModeNormal, props.Mode)
	require.Equal(t, 4, props.Concurrency)
}

func TestLoadRejectsUnknownActionKind(t *testing.T) {
	path := writeConfig(t, `<harvester overviewPath="overview.xml">
		<cycle mode="normal"/>
		<providers><provider name="p1" baseUrl="http://example.org/oai"/></providers>
		<actionSequences>
			<actionSequence name="bad"><action kind="bogus"/></actionSequence>
		</actionSequences>
	</harvester>`)

	doc, err := Load(path)
	require.NoError(t, err)
	_, err = doc.ActionSequences()
	require.Error(t, err)
}

func TestLoadRejectsMissingProviders(t *testing.T) {
	path := writeConfig(t, `<harvester overviewPath="overview.xml"><cycle mode="normal"/></harvester>`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownCycleMode(t *testing.T) {
	path := writeConfig(t, `<harvester overviewPath="overview.xml">
		<cycle mode="bogus"/>
		<providers><provider name="p1" baseUrl="http://example.org/oai"/></providers>
	</harvester>`)
	doc, err := Load(path)
	require.NoError(t, err)
	_, err = doc.CycleProperties()
	require.Error(t, err)
}

func TestStaticProviderMissingArchivePathRejected(t *testing.T) {
	path := writeConfig(t, `<harvester overviewPath="overview.xml">
		<cycle mode="normal"/>
		<providers><provider name="p1" static="true"/></providers>
	</harvester>`)
	doc, err := Load(path)
	require.NoError(t, err)
	_, err = doc.BuildProviders()
	require.Error(t, err)
}
