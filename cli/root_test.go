package cli

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/simreplay/internal/fetcher"
	"github.com/evalgo/simreplay/internal/runner"
)

func TestRuntimeOverridesResolveThroughViper(t *testing.T) {
	t.Setenv("SIM_RUN_LOCAL_APP", "")
	t.Setenv("SIM_RUN_FIXTURES_DIR", "")
	t.Setenv("SIM_RUN_OUTPUT_DIR", "")

	// with nothing set, the flag defaults flow through the bindings.
	assert.Equal(t, "", viper.GetString("local_app"))
	assert.Equal(t, ".", viper.GetString("output_dir"))

	t.Setenv("SIM_RUN_LOCAL_APP", "http://candidate:9999")
	t.Setenv("SIM_RUN_OUTPUT_DIR", "/tmp/sim-reports")
	assert.Equal(t, "http://candidate:9999", viper.GetString("local_app"))
	assert.Equal(t, "/tmp/sim-reports", viper.GetString("output_dir"))
}

func TestBuildSourceDefaultsToLocal(t *testing.T) {
	src, closeFn, err := buildSource(runner.SimConfig{FixturesDir: "./fixtures"})
	require.NoError(t, err)
	defer closeFn()
	local, ok := src.(*fetcher.LocalSource)
	require.True(t, ok)
	assert.Equal(t, "./fixtures", local.Root)
}

func TestBuildSourceRejectsUnknownType(t *testing.T) {
	_, closeFn, err := buildSource(runner.SimConfig{Source: runner.SourceConfig{Type: "ftp"}})
	defer closeFn()
	require.Error(t, err)
}

func TestOpenManifestSkippedWithoutCacheDir(t *testing.T) {
	m, err := openManifest(runner.SimConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestOpenManifestCreatesUnderCacheDir(t *testing.T) {
	dir := t.TempDir()
	m, err := openManifest(runner.SimConfig{CacheDir: dir})
	require.NoError(t, err)
	require.NotNil(t, m)
	defer m.Close()
	assert.FileExists(t, filepath.Join(dir, "manifest.db"))
}
