package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
	return dir
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, *cfg)
}

func TestLoadConfigOverridesAndKeepsDefaults(t *testing.T) {
	dir := writeConfig(t, "base_dir: apps\nmax_snapshots: 5\nlog_level: debug\ndisable_watch: true\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "apps", cfg.BaseDir)
	assert.Equal(t, 5, cfg.MaxSnapshots)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DisableWatch)
	assert.Equal(t, ".xcodeproj-mcp", cfg.PersistenceDir)
	assert.Equal(t, "Frameworks", cfg.FrameworksGroup)

	assert.Equal(t, filepath.Join(dir, "apps"), cfg.ResolveBase(dir))
	assert.Equal(t, filepath.Join(dir, ".xcodeproj-mcp"), cfg.JournalDir(dir))
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"negative snapshots": "max_snapshots: -1\n",
		"unknown level":      "log_level: chatty\n",
		"empty group":        "frameworks_group: \"\"\n",
		"bad address":        "http_addr: not an address\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "max_snapshots: [1, 2\n"))
	assert.Error(t, err)
}

func TestAbsolutePathsAreKept(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "journal")
	cfg := DefaultConfig
	cfg.PersistenceDir = abs
	cfg.BaseDir = abs
	assert.Equal(t, abs, cfg.JournalDir("/elsewhere"))
	assert.Equal(t, abs, cfg.ResolveBase("/elsewhere"))
}

func TestLoadFileExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("disable_journal: true\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.DisableJournal)
	assert.Equal(t, 20, cfg.MaxSnapshots)
}
