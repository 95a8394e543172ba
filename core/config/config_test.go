package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "community", cfg.Sync.Destination)
	assert.Equal(t, "strict", cfg.Sync.UnknownCodePolicy)
	assert.Equal(t, time.Second, cfg.Sync.ItemDelayMin)
	assert.Equal(t, 5*time.Second, cfg.Sync.ItemDelayMax)
	assert.Equal(t, 15*time.Second, cfg.Sync.PageDelay)
	assert.False(t, cfg.Sync.DryRun)
	assert.Empty(t, cfg.Sync.KnownBad)
	assert.Equal(t, 100, cfg.Catalog.PageSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("SYNC_DRY_RUN", "true")
	t.Setenv("SYNC_PAGE_DELAY", "2s")
	t.Setenv("SYNC_UNKNOWN_CODE_PREFIXES", "INFR,EPCC")
	t.Setenv("CATALOG_ACADEMIC_YEAR", "2023")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.Sync.DryRun)
	assert.Equal(t, 2*time.Second, cfg.Sync.PageDelay)
	assert.Equal(t, []string{"INFR", "EPCC"}, cfg.Sync.UnknownCodePrefixes)
	assert.Equal(t, "2023", cfg.Catalog.AcademicYear)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DESTINATION_API_KEY=secret\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DESTINATION_API_KEY")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Destination.ApiKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}
