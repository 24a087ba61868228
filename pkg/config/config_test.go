package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GQLCORE_DATA_DIR", "/tmp/custom")
	t.Setenv("GQLCORE_CACHE_L1_ENTRIES", "42")
	t.Setenv("GQLCORE_WAL_SYNC_WRITES", "true")

	cfg := LoadFromEnv(Default())
	assert.Equal(t, "/tmp/custom", cfg.Catalog.DataDir)
	assert.Equal(t, 42, cfg.Cache.ResultL1MaxEntries)
	assert.True(t, cfg.Txn.SyncWrites)
}

func TestLoadFromEnvIgnoresUnsetVars(t *testing.T) {
	cfg := LoadFromEnv(Default())
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gqlcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  data_dir: /var/lib/gqlcore
cache:
  result_l1_max_entries: 2000
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/gqlcore", cfg.Catalog.DataDir)
	assert.Equal(t, 2000, cfg.Cache.ResultL1MaxEntries)
	assert.Equal(t, Default().Cache.ResultL2MaxEntries, cfg.Cache.ResultL2MaxEntries)
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := Default()
	cfg.Catalog.DataDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveCacheSize(t *testing.T) {
	cfg := Default()
	cfg.Cache.ResultL1MaxEntries = 0
	assert.Error(t, cfg.Validate())
}
