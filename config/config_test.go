package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledgerstore.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
ledger_root = "/var/lib/ledgerstore"
cache_size = 500
retry_max_elapsed = "5s"
lock_timeout = "10s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ledgerstore", cfg.LedgerRoot)
	assert.Equal(t, 500, cfg.CacheSize)
	assert.Equal(t, Duration(5*time.Second), cfg.RetryMaxElapsed)
	assert.Equal(t, Duration(10*time.Second), cfg.LockTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledgerstore.toml")
	require.NoError(t, os.WriteFile(path, []byte(`ledger_root = "/from-file"`), 0o600))

	t.Setenv("LEDGERSTORE_LEDGER_ROOT", "/from-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.LedgerRoot)
}
