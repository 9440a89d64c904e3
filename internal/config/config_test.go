package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kansuler/pggateway/internal/config"
)

func TestLoad_DefaultsWhenNoFileOrEnv(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxSessions)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2, cfg.PoolMin)
	assert.Equal(t, 10, cfg.PoolMax)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pggateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_sessions: 25\ndatabase:\n  host: db.internal\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxSessions)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pggateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_sessions: 25\n"), 0o600))

	t.Setenv("PGGATEWAY_MAX_SESSIONS", "40")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.MaxSessions)
}

func TestValidate_RejectsInvertedPoolBounds(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.PoolMin = 20
	cfg.PoolMax = 5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveMaxSessions(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.MaxSessions = 0
	assert.Error(t, cfg.Validate())
}
