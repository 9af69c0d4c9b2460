package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, ModeMemory, cfg.AuthMode)
	assert.Equal(t, ModeMemory, cfg.LedgerMode)
	assert.Equal(t, 3, cfg.RollsPerTurn)
	assert.False(t, cfg.BlockZeroScores)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.DBPath)
}

func TestLoadFromEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("YATZY_ADDR=:9090\nLEDGER_MODE=sqlite\n"), 0o600))
	// godotenv writes straight into the process environment.
	t.Cleanup(func() {
		os.Unsetenv("YATZY_ADDR")
		os.Unsetenv("LEDGER_MODE")
	})

	t.Setenv("AUTH_MODE", "Local")
	t.Setenv("YATZY_DB_PATH", filepath.Join(dir, "data", "y.db"))
	t.Setenv("ROLLS_PER_TURN", "0")
	t.Setenv("BLOCK_ZERO_SCORES", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load(dotenv)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, ModeSQLite, cfg.AuthMode)
	assert.Equal(t, ModeSQLite, cfg.LedgerMode)
	assert.Equal(t, filepath.Join(dir, "data", "y.db"), cfg.DBPath)
	assert.Equal(t, 0, cfg.RollsPerTurn)
	assert.True(t, cfg.BlockZeroScores)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoadRejectsBadModes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("AUTH_MODE", "ldap")
	_, err := Load(missing)
	assert.ErrorContains(t, err, "AUTH_MODE")

	t.Setenv("AUTH_MODE", "memory")
	t.Setenv("LEDGER_MODE", "postgres")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "LEDGER_DSN")

	t.Setenv("AUTH_DSN", "postgres://u:p@localhost/yatzy")
	cfg, err := Load(missing)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/yatzy", cfg.LedgerDSN)

	t.Setenv("ROLLS_PER_TURN", "-1")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "ROLLS_PER_TURN")
}
