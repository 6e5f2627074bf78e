// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/absurdly/internal/models"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "PG_HOST", "PG_PORT", "PG_DATABASE", "POSTGRES_USER",
		"POSTGRES_PASSWORD", "REDIS_ADDR", "REDIS_DB", "HISTORY_QUEUE_NAME", "LOG_LEVEL",
		"LOG_FORMAT", "TOKEN_EXPIRE_TIME", "ALLOWED_ORIGINS", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "absurdly_rounds", cfg.HistoryQueue)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.TokenTTL)
	assert.Equal(t, models.DefaultGameSettings(), cfg.Game.Settings)
	assert.Equal(t, 5, cfg.Game.PresentationSeconds)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("PG_DATABASE", "cards")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TOKEN_EXPIRE_TIME", "24h")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://u:p@db:5432/cards", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)

	t.Setenv("DATABASE_URL", "postgres://direct/db")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://direct/db", cfg.DatabaseURL)
}

func TestLoadBadTokenExpiry(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_EXPIRE_TIME", "whenever")
	_, err := Load()
	assert.Error(t, err)
}

func writeFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "absurdly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFileOverridesGameDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeFile(t, `
game:
  presentation_seconds: 3
  settings:
    cards_per_player: 7
    voting_time: 30
`))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Game.PresentationSeconds)
	assert.Equal(t, 7, cfg.Game.Settings.CardsPerPlayer)
	assert.Equal(t, 30, cfg.Game.Settings.VotingSeconds)
	assert.Equal(t, 15, cfg.Game.Settings.SelectionSeconds, "unset fields keep defaults")
	assert.Equal(t, 10, cfg.Game.Settings.MaxPlayers)
}

func TestLoadConfigFileRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeFile(t, "game:\n  settings:\n    max_players: 1\n"))
	_, err := Load()
	assert.ErrorIs(t, err, models.ErrInvalidSettings)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}
