// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jason-s-yu/absurdly/internal/auth"
	"github.com/jason-s-yu/absurdly/internal/cache"
	"github.com/jason-s-yu/absurdly/internal/game"
	"github.com/jason-s-yu/absurdly/internal/models"
)

// Config is the process configuration, read from the environment and an
// optional YAML file for game defaults.
type Config struct {
	Port           string
	DatabaseURL    string
	RedisAddr      string
	RedisDB        int
	HistoryQueue   string
	LogLevel       string
	LogFormat      string
	TokenTTL       time.Duration
	AllowedOrigins []string

	Game GameConfig
}

// GameConfig holds the defaults every new session starts with.
type GameConfig struct {
	Settings            models.GameSettings `yaml:"settings"`
	PresentationSeconds int                 `yaml:"presentation_seconds"`
}

// Load builds a Config from the environment. CONFIG_FILE, when set, names a YAML
// file whose game section overrides the built-in defaults.
func Load() (*Config, error) {
	ttl, err := auth.ParseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    databaseURL(),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		HistoryQueue:   getEnv("HISTORY_QUEUE_NAME", cache.DefaultQueueName),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		TokenTTL:       ttl,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		Game: GameConfig{
			Settings:            models.DefaultGameSettings(),
			PresentationSeconds: game.DefaultPresentationSeconds,
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.Game.loadFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

type fileConfig struct {
	Game *GameConfig `yaml:"game"`
}

// loadFile overlays the file's game section onto g. Fields the file leaves out
// keep their current values.
func (g *GameConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	file := fileConfig{Game: g}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := g.Settings.Validate(); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if g.PresentationSeconds < 1 || g.PresentationSeconds > models.MaxPhaseSeconds {
		return fmt.Errorf("config file %s: presentation_seconds must be between 1 and %d", path, models.MaxPhaseSeconds)
	}
	return nil
}

// databaseURL prefers DATABASE_URL and falls back to the discrete POSTGRES_* and
// PG_* variables. It returns "" when neither is configured.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("PG_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getEnv("PG_PORT", "5432"),
		os.Getenv("PG_DATABASE"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
