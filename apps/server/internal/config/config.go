package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

const defaultLocalDBName = "yatzy_local.db"

// Config is the server configuration, read from the environment.
type Config struct {
	Addr string `env:"YATZY_ADDR" envDefault:":8080"`

	AuthMode   string `env:"AUTH_MODE"   envDefault:"memory"`
	LedgerMode string `env:"LEDGER_MODE" envDefault:"memory"`
	// Shared by the sqlite auth and ledger backends.
	DBPath    string `env:"YATZY_DB_PATH"`
	AuthDSN   string `env:"AUTH_DSN"`
	LedgerDSN string `env:"LEDGER_DSN"`

	// Empty keeps the leaderboard in memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"REDIS_LEADERBOARD_KEY" envDefault:"yatzy:leaderboard"`

	SessionTTL  time.Duration `env:"SESSION_TTL"       envDefault:"720h"`
	IdleTimeout time.Duration `env:"GAME_IDLE_TIMEOUT" envDefault:"30m"`
	BotDelay    time.Duration `env:"BOT_STEP_DELAY"    envDefault:"300ms"`

	RollsPerTurn    int  `env:"ROLLS_PER_TURN"    envDefault:"3"`
	BlockZeroScores bool `env:"BLOCK_ZERO_SCORES" envDefault:"false"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL"       envDefault:"info"`
}

// Load reads an optional .env file and then parses the environment.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.AuthMode = normalizeMode(c.AuthMode)
	c.LedgerMode = normalizeMode(c.LedgerMode)

	switch c.AuthMode {
	case ModeMemory, ModeSQLite, ModePostgres:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q (supported: %s, %s, %s)", c.AuthMode, ModeMemory, ModeSQLite, ModePostgres)
	}
	switch c.LedgerMode {
	case ModeMemory, ModeSQLite, ModePostgres:
	default:
		return fmt.Errorf("invalid LEDGER_MODE %q (supported: %s, %s, %s)", c.LedgerMode, ModeMemory, ModeSQLite, ModePostgres)
	}
	if c.AuthMode == ModePostgres && c.AuthDSN == "" {
		return errors.New("AUTH_DSN is required for postgres auth")
	}
	if c.LedgerMode == ModePostgres && c.LedgerDSN == "" {
		if c.AuthDSN == "" {
			return errors.New("LEDGER_DSN is required for postgres ledger")
		}
		c.LedgerDSN = c.AuthDSN
	}
	if c.RollsPerTurn < 0 {
		return fmt.Errorf("invalid ROLLS_PER_TURN %d", c.RollsPerTurn)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL %s", c.SessionTTL)
	}

	if c.DBPath == "" && (c.AuthMode == ModeSQLite || c.LedgerMode == ModeSQLite) {
		dir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		c.DBPath = filepath.Join(dir, "YatzyLite", defaultLocalDBName)
	}
	if c.DBPath != "" && c.DBPath != ":memory:" {
		c.DBPath = filepath.Clean(c.DBPath)
	}
	return nil
}

func normalizeMode(raw string) string {
	switch m := strings.ToLower(strings.TrimSpace(raw)); m {
	case "", "mem":
		return ModeMemory
	case "local", "sqlite3":
		return ModeSQLite
	case "db", "postgresql", "pg":
		return ModePostgres
	default:
		return m
	}
}

// ConfigureLogging applies LOG_LEVEL to the standard logrus logger.
func (c Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("component", "config").Warnf("unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
