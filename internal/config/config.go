package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

const (
	defaultTimezone = "UTC"

	portEnv      = "PORT"
	redisAddrEnv = "REDIS_ADDR"
	postgresEnv  = "POSTGRES_URL"
	sqliteEnv    = "SQLITE_PATH"
	contentEnv   = "CONTENT_DIR"
	jwtSecretEnv = "ADMIN_JWT_SECRET"
	logLevelEnv  = "LOG_LEVEL"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Content struct {
		Dir        string `yaml:"dir"`
		SeedSample bool   `yaml:"seed_sample"`
	} `yaml:"content"`
	Puzzle struct {
		TTL string `yaml:"ttl"`
	} `yaml:"puzzle"`
	Store struct {
		LookupTimeout string `yaml:"lookup_timeout"`
		Retries       int    `yaml:"retries"`
		Backoff       string `yaml:"backoff"`
	} `yaml:"store"`
	Game struct {
		Timezone        string `yaml:"timezone"`
		ExposeAnswerKey bool   `yaml:"expose_answer_key"`
		LedgerTTL       string `yaml:"ledger_ttl"`
	} `yaml:"game"`
	Scoring ScoringConfig `yaml:"scoring"`
	HTTP    struct {
		SubmitRPS      float64  `yaml:"submit_rps"`
		SubmitBurst    int      `yaml:"submit_burst"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Admin struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"admin"`
	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`

	// Source is the file the config was read from; empty when defaults were used.
	Source string `yaml:"-"`
}

// ScoringConfig is the rarity weight table as decimal strings.
type ScoringConfig struct {
	Weights  map[string]string `yaml:"weights"`
	MaxScore string            `yaml:"max_score"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = "5s"
	cfg.Redis.TTL = "48h"
	cfg.Content.SeedSample = true
	cfg.Puzzle.TTL = "10m"
	cfg.Store.LookupTimeout = "2s"
	cfg.Store.Retries = 1
	cfg.Store.Backoff = "100ms"
	cfg.Game.Timezone = defaultTimezone
	cfg.Game.LedgerTTL = "48h"
	cfg.Scoring = ScoringConfig{
		Weights: map[string]string{
			string(domain.RarityRare):     "0.5",
			string(domain.RarityModerate): "0.3",
			string(domain.RarityCommon):   "0.1",
		},
		MaxScore: "7.5",
	}
	cfg.HTTP.SubmitRPS = 2
	cfg.HTTP.SubmitBurst = 5
	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 50
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 14
	return cfg
}

// Load reads YAML config from path on top of the defaults and applies
// environment overrides. A missing file is not an error; Source stays empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
			cfg.Source = path
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(postgresEnv); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv(sqliteEnv); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv(contentEnv); v != "" {
		c.Content.Dir = v
	}
	if v := os.Getenv(jwtSecretEnv); v != "" {
		c.Admin.JWTSecret = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks settings that would otherwise fail late or silently.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port %q is not a number", c.Server.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Store.Retries < 0 {
		return fmt.Errorf("store.retries must not be negative")
	}
	table, err := c.Scoring.Table()
	if err != nil {
		return err
	}
	return table.Validate()
}

// Location resolves game.timezone, the zone that decides the current puzzle date.
func (c Config) Location() (*time.Location, error) {
	tz := c.Game.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("game.timezone: %w", err)
	}
	return loc, nil
}

// RetryPolicy builds the puzzle lookup policy from the store section.
func (c Config) RetryPolicy() app.RetryPolicy {
	p := app.DefaultRetryPolicy()
	p.AttemptTimeout = TTLDuration(c.Store.LookupTimeout, p.AttemptTimeout)
	p.Retries = uint64(c.Store.Retries)
	p.InitialBackoff = TTLDuration(c.Store.Backoff, p.InitialBackoff)
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// Table parses the weights into a scoring table.
func (s ScoringConfig) Table() (app.ScoringTable, error) {
	table := app.ScoringTable{Weights: make(map[domain.Rarity]decimal.Decimal, len(s.Weights))}
	for name, raw := range s.Weights {
		r := domain.Rarity(name)
		if !r.Valid() {
			return app.ScoringTable{}, fmt.Errorf("scoring.weights: unknown rarity %q", name)
		}
		w, err := decimal.NewFromString(raw)
		if err != nil {
			return app.ScoringTable{}, fmt.Errorf("scoring.weights.%s: %w", name, err)
		}
		table.Weights[r] = w
	}
	maxScore, err := decimal.NewFromString(s.MaxScore)
	if err != nil {
		return app.ScoringTable{}, fmt.Errorf("scoring.max_score: %w", err)
	}
	table.MaxScore = maxScore
	return table, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
