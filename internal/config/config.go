// Package config loads TuneMatch settings from defaults, an optional .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rcong315/TuneMatchServer/internal/db"
	"github.com/rcong315/TuneMatchServer/internal/scorer"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	DB       DBConfig       `koanf:"db"`
	Scorer   ScorerConfig   `koanf:"scorer"`
	Importer ImporterConfig `koanf:"importer"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port         int           `koanf:"port"`
	APIKey       string        `koanf:"api_key"`
	CORSOrigins  []string      `koanf:"cors_origins"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DBConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"max_conns"`
}

type ScorerConfig struct {
	URL          string        `koanf:"url"`
	Timeout      time.Duration `koanf:"timeout"`
	DefaultCount int           `koanf:"default_count"`
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

type ImporterConfig struct {
	CSVPath   string `koanf:"csv_path"`
	Workers   int    `koanf:"workers"`
	BatchSize int    `koanf:"batch_size"`
	// Rate is the number of batches started per second; 0 means unlimited.
	Rate float64 `koanf:"rate"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	Debug bool   `koanf:"debug"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			Name:     "tunematch",
			User:     "postgres",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Scorer: ScorerConfig{
			URL:              "http://localhost:5000",
			Timeout:          10 * time.Second,
			DefaultCount:     5,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Importer: ImporterConfig{
			CSVPath:   "data/spotify_songs.csv",
			Workers:   8,
			BatchSize: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if c.DB.Host == "" {
		errs = append(errs, errors.New("db.host is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("db.name is required"))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("db.user is required"))
	}
	if c.DB.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("db.max_conns must be at least 1, got %d", c.DB.MaxConns))
	}
	if u, err := url.Parse(c.Scorer.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("scorer.url must be an absolute URL, got %q", c.Scorer.URL))
	}
	if c.Scorer.Timeout <= 0 {
		errs = append(errs, errors.New("scorer.timeout must be positive"))
	}
	if c.Scorer.DefaultCount < 1 || c.Scorer.DefaultCount > 50 {
		errs = append(errs, fmt.Errorf("scorer.default_count must be between 1 and 50, got %d", c.Scorer.DefaultCount))
	}
	if c.Importer.Workers < 1 || c.Importer.BatchSize < 1 {
		errs = append(errs, errors.New("importer.workers and importer.batch_size must be at least 1"))
	}
	if c.Importer.Rate < 0 {
		errs = append(errs, errors.New("importer.rate must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// ConnConfig returns the database connection settings.
func (c *Config) ConnConfig() db.ConnConfig {
	return db.ConnConfig{
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		Name:     c.DB.Name,
		User:     c.DB.User,
		Password: c.DB.Password,
		SSLMode:  c.DB.SSLMode,
		MaxConns: c.DB.MaxConns,
	}
}

// ScorerClientConfig returns the scorer client settings.
func (c *Config) ScorerClientConfig() scorer.Config {
	return scorer.Config{
		BaseURL:          c.Scorer.URL,
		Timeout:          c.Scorer.Timeout,
		FailureThreshold: c.Scorer.FailureThreshold,
		OpenTimeout:      c.Scorer.OpenTimeout,
	}
}

// LogLevel is the effective log level; DEBUG=true forces debug.
func (c *Config) LogLevel() string {
	if c.Log.Debug {
		return "debug"
	}
	return strings.ToLower(c.Log.Level)
}
