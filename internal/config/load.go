package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvFiles are the .env locations tried by Load, in order.
var DefaultEnvFiles = []string{".env", "../../.env"}

// Load builds the configuration from defaults, the first .env file found
// among envFiles (DefaultEnvFiles when none are given) and the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// DB_HOST -> db.host, SCORER_URL -> scorer.url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(paths []string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":                 "server.port",
	"api_key":              "server.api_key",
	"tunematch_api_key":    "server.api_key",
	"cors_origins":         "server.cors_origins",
	"server_read_timeout":  "server.read_timeout",
	"server_write_timeout": "server.write_timeout",

	"db_host":      "db.host",
	"db_port":      "db.port",
	"db_name":      "db.name",
	"db_user":      "db.user",
	"db_password":  "db.password",
	"db_sslmode":   "db.sslmode",
	"db_max_conns": "db.max_conns",

	"scorer_url":               "scorer.url",
	"scorer_timeout":           "scorer.timeout",
	"scorer_default_count":     "scorer.default_count",
	"scorer_failure_threshold": "scorer.failure_threshold",
	"scorer_open_timeout":      "scorer.open_timeout",

	"importer_csv_path":   "importer.csv_path",
	"importer_workers":    "importer.workers",
	"importer_batch_size": "importer.batch_size",
	"importer_rate":       "importer.rate",

	"log_level": "log.level",
	"debug":     "log.debug",
}

// envTransformFunc maps known environment variables to config paths.
// Unknown variables map to "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
