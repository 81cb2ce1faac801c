// Package config loads the surrealrecord CLI configuration.
//
// Values are layered, lowest precedence first: defaults, the YAML config
// file, SURREALRECORD_ environment variables and explicitly set flags.
// Nested keys are addressed in the environment with a double underscore,
// e.g. SURREALRECORD_SURREALDB__ENDPOINT.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/surrealdb/surrealrecord/pkg/constants"
)

const (
	DriverMemory    = "memory"
	DriverSurrealDB = "surrealdb"
	DriverPostgres  = "postgres"

	// DefaultFile is looked up in the working directory when no config file
	// is given.
	DefaultFile = "surrealrecord.yaml"

	envPrefix = "SURREALRECORD_"
)

type Config struct {
	Driver   string         `koanf:"driver"`
	LogLevel string         `koanf:"log_level"`
	LogFile  string         `koanf:"log_file"`
	Seed     string         `koanf:"seed"`
	Surreal  SurrealConfig  `koanf:"surrealdb"`
	Postgres PostgresConfig `koanf:"postgres"`
}

type SurrealConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Namespace string `koanf:"namespace"`
	Database  string `koanf:"database"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
}

type PostgresConfig struct {
	DSN     string `koanf:"dsn"`
	Migrate bool   `koanf:"migrate"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"driver":    "driver",
	"log-level": "log_level",
	"log-file":  "log_file",
	"seed":      "seed",
	"endpoint":  "surrealdb.endpoint",
	"namespace": "surrealdb.namespace",
	"database":  "surrealdb.database",
	"username":  "surrealdb.username",
	"password":  "surrealdb.password",
	"dsn":       "postgres.dsn",
	"migrate":   "postgres.migrate",
}

func defaults() map[string]any {
	return map[string]any{
		"driver":              DriverMemory,
		"log_level":           "warn",
		"surrealdb.endpoint":  "ws://localhost:8000",
		"surrealdb.namespace": "surrealrecord",
		"surrealdb.database":  "surrealrecord",
		"postgres.migrate":    false,
	}
}

// Load reads the configuration. cfgFile may be empty, in which case
// DefaultFile is used when it exists. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			cfgFile = DefaultFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// SURREALRECORD_SURREALDB__ENDPOINT -> surrealdb.endpoint
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	return &cfg, nil
}

// Validate checks the settings required by the selected driver. Driver
// names are matched exactly; Load lowercases them.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverSurrealDB:
		if c.Surreal.Endpoint == "" {
			return fmt.Errorf("surrealdb endpoint is required")
		}
		if c.Surreal.Namespace == "" || c.Surreal.Database == "" {
			return fmt.Errorf("surrealdb namespace and database are required")
		}
		return nil
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres dsn is required")
		}
		return nil
	}
	return fmt.Errorf("%w: %q", constants.ErrUnknownDriver, c.Driver)
}
