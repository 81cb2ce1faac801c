package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealrecord/pkg/constants"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("driver", "", "")
	flags.String("endpoint", "", "")
	flags.String("dsn", "", "")
	flags.Bool("migrate", false, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "ws://localhost:8000", cfg.Surreal.Endpoint)
	assert.False(t, cfg.Postgres.Migrate)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := []byte(`driver: surrealdb
log_level: debug
surrealdb:
  endpoint: ws://file:8000
  namespace: shop
  database: catalog
postgres:
  dsn: postgres://file
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), yml, 0o600))

	t.Setenv("SURREALRECORD_SURREALDB__NAMESPACE", "env-shop")
	t.Setenv("SURREALRECORD_POSTGRES__DSN", "postgres://env")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--dsn", "postgres://flag", "--migrate"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, DriverSurrealDB, cfg.Driver, "file overrides defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ws://file:8000", cfg.Surreal.Endpoint, "unset flags do not override")
	assert.Equal(t, "env-shop", cfg.Surreal.Namespace, "env overrides file")
	assert.Equal(t, "catalog", cfg.Surreal.Database)
	assert.Equal(t, "postgres://flag", cfg.Postgres.DSN, "flags override env")
	assert.True(t, cfg.Postgres.Migrate)
}

func TestLoadNormalizesDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SURREALRECORD_DRIVER", " Memory ")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Driver: DriverMemory}},
		{name: "surrealdb", cfg: Config{Driver: DriverSurrealDB, Surreal: SurrealConfig{Endpoint: "ws://x", Namespace: "n", Database: "d"}}},
		{name: "surrealdb without database", cfg: Config{Driver: DriverSurrealDB, Surreal: SurrealConfig{Endpoint: "ws://x", Namespace: "n"}}, wantErr: true},
		{name: "postgres", cfg: Config{Driver: DriverPostgres, Postgres: PostgresConfig{DSN: "postgres://x"}}},
		{name: "postgres without dsn", cfg: Config{Driver: DriverPostgres}, wantErr: true},
		{name: "driver is not normalized", cfg: Config{Driver: "MEMORY"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	err := (&Config{Driver: "mysql"}).Validate()
	require.ErrorIs(t, err, constants.ErrUnknownDriver)
}
