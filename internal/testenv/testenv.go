// Package testenv provides helpers for tests that need a live backend.
//
// Backends are selected through environment variables. Tests calling these
// helpers are skipped when the variable for their backend is unset.
package testenv

import (
	"context"
	"fmt"
	"os"
	"testing"

	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/surrealdb/surrealrecord/pkg/store/surrealstore"
)

const (
	// EnvSurrealURL is the SurrealDB endpoint, e.g. ws://localhost:8000.
	EnvSurrealURL = "SURREALDB_URL"

	// EnvPostgresDSN is the Postgres connection string.
	EnvPostgresDSN = "SURREALRECORD_POSTGRES_DSN"

	// DefaultNamespace is the namespace integration tests write into.
	DefaultNamespace = "surrealrecord_test"
)

// SurrealConfig returns the connection settings for the live SurrealDB
// instance, skipping t when none is configured.
func SurrealConfig(t testing.TB, database string) surrealstore.Config {
	t.Helper()

	endpoint := os.Getenv(EnvSurrealURL)
	if endpoint == "" {
		t.Skipf("%s is not set", EnvSurrealURL)
	}

	return surrealstore.Config{
		Endpoint:  endpoint,
		Namespace: DefaultNamespace,
		Database:  database,
		Username:  envOr("SURREALDB_USER", "root"),
		Password:  envOr("SURREALDB_PASS", "root"),
	}
}

// PostgresDSN returns the Postgres connection string, skipping t when none
// is configured.
func PostgresDSN(t testing.TB) string {
	t.Helper()

	dsn := os.Getenv(EnvPostgresDSN)
	if dsn == "" {
		t.Skipf("%s is not set", EnvPostgresDSN)
	}
	return dsn
}

// ResetTables removes the given tables so that each test starts empty.
func ResetTables(ctx context.Context, db *surrealdb.DB, tables ...string) error {
	for _, table := range tables {
		// REMOVE TABLE does not accept a parameter for the table name.
		if _, err := surrealdb.Query[[]any](ctx, db, "REMOVE TABLE IF EXISTS "+table, nil); err != nil {
			return fmt.Errorf("failed to remove table %s: %w", table, err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
