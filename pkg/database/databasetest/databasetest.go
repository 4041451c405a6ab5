// Package databasetest opens throwaway SQLite pools with the production
// schema applied, for package tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
)

// New returns a migrated pool backed by a file in t.TempDir. The pool is
// closed when the test ends.
func New(t testing.TB) *database.Pool {
	t.Helper()

	ctx := context.Background()
	pool, err := database.Open(ctx, database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return pool
}
