package repositories_test

import (
	"context"
	_ "embed"
	"io"
	"path/filepath"
	"testing"

	"github.com/myrjola/manuscript/internal/sqlite"
	"github.com/myrjola/manuscript/internal/testhelpers"
)

//go:embed testdata/fixtures.sql
var testFixtures string

// newTestDB creates a new in-memory database with the fixtures for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx := context.Background()
	dbs, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	// Add test data
	if _, err = dbs.ReadWrite.ExecContext(ctx, testFixtures); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err = dbs.Close(); err != nil {
			t.Error(err)
		}
	})

	return dbs
}

// newBenchmarkDB creates a file backed database for benchmarking purposes.
func newBenchmarkDB(b *testing.B) *sqlite.Database {
	b.Helper()
	ctx := context.Background()
	dbs, err := sqlite.NewDatabase(ctx, filepath.Join(b.TempDir(), "benchmark.sqlite3"),
		testhelpers.NewLogger(io.Discard))
	if err != nil {
		b.Fatal(err)
	}
	if _, err = dbs.ReadWrite.ExecContext(ctx, testFixtures); err != nil {
		b.Fatal(err)
	}

	b.Cleanup(func() {
		if err = dbs.Close(); err != nil {
			b.Error(err)
		}
	})

	return dbs
}
