package testutil

import (
	"context"
	"io"
	"testing"

	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/store"
)

// OpenDB returns a migrated in-memory SQLite database closed with the test
func OpenDB(t testing.TB) *store.DB {
	t.Helper()

	db, err := store.NewDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return db
}

// Logger returns a logger that discards everything
func Logger(t testing.TB) *logger.Logger {
	l := logger.Init(t.Name(), false, false, io.Discard)
	t.Cleanup(l.Close)
	return l
}
