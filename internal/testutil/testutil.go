// Package testutil holds shared test fixtures
package testutil

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgadling/hyperion/internal/store"
)

// NewTestStore creates an in-memory SQLite record store for testing
func NewTestStore(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
