// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"fellowship/internal/store"
)

// NewDB returns a migrated in-memory SQLite database closed at test cleanup.
func NewDB(t testing.TB) *store.DB {
	t.Helper()

	ctx := context.Background()
	db, err := store.NewDB(ctx, "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Clock is a settable time source for services that take a now func.
type Clock struct {
	Now time.Time
}

// Func returns a closure reading the clock's current value.
func (c *Clock) Func() func() time.Time {
	return func() time.Time { return c.Now }
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.Now = c.Now.Add(d)
}
