// Package testutil provides shared test helpers: a temporary settings
// database and an in-memory fake of the posts API.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/postdeck/internal/settings"
)

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestSettings creates a temporary settings database that is automatically cleaned up.
func TestSettings(t *testing.T) *settings.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "postdeck-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := settings.Open(dbFile.Name(), Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
