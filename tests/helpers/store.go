// Package helpers holds shared test fixtures.
package helpers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/repository"
)

// NewTestSQLiteStore returns an in-memory audit store closed at test end.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
