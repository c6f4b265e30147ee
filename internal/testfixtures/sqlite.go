package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/physio-agenda/internal/persistence"
	"github.com/example/physio-agenda/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite database
// for integration-style tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Appointments persistence.AppointmentRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "agenda.db")

	pool, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Appointments: sqlite.NewAppointmentRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
