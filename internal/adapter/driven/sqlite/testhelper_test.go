package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a migrated database file under t.TempDir, mirroring the
// on-disk layout the binary uses. The database is closed on cleanup.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "stadatax.db"))
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer), "run migrations")
	return db
}
