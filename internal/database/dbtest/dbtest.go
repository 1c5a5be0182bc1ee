// Package dbtest opens throwaway catalog databases for repository and
// handler tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/database"
)

// Open creates a migrated and seeded database under t.TempDir and closes it
// when the test ends.
func Open(t testing.TB) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
