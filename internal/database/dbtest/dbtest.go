// Package dbtest provides throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"diabcare/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite returns a migrated, private in-memory database with foreign keys
// enforced. It is closed when the test ends.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn), slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err, "open sqlite")
	require.NoError(t, database.Migrate(db), "migrate sqlite")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
