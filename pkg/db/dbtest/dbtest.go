// Package dbtest opens isolated in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/pkg/db"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
)

// Open returns a fresh in-memory database limited to a single connection.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// OpenMigrated returns a fresh database with every domain table created.
func OpenMigrated(t testing.TB) *gorm.DB {
	t.Helper()

	conn := Open(t)
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	return conn
}
