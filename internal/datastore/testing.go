// testing.go provides shared fixtures for packages that exercise the
// datastore in tests. Uses a real in-memory SQLite database rather than
// mocks so GORM behavior is exercised for real.
package datastore

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestStore opens a fresh in-memory SQLite store with the labeler schema
// migrated. The connection is closed when the test finishes.
func NewTestStore(tb testing.TB) *DataStore {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("opening in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(labelerTables()...); err != nil {
		tb.Fatalf("migrating labeler schema: %v", err)
	}

	ds := &DataStore{DB: db}
	tb.Cleanup(func() { _ = ds.Close() })
	return ds
}

// NewTestPlatformStore opens a fresh in-memory SQLite platform store with
// the platform tables migrated, for tests that need image metadata.
func NewTestPlatformStore(tb testing.TB) *PlatformStore {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("opening in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Dataset{}, &DatasetImage{}, &User{}); err != nil {
		tb.Fatalf("migrating platform schema: %v", err)
	}

	ps := &PlatformStore{DB: db}
	tb.Cleanup(func() { _ = ps.Close() })
	return ps
}
