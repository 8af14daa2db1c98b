package datastore

import (
	"fmt"

	"gorm.io/gorm"
)

// labelerTables lists every model owned by the labeler store, in migration
// order (versions before snapshots for the foreign key).
func labelerTables() []any {
	return []any{
		&Annotation{},
		&ImageAnnotationStatus{},
		&ImageLock{},
		&AnnotationVersion{},
		&AnnotationSnapshot{},
	}
}

// performAutoMigration runs GORM AutoMigrate for all labeler tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(labelerTables()...); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		getLogger().Debug("Database schema migrated",
			"db_type", dbType,
			"connection", connectionInfo)
	}
	return nil
}
