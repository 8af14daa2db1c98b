// interfaces.go: this code defines the interface for the labeler database operations
package datastore

import (
	"context"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"gorm.io/gorm"
)

// Interface abstracts the underlying labeler database implementation and
// defines the operations the core components are built on.
type Interface interface {
	Open() error
	Close() error

	// Transaction runs fn against a store bound to a single database
	// transaction. fn returning an error rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Interface) error) error

	// Annotation store
	CreateAnnotation(ctx context.Context, annotation *Annotation) error
	GetAnnotation(ctx context.Context, id uint) (*Annotation, error)
	UpdateAnnotation(ctx context.Context, id uint, expectedVersion int, patch *AnnotationPatch) (*Annotation, error)
	DeleteAnnotation(ctx context.Context, id uint) (*Annotation, error)
	ListImageAnnotations(ctx context.Context, projectID, imageID uint, taskType string) ([]Annotation, error)
	ListProjectAnnotations(ctx context.Context, projectID uint, taskType string, states ...AnnotationState) ([]Annotation, error)
	SetImageAnnotationState(ctx context.Context, projectID, imageID uint, taskType string, from, to AnnotationState, userID string, at time.Time) (int64, error)

	// Image annotation status
	GetImageStatus(ctx context.Context, projectID, imageID uint, taskType string) (*ImageAnnotationStatus, error)
	SaveImageStatus(ctx context.Context, status *ImageAnnotationStatus) error
	DeleteImageStatus(ctx context.Context, projectID, imageID uint, taskType string) error
	ListImageStatuses(ctx context.Context, projectID uint, taskType *string) ([]ImageAnnotationStatus, error)

	// Image locks
	GetImageLock(ctx context.Context, projectID, imageID uint) (*ImageLock, error)
	CreateImageLock(ctx context.Context, lock *ImageLock) error
	SaveImageLock(ctx context.Context, lock *ImageLock) error
	DeleteImageLock(ctx context.Context, projectID, imageID uint) (int64, error)
	DeleteExpiredImageLocks(ctx context.Context, projectID uint, now time.Time) (int64, error)
	ListImageLocks(ctx context.Context, projectID uint) ([]ImageLock, error)

	// Annotation versions and snapshots
	CreateAnnotationVersion(ctx context.Context, version *AnnotationVersion) error
	CreateAnnotationSnapshots(ctx context.Context, snapshots []AnnotationSnapshot) error
	GetAnnotationVersion(ctx context.Context, id uint) (*AnnotationVersion, error)
	ListAnnotationVersions(ctx context.Context, projectID uint, taskType string) ([]AnnotationVersion, error)
	ListVersionSnapshots(ctx context.Context, versionID uint) ([]AnnotationSnapshot, error)
	LatestVersionMajor(ctx context.Context, projectID uint, taskType string) (int, error)
	SetVersionDownloadURL(ctx context.Context, versionID uint, url string, expiresAt *time.Time) error
	DeleteAnnotationVersion(ctx context.Context, id uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a labeler store instance based on the provided configuration.
func New(settings *conf.Settings) (Interface, error) {
	db := &settings.Database.Labeler
	switch {
	case db.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}, nil
	case db.MySQL.Enabled:
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("no database backend enabled for labeler store").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// Open is a no-op on a bare DataStore; concrete stores override it.
func (ds *DataStore) Open() error {
	if ds.DB == nil {
		return errors.Newf("datastore must be opened via a concrete store").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a transaction-bound DataStore so that all
// operations within fn commit or roll back together.
func (ds *DataStore) Transaction(ctx context.Context, fn func(tx Interface) error) error {
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DataStore{DB: tx})
	})
}
