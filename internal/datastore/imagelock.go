// imagelock.go: persistence primitives for image editing leases. Lease
// semantics (ownership, refresh, takeover) live in the imagelock package;
// only the lock manager writes these rows.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"gorm.io/gorm"
)

// GetImageLock retrieves the lock row for (project, image). Returns
// ErrLockNotFound when no lock exists.
func (ds *DataStore) GetImageLock(ctx context.Context, projectID, imageID uint) (*ImageLock, error) {
	var lock ImageLock
	err := ds.DB.WithContext(ctx).
		Where("project_id = ? AND image_id = ?", projectID, imageID).
		First(&lock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLockNotFound
		}
		return nil, fmt.Errorf("getting image lock: %w", err)
	}
	return &lock, nil
}

// CreateImageLock inserts a new lock row. The unique index on
// (project_id, image_id) makes concurrent creates race-safe: exactly one
// wins, the rest fail on the constraint.
func (ds *DataStore) CreateImageLock(ctx context.Context, lock *ImageLock) error {
	if err := ds.DB.WithContext(ctx).Create(lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueConstraintError(err) {
			return ErrLockExists
		}
		return fmt.Errorf("creating image lock: %w", err)
	}
	return nil
}

// SaveImageLock persists updated lease fields on an existing lock row.
func (ds *DataStore) SaveImageLock(ctx context.Context, lock *ImageLock) error {
	if err := ds.DB.WithContext(ctx).Save(lock).Error; err != nil {
		return fmt.Errorf("saving image lock: %w", err)
	}
	return nil
}

// DeleteImageLock removes the lock row for (project, image) and reports how
// many rows were removed (0 when no lock existed).
func (ds *DataStore) DeleteImageLock(ctx context.Context, projectID, imageID uint) (int64, error) {
	result := ds.DB.WithContext(ctx).
		Where("project_id = ? AND image_id = ?", projectID, imageID).
		Delete(&ImageLock{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting image lock: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteExpiredImageLocks sweeps lock rows whose deadline has passed. A
// projectID of 0 sweeps every project.
func (ds *DataStore) DeleteExpiredImageLocks(ctx context.Context, projectID uint, now time.Time) (int64, error) {
	query := ds.DB.WithContext(ctx).Where("expires_at < ?", now)
	if projectID != 0 {
		query = query.Where("project_id = ?", projectID)
	}
	result := query.Delete(&ImageLock{})
	if result.Error != nil {
		return 0, fmt.Errorf("sweeping expired image locks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListImageLocks returns all lock rows for a project.
func (ds *DataStore) ListImageLocks(ctx context.Context, projectID uint) ([]ImageLock, error) {
	var locks []ImageLock
	err := ds.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("image_id").
		Find(&locks).Error
	if err != nil {
		return nil, fmt.Errorf("listing image locks for project %d: %w", projectID, err)
	}
	return locks, nil
}
