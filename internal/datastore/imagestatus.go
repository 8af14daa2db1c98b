// imagestatus.go: persistence primitives for the image status rollup rows.
// Recomputation logic lives in the imagestatus package; this file only
// reads and writes rows.
package datastore

import (
	"context"
	"fmt"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetImageStatus retrieves the rollup row for one (project, image, task)
// partition. Returns ErrStatusNotFound when no row exists.
func (ds *DataStore) GetImageStatus(ctx context.Context, projectID, imageID uint, taskType string) (*ImageAnnotationStatus, error) {
	var status ImageAnnotationStatus
	err := ds.DB.WithContext(ctx).
		Where("project_id = ? AND image_id = ? AND task_type = ?", projectID, imageID, taskType).
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("getting image status: %w", err)
	}
	return &status, nil
}

// SaveImageStatus upserts the rollup row keyed by its identity tuple.
func (ds *DataStore) SaveImageStatus(ctx context.Context, status *ImageAnnotationStatus) error {
	err := ds.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "image_id"}, {Name: "task_type"}},
			UpdateAll: true,
		}).
		Create(status).Error
	if err != nil {
		return fmt.Errorf("saving image status: %w", err)
	}
	return nil
}

// DeleteImageStatus removes the rollup row for a partition. Deleting a
// missing row is not an error; the partition simply has no status.
func (ds *DataStore) DeleteImageStatus(ctx context.Context, projectID, imageID uint, taskType string) error {
	err := ds.DB.WithContext(ctx).
		Where("project_id = ? AND image_id = ? AND task_type = ?", projectID, imageID, taskType).
		Delete(&ImageAnnotationStatus{}).Error
	if err != nil {
		return fmt.Errorf("deleting image status: %w", err)
	}
	return nil
}

// ListImageStatuses returns rollup rows for a project. A nil taskType lists
// every partition; a non-nil taskType restricts the listing to that
// partition by exact match, so &"" selects the untagged partition.
func (ds *DataStore) ListImageStatuses(ctx context.Context, projectID uint, taskType *string) ([]ImageAnnotationStatus, error) {
	query := ds.DB.WithContext(ctx).Where("project_id = ?", projectID)
	if taskType != nil {
		query = query.Where("task_type = ?", *taskType)
	}
	var statuses []ImageAnnotationStatus
	if err := query.Order("image_id").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("listing image statuses for project %d: %w", projectID, err)
	}
	return statuses, nil
}
