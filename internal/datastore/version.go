// version.go: persistence primitives for published annotation versions and
// their frozen per-annotation snapshots. Only the version publisher writes
// these rows; they are read-only thereafter except for the download URL.
package datastore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"gorm.io/gorm"
)

// snapshotBatchSize bounds multi-row snapshot inserts to stay under SQL
// parameter limits on large publishes.
const snapshotBatchSize = 500

// CreateAnnotationVersion inserts a new version record. A collision on the
// (project, task_type, version_number) unique index returns
// ErrDuplicateVersionNumber so the caller can surface a Conflict.
func (ds *DataStore) CreateAnnotationVersion(ctx context.Context, version *AnnotationVersion) error {
	if err := ds.DB.WithContext(ctx).Omit("Snapshots").Create(version).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueConstraintError(err) {
			return ErrDuplicateVersionNumber
		}
		return fmt.Errorf("creating annotation version: %w", err)
	}
	return nil
}

// CreateAnnotationSnapshots inserts the frozen per-annotation rows in
// batches.
func (ds *DataStore) CreateAnnotationSnapshots(ctx context.Context, snapshots []AnnotationSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := ds.DB.WithContext(ctx).CreateInBatches(snapshots, snapshotBatchSize).Error; err != nil {
		return fmt.Errorf("creating annotation snapshots: %w", err)
	}
	return nil
}

// GetAnnotationVersion retrieves a version record by ID.
func (ds *DataStore) GetAnnotationVersion(ctx context.Context, id uint) (*AnnotationVersion, error) {
	var version AnnotationVersion
	if err := ds.DB.WithContext(ctx).First(&version, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnotationVersionNotFound
		}
		return nil, fmt.Errorf("getting annotation version %d: %w", id, err)
	}
	return &version, nil
}

// ListAnnotationVersions returns the version timeline for a (project, task)
// newest first.
func (ds *DataStore) ListAnnotationVersions(ctx context.Context, projectID uint, taskType string) ([]AnnotationVersion, error) {
	var versions []AnnotationVersion
	err := ds.DB.WithContext(ctx).
		Where("project_id = ? AND task_type = ?", projectID, taskType).
		Order("created_at DESC, id DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("listing annotation versions: %w", err)
	}
	return versions, nil
}

// ListVersionSnapshots returns every frozen snapshot belonging to a version.
func (ds *DataStore) ListVersionSnapshots(ctx context.Context, versionID uint) ([]AnnotationSnapshot, error) {
	var snapshots []AnnotationSnapshot
	err := ds.DB.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("annotation_id").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for version %d: %w", versionID, err)
	}
	return snapshots, nil
}

// LatestVersionMajor returns the highest major component among version
// numbers of the form "v<major>.<minor>" for a (project, task). Returns 0
// when no version exists or none follow the scheme.
func (ds *DataStore) LatestVersionMajor(ctx context.Context, projectID uint, taskType string) (int, error) {
	var numbers []string
	err := ds.DB.WithContext(ctx).
		Model(&AnnotationVersion{}).
		Where("project_id = ? AND task_type = ?", projectID, taskType).
		Pluck("version_number", &numbers).Error
	if err != nil {
		return 0, fmt.Errorf("reading version numbers: %w", err)
	}

	latest := 0
	for _, n := range numbers {
		if major, ok := parseVersionMajor(n); ok && major > latest {
			latest = major
		}
	}
	return latest, nil
}

// SetVersionDownloadURL attaches a download URL to a published version.
// This is the only sanctioned post-creation mutation, and it never touches
// annotation content.
func (ds *DataStore) SetVersionDownloadURL(ctx context.Context, versionID uint, url string, expiresAt *time.Time) error {
	result := ds.DB.WithContext(ctx).
		Model(&AnnotationVersion{}).
		Where("id = ?", versionID).
		Updates(map[string]any{
			"download_url":        url,
			"download_expires_at": expiresAt,
		})
	if result.Error != nil {
		return fmt.Errorf("attaching download URL to version %d: %w", versionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAnnotationVersionNotFound
	}
	return nil
}

// DeleteAnnotationVersion removes a version and cascades to its snapshots.
func (ds *DataStore) DeleteAnnotationVersion(ctx context.Context, id uint) error {
	return ds.Transaction(ctx, func(tx Interface) error {
		txStore := tx.(*DataStore)
		if err := txStore.DB.Where("version_id = ?", id).Delete(&AnnotationSnapshot{}).Error; err != nil {
			return fmt.Errorf("deleting snapshots for version %d: %w", id, err)
		}
		result := txStore.DB.Delete(&AnnotationVersion{}, id)
		if result.Error != nil {
			return fmt.Errorf("deleting annotation version %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAnnotationVersionNotFound
		}
		return nil
	})
}

// parseVersionMajor extracts N from "vN" or "vN.M" style version numbers.
func parseVersionMajor(number string) (int, bool) {
	s := strings.TrimPrefix(number, "v")
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	major, err := strconv.Atoi(s)
	if err != nil || major < 0 {
		return 0, false
	}
	return major, true
}

// isUniqueConstraintError recognizes unique-constraint violations across
// the SQLite and MySQL drivers, which GORM does not always translate to
// ErrDuplicatedKey.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
