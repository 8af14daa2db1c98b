// model.go this code defines the data model for the labeler database
package datastore

import "time"

// AnnotationState is the lifecycle state of a single annotation.
type AnnotationState string

const (
	StateDraft     AnnotationState = "draft"
	StateConfirmed AnnotationState = "confirmed"
	StateVerified  AnnotationState = "verified" // reserved for reviewer sign-off
)

// Valid reports whether s is a known annotation state.
func (s AnnotationState) Valid() bool {
	switch s {
	case StateDraft, StateConfirmed, StateVerified:
		return true
	}
	return false
}

// ImageStatus is the rollup labeling status of one (project, image, task).
type ImageStatus string

const (
	StatusNotStarted ImageStatus = "not-started"
	StatusInProgress ImageStatus = "in-progress"
	StatusCompleted  ImageStatus = "completed"
)

// VersionType distinguishes published versions from working snapshots.
type VersionType string

const (
	VersionTypeWorking   VersionType = "working"
	VersionTypePublished VersionType = "published"
)

// Annotation represents one labeled object or image-level label.
// TaskType "" is the explicit untagged partition; it is matched by exact
// equality and is part of the identity tuple, never a wildcard.
type Annotation struct {
	ID              uint   `gorm:"primaryKey"`
	ProjectID       uint   `gorm:"not null;index:idx_annotations_identity,priority:1"`
	ImageID         uint   `gorm:"not null;index:idx_annotations_identity,priority:2"`
	TaskType        string `gorm:"size:64;index:idx_annotations_identity,priority:3"`
	AnnotationType  string `gorm:"size:32;not null"`
	Geometry        string `gorm:"type:text"` // JSON, parsed via the geometry package
	ClassID         string `gorm:"size:64"`
	ClassName       string `gorm:"size:255;index:idx_annotations_classname"`
	Attributes      string `gorm:"type:text"` // free-form JSON attributes
	Confidence      *int   // 0-100, nil when not scored
	AnnotationState AnnotationState `gorm:"size:16;not null;default:draft;index:idx_annotations_state"`
	ConfirmedAt     *time.Time
	ConfirmedBy     string `gorm:"size:64"`
	Version         int    `gorm:"not null;default:1"` // optimistic lock counter
	CreatedBy       string `gorm:"size:64"`
	UpdatedBy       string `gorm:"size:64"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ImageAnnotationStatus is the rollup row for one (project, image, task).
// Created lazily on first annotation write, deleted when the last
// annotation for the partition is removed.
type ImageAnnotationStatus struct {
	ID                   uint   `gorm:"primaryKey"`
	ProjectID            uint   `gorm:"not null;uniqueIndex:idx_image_status_identity,priority:1"`
	ImageID              uint   `gorm:"not null;uniqueIndex:idx_image_status_identity,priority:2"`
	TaskType             string `gorm:"size:64;uniqueIndex:idx_image_status_identity,priority:3"`
	Status               ImageStatus `gorm:"size:16;not null"`
	IsImageConfirmed     bool        // manual confirmation flag, set only by the workflow
	ConfirmedAt          *time.Time
	TotalAnnotations     int
	ConfirmedAnnotations int
	DraftAnnotations     int
	FirstModifiedAt      *time.Time // min created_at across constituent annotations, monotonically non-increasing
	LastModifiedAt       *time.Time // max updated_at across constituent annotations
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ImageLock is a short-lived exclusive editing lease for one image within a
// project. One active lock per (project, image) regardless of task.
type ImageLock struct {
	ID          uint   `gorm:"primaryKey"`
	ProjectID   uint   `gorm:"not null;uniqueIndex:idx_image_locks_identity,priority:1"`
	ImageID     uint   `gorm:"not null;uniqueIndex:idx_image_locks_identity,priority:2"`
	UserID      string `gorm:"size:64;not null"`
	LockedAt    time.Time `gorm:"not null"`
	HeartbeatAt time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index:idx_image_locks_expires"`
}

// Expired reports whether the lock's absolute deadline has passed.
func (l *ImageLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// AnnotationVersion is an immutable publish record. Never mutated after
// creation except to attach a download URL.
type AnnotationVersion struct {
	ID                uint   `gorm:"primaryKey"`
	ProjectID         uint   `gorm:"not null;uniqueIndex:idx_annotation_versions_identity,priority:1"`
	TaskType          string `gorm:"size:64;uniqueIndex:idx_annotation_versions_identity,priority:2"`
	VersionNumber     string `gorm:"size:64;not null;uniqueIndex:idx_annotation_versions_identity,priority:3"`
	VersionType       VersionType `gorm:"size:16;not null;default:published"`
	Description       string      `gorm:"type:text"`
	AnnotationCount   int
	ImageCount        int
	ExportFormat      string `gorm:"size:32"`
	ExportPath        string `gorm:"size:512"`
	DownloadURL       string `gorm:"size:1024"`
	DownloadExpiresAt *time.Time
	CreatedBy         string `gorm:"size:64"`
	CreatedAt         time.Time

	Snapshots []AnnotationSnapshot `gorm:"foreignKey:VersionID;constraint:OnDelete:CASCADE"`
}

// AnnotationSnapshot is one per-annotation record frozen at publish time.
// SnapshotData holds the full annotation payload as JSON; it is never
// updated, and is deleted only by cascading deletion of its parent version.
type AnnotationSnapshot struct {
	ID           uint `gorm:"primaryKey"`
	VersionID    uint `gorm:"not null;index:idx_annotation_snapshots_version"`
	AnnotationID uint `gorm:"not null;index:idx_annotation_snapshots_annotation"`
	ImageID      uint `gorm:"not null;index:idx_annotation_snapshots_image"`
	SnapshotData string `gorm:"type:text;not null"`
	CreatedAt    time.Time
}
