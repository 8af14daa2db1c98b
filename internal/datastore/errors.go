package datastore

import "github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"

// Sentinel errors for datastore operations. These typed errors let callers
// distinguish failure modes without string matching or GORM-specific errors.
var (
	// ErrAnnotationNotFound indicates the requested annotation does not exist.
	ErrAnnotationNotFound = errors.NewStd("annotation not found")

	// ErrVersionConflict indicates an optimistic-lock mismatch: the supplied
	// annotation version no longer matches the stored row.
	ErrVersionConflict = errors.NewStd("annotation version conflict")

	// ErrStatusNotFound indicates no rollup status row exists for the
	// (project, image, task) partition.
	ErrStatusNotFound = errors.NewStd("image annotation status not found")

	// ErrLockNotFound indicates no lock exists for the image.
	ErrLockNotFound = errors.NewStd("image lock not found")

	// ErrLockExists indicates a lock row already exists for the image;
	// concurrent acquirers racing on the unique index see this.
	ErrLockExists = errors.NewStd("image lock already exists")

	// ErrAnnotationVersionNotFound indicates the requested published version
	// does not exist.
	ErrAnnotationVersionNotFound = errors.NewStd("annotation version not found")

	// ErrDuplicateVersionNumber indicates a publish collided with an existing
	// (project, task_type, version_number) tuple.
	ErrDuplicateVersionNumber = errors.NewStd("duplicate version number")

	// ErrDatasetNotFound indicates the dataset does not exist in the
	// platform store.
	ErrDatasetNotFound = errors.NewStd("dataset not found")

	// ErrUserNotFound indicates the user does not exist in the platform store.
	ErrUserNotFound = errors.NewStd("user not found")
)
