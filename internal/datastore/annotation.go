// annotation.go: annotation CRUD with per-row optimistic locking
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/geometry"
	"gorm.io/gorm"
)

// AnnotationPatch is an explicit per-field optional-update builder for
// annotation mutations. Only fields set through the named setters are
// written, keeping the mutable field set statically enumerable.
type AnnotationPatch struct {
	updatedBy  string
	geometry   *string
	classID    *string
	className  *string
	attributes *string
	confidence *int
	clearConf  bool
	state      *AnnotationState
}

// NewAnnotationPatch starts a patch attributed to updatedBy.
func NewAnnotationPatch(updatedBy string) *AnnotationPatch {
	return &AnnotationPatch{updatedBy: updatedBy}
}

// SetGeometry replaces the geometry JSON payload.
func (p *AnnotationPatch) SetGeometry(raw string) *AnnotationPatch {
	p.geometry = &raw
	return p
}

// SetClass replaces the class identifier and display name together.
func (p *AnnotationPatch) SetClass(classID, className string) *AnnotationPatch {
	p.classID = &classID
	p.className = &className
	return p
}

// SetAttributes replaces the free-form attributes JSON.
func (p *AnnotationPatch) SetAttributes(raw string) *AnnotationPatch {
	p.attributes = &raw
	return p
}

// SetConfidence sets the confidence score (0-100).
func (p *AnnotationPatch) SetConfidence(confidence int) *AnnotationPatch {
	p.confidence = &confidence
	p.clearConf = false
	return p
}

// ClearConfidence removes the confidence score.
func (p *AnnotationPatch) ClearConfidence() *AnnotationPatch {
	p.confidence = nil
	p.clearConf = true
	return p
}

// SetState transitions the annotation lifecycle state.
func (p *AnnotationPatch) SetState(state AnnotationState) *AnnotationPatch {
	p.state = &state
	return p
}

// changes materializes the patch as a GORM update map. The version counter
// increment and audit fields are always included.
func (p *AnnotationPatch) changes(now time.Time) map[string]any {
	updates := map[string]any{
		"version":    gorm.Expr("version + 1"),
		"updated_by": p.updatedBy,
		"updated_at": now,
	}
	if p.geometry != nil {
		updates["geometry"] = *p.geometry
	}
	if p.classID != nil {
		updates["class_id"] = *p.classID
	}
	if p.className != nil {
		updates["class_name"] = *p.className
	}
	if p.attributes != nil {
		updates["attributes"] = *p.attributes
	}
	if p.confidence != nil {
		updates["confidence"] = *p.confidence
	} else if p.clearConf {
		updates["confidence"] = nil
	}
	if p.state != nil {
		updates["annotation_state"] = *p.state
	}
	return updates
}

// validate checks patch fields that have statically checkable constraints.
func (p *AnnotationPatch) validate(annotationType string) error {
	if p.confidence != nil && (*p.confidence < 0 || *p.confidence > 100) {
		return errors.Newf("confidence must be within 0-100, got %d", *p.confidence).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if p.state != nil && !p.state.Valid() {
		return errors.Newf("unknown annotation state %q", *p.state).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if p.geometry != nil {
		if _, err := geometry.Parse(geometry.AnnotationType(annotationType), []byte(*p.geometry)); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryValidation).
				Context("annotation_type", annotationType).
				Build()
		}
	}
	return nil
}

// CreateAnnotation validates and stores a new annotation in draft state
// with its optimistic version counter at 1.
func (ds *DataStore) CreateAnnotation(ctx context.Context, annotation *Annotation) error {
	if _, err := geometry.Parse(geometry.AnnotationType(annotation.AnnotationType), []byte(annotation.Geometry)); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("annotation_type", annotation.AnnotationType).
			Build()
	}
	if annotation.Confidence != nil && (*annotation.Confidence < 0 || *annotation.Confidence > 100) {
		return errors.Newf("confidence must be within 0-100, got %d", *annotation.Confidence).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if annotation.AnnotationState == "" {
		annotation.AnnotationState = StateDraft
	}
	if annotation.Version == 0 {
		annotation.Version = 1
	}
	if err := ds.DB.WithContext(ctx).Create(annotation).Error; err != nil {
		return fmt.Errorf("saving annotation: %w", err)
	}
	return nil
}

// GetAnnotation retrieves an annotation by its ID.
func (ds *DataStore) GetAnnotation(ctx context.Context, id uint) (*Annotation, error) {
	var annotation Annotation
	if err := ds.DB.WithContext(ctx).First(&annotation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnotationNotFound
		}
		return nil, fmt.Errorf("getting annotation %d: %w", id, err)
	}
	return &annotation, nil
}

// UpdateAnnotation applies the patch under optimistic locking: the update
// only lands when the stored version still equals expectedVersion
// (UPDATE ... WHERE id = ? AND version = ?). A mismatch returns
// ErrVersionConflict and leaves the row unchanged; callers re-fetch and
// retry. Returns the updated row.
func (ds *DataStore) UpdateAnnotation(ctx context.Context, id uint, expectedVersion int, patch *AnnotationPatch) (*Annotation, error) {
	current, err := ds.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.validate(current.AnnotationType); err != nil {
		return nil, err
	}

	result := ds.DB.WithContext(ctx).
		Model(&Annotation{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(patch.changes(time.Now()))
	if result.Error != nil {
		return nil, fmt.Errorf("updating annotation %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		// Row exists (fetched above) so the version no longer matches.
		return nil, ErrVersionConflict
	}
	return ds.GetAnnotation(ctx, id)
}

// DeleteAnnotation removes an annotation and returns the deleted row so the
// caller can resynchronize the image status for its partition.
func (ds *DataStore) DeleteAnnotation(ctx context.Context, id uint) (*Annotation, error) {
	annotation, err := ds.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ds.DB.WithContext(ctx).Delete(&Annotation{}, id).Error; err != nil {
		return nil, fmt.Errorf("deleting annotation %d: %w", id, err)
	}
	return annotation, nil
}

// ListImageAnnotations returns all annotations for one (project, image,
// task) partition. TaskType filters by exact equality, "" matching only the
// untagged partition.
func (ds *DataStore) ListImageAnnotations(ctx context.Context, projectID, imageID uint, taskType string) ([]Annotation, error) {
	var annotations []Annotation
	err := ds.DB.WithContext(ctx).
		Where("project_id = ? AND image_id = ? AND task_type = ?", projectID, imageID, taskType).
		Order("id").
		Find(&annotations).Error
	if err != nil {
		return nil, fmt.Errorf("listing annotations for image %d: %w", imageID, err)
	}
	return annotations, nil
}

// ListProjectAnnotations returns annotations across the whole project+task,
// optionally restricted to the given lifecycle states.
func (ds *DataStore) ListProjectAnnotations(ctx context.Context, projectID uint, taskType string, states ...AnnotationState) ([]Annotation, error) {
	query := ds.DB.WithContext(ctx).
		Where("project_id = ? AND task_type = ?", projectID, taskType)
	if len(states) > 0 {
		query = query.Where("annotation_state IN ?", states)
	}
	var annotations []Annotation
	if err := query.Order("image_id, id").Find(&annotations).Error; err != nil {
		return nil, fmt.Errorf("listing annotations for project %d: %w", projectID, err)
	}
	return annotations, nil
}

// SetImageAnnotationState bulk-transitions every annotation in the
// (project, image, task) partition from one state to another, stamping
// confirmation fields when the target state is confirmed and clearing them
// when reverting to draft. Returns the number of rows transitioned.
func (ds *DataStore) SetImageAnnotationState(ctx context.Context, projectID, imageID uint, taskType string, from, to AnnotationState, userID string, at time.Time) (int64, error) {
	updates := map[string]any{
		"annotation_state": to,
		"version":          gorm.Expr("version + 1"),
		"updated_by":       userID,
		"updated_at":       at,
	}
	switch to {
	case StateConfirmed:
		updates["confirmed_at"] = at
		updates["confirmed_by"] = userID
	case StateDraft:
		updates["confirmed_at"] = nil
		updates["confirmed_by"] = ""
	}

	result := ds.DB.WithContext(ctx).
		Model(&Annotation{}).
		Where("project_id = ? AND image_id = ? AND task_type = ? AND annotation_state = ?",
			projectID, imageID, taskType, from).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("transitioning annotations from %s to %s: %w", from, to, result.Error)
	}
	return result.RowsAffected, nil
}
