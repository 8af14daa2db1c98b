// Package workflow implements the image confirmation workflow, the only
// path that sets the manual image confirmation flag and cascades
// per-annotation confirmation. Confirmation is a workflow checkpoint, not a
// lock against further edits; completed images can always be reopened.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/imagestatus"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/logging"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/observability/metrics"
)

// Outcome tags the structured result of a confirmation operation.
type Outcome string

const (
	OutcomeConfirmed     Outcome = "confirmed"
	OutcomeUnconfirmed   Outcome = "unconfirmed"
	OutcomeNoAnnotations Outcome = "no_annotations"
)

// Result reports the workflow outcome along with the resulting rollup row.
// Status is nil when the partition ends with no annotations (and therefore
// no status row).
type Result struct {
	Outcome     Outcome
	Transitioned int64 // annotations whose state was flipped
	Status      *datastore.ImageAnnotationStatus
}

// Workflow drives image confirmation state transitions.
type Workflow struct {
	store      datastore.Interface
	aggregator *imagestatus.Aggregator
	metrics    *metrics.LabelerMetrics
	log        *slog.Logger
}

// NewWorkflow creates a confirmation workflow sharing the aggregator so the
// rollup recompute and its cache stay consistent.
func NewWorkflow(store datastore.Interface, aggregator *imagestatus.Aggregator, settings *conf.Settings, m *metrics.LabelerMetrics) *Workflow {
	log := logging.ForService("workflow")
	if log == nil {
		log = slog.Default().With("service", "workflow")
	}
	return &Workflow{store: store, aggregator: aggregator, metrics: m, log: log}
}

// Confirm flips every draft annotation in the (project, image, task)
// partition to confirmed and marks the image confirmed, all in one
// transaction. Counts are recomputed from the annotation rows inside the
// same transaction rather than trusted from the caller. Confirming a
// partition with no annotations returns OutcomeNoAnnotations and writes
// nothing.
func (w *Workflow) Confirm(ctx context.Context, projectID, imageID uint, taskType, userID string) (*Result, error) {
	now := time.Now()
	result := &Result{}

	err := w.store.Transaction(ctx, func(tx datastore.Interface) error {
		n, err := tx.SetImageAnnotationState(ctx, projectID, imageID, taskType,
			datastore.StateDraft, datastore.StateConfirmed, userID, now)
		if err != nil {
			return err
		}
		result.Transitioned = n

		status, err := w.aggregator.UpdateInTx(ctx, tx, projectID, imageID, taskType)
		if err != nil {
			return err
		}
		if status == nil {
			result.Outcome = OutcomeNoAnnotations
			return nil
		}

		status.IsImageConfirmed = true
		status.ConfirmedAt = &now
		status.Status = datastore.StatusCompleted
		if err := tx.SaveImageStatus(ctx, status); err != nil {
			return err
		}

		result.Outcome = OutcomeConfirmed
		result.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.aggregator.Invalidate(projectID, imageID, taskType)
	if result.Outcome == OutcomeConfirmed {
		w.metrics.RecordConfirmOperation("confirm")
		w.log.Info("image confirmed",
			"project_id", projectID, "image_id", imageID, "task_type", taskType,
			"user_id", userID, "annotations_confirmed", result.Transitioned)
	}
	return result, nil
}

// Unconfirm reopens a confirmed image: clears the manual confirmation flag,
// reverts confirmed annotations to draft with their confirmation fields
// cleared, and resynchronizes the rollup. The image returns to in-progress,
// or loses its status row entirely when no annotations remain.
func (w *Workflow) Unconfirm(ctx context.Context, projectID, imageID uint, taskType, userID string) (*Result, error) {
	now := time.Now()
	result := &Result{}

	err := w.store.Transaction(ctx, func(tx datastore.Interface) error {
		n, err := tx.SetImageAnnotationState(ctx, projectID, imageID, taskType,
			datastore.StateConfirmed, datastore.StateDraft, userID, now)
		if err != nil {
			return err
		}
		result.Transitioned = n

		status, err := w.aggregator.UpdateInTx(ctx, tx, projectID, imageID, taskType)
		if err != nil {
			return err
		}
		if status == nil {
			// No annotations remain; the partition reverts to "no status".
			result.Outcome = OutcomeUnconfirmed
			return nil
		}

		status.IsImageConfirmed = false
		status.ConfirmedAt = nil
		status.Status = datastore.StatusInProgress
		if err := tx.SaveImageStatus(ctx, status); err != nil {
			return err
		}

		result.Outcome = OutcomeUnconfirmed
		result.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.aggregator.Invalidate(projectID, imageID, taskType)
	w.metrics.RecordConfirmOperation("unconfirm")
	w.log.Info("image unconfirmed",
		"project_id", projectID, "image_id", imageID, "task_type", taskType,
		"user_id", userID, "annotations_reverted", result.Transitioned)
	return result, nil
}
