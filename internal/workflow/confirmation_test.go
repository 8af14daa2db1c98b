package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/imagestatus"
)

func newTestWorkflow(t *testing.T) (*Workflow, *imagestatus.Aggregator, *datastore.DataStore) {
	t.Helper()
	ds := datastore.NewTestStore(t)
	settings := &conf.Settings{}
	agg := NewTestAggregator(ds, settings)
	return NewWorkflow(ds, agg, settings, nil), agg, ds
}

// NewTestAggregator builds an aggregator without a cache for deterministic
// reads in workflow tests.
func NewTestAggregator(ds datastore.Interface, settings *conf.Settings) *imagestatus.Aggregator {
	return imagestatus.NewAggregator(ds, settings, nil)
}

func addAnnotation(t *testing.T, ds *datastore.DataStore, imageID uint, state datastore.AnnotationState) *datastore.Annotation {
	t.Helper()
	a := &datastore.Annotation{
		ProjectID:       1,
		ImageID:         imageID,
		TaskType:        "detection",
		AnnotationType:  "bbox",
		Geometry:        `{"x":0,"y":0,"width":10,"height":10}`,
		ClassName:       "car",
		AnnotationState: state,
		CreatedBy:       "userA",
		UpdatedBy:       "userA",
	}
	require.NoError(t, ds.CreateAnnotation(context.Background(), a))
	return a
}

func TestConfirmFlipsDraftsAndMarksImage(t *testing.T) {
	t.Parallel()
	w, _, ds := newTestWorkflow(t)
	ctx := context.Background()

	a := addAnnotation(t, ds, 1, datastore.StateDraft)

	res, err := w.Confirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, int64(1), res.Transitioned)
	require.NotNil(t, res.Status)
	assert.Equal(t, datastore.StatusCompleted, res.Status.Status)
	assert.True(t, res.Status.IsImageConfirmed)
	assert.Equal(t, 1, res.Status.ConfirmedAnnotations)
	assert.Equal(t, 0, res.Status.DraftAnnotations)

	got, err := ds.GetAnnotation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StateConfirmed, got.AnnotationState)
	assert.Equal(t, "reviewer", got.ConfirmedBy)
}

func TestConfirmEmptyPartition(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestWorkflow(t)

	res, err := w.Confirm(context.Background(), 1, 99, "detection", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAnnotations, res.Outcome)
	assert.Nil(t, res.Status)
}

func TestConfirmationReversibility(t *testing.T) {
	t.Parallel()
	w, _, ds := newTestWorkflow(t)
	ctx := context.Background()

	addAnnotation(t, ds, 1, datastore.StateDraft)
	addAnnotation(t, ds, 1, datastore.StateDraft)

	res, err := w.Confirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, res.Outcome)

	res, err = w.Unconfirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnconfirmed, res.Outcome)
	require.NotNil(t, res.Status)
	assert.Equal(t, datastore.StatusInProgress, res.Status.Status)
	assert.False(t, res.Status.IsImageConfirmed)
	assert.Nil(t, res.Status.ConfirmedAt)
	assert.Equal(t, 2, res.Status.DraftAnnotations)

	// A third annotation lands while reopened; re-confirming must reflect
	// the live set, not stale counts from the first confirmation.
	addAnnotation(t, ds, 1, datastore.StateDraft)
	res, err = w.Confirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, datastore.StatusCompleted, res.Status.Status)
	assert.Equal(t, 3, res.Status.TotalAnnotations)
	assert.Equal(t, 3, res.Status.ConfirmedAnnotations)
}

func TestUnconfirmRevertsAnnotationStates(t *testing.T) {
	t.Parallel()
	w, _, ds := newTestWorkflow(t)
	ctx := context.Background()

	a := addAnnotation(t, ds, 1, datastore.StateDraft)
	_, err := w.Confirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)

	_, err = w.Unconfirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)

	got, err := ds.GetAnnotation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StateDraft, got.AnnotationState)
	assert.Nil(t, got.ConfirmedAt)
	assert.Empty(t, got.ConfirmedBy)
}

func TestEndToEndLabelingScenario(t *testing.T) {
	t.Parallel()
	w, agg, ds := newTestWorkflow(t)
	ctx := context.Background()

	// Draft annotation appears; rollup shows in-progress.
	addAnnotation(t, ds, 1, datastore.StateDraft)
	status, err := agg.Update(ctx, 1, 1, "detection")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusInProgress, status.Status)
	assert.Equal(t, 1, status.TotalAnnotations)
	assert.Equal(t, 1, status.DraftAnnotations)
	assert.Equal(t, 0, status.ConfirmedAnnotations)

	// Confirmation completes the image.
	res, err := w.Confirm(ctx, 1, 1, "detection", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusCompleted, res.Status.Status)
	assert.True(t, res.Status.IsImageConfirmed)
	assert.Equal(t, 1, res.Status.ConfirmedAnnotations)
	assert.Equal(t, 0, res.Status.DraftAnnotations)
}
