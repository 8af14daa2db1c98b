package version

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
)

func newTestDiffer(t *testing.T) (*Differ, *Publisher, *datastore.DataStore) {
	t.Helper()
	p, ds := newTestPublisher(t)
	return NewDiffer(p), p, ds
}

func TestCompareRejectsDifferentPartitions(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	seedAnnotation(t, ds, 1, "segmentation", "car", datastore.StateConfirmed)

	va, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)
	vb, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "segmentation"})
	require.NoError(t, err)

	_, err = d.Compare(ctx, va.ID, vb.ID, nil)
	require.Error(t, err)
}

func TestCompareUnknownVersion(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDiffer(t)

	_, err := d.Compare(context.Background(), 41, 42, nil)
	require.ErrorIs(t, err, datastore.ErrAnnotationVersionNotFound)
}

func TestCompareSameVersionIsAllUnchanged(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	seedAnnotation(t, ds, 2, "detection", "person", datastore.StateConfirmed)

	v, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	c, err := d.Compare(ctx, v.ID, v.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Summary.TotalChanges)
	assert.Equal(t, 2, c.Summary.Unchanged)
	assert.Equal(t, 0, c.Summary.ImagesWithChanges)
	assert.Empty(t, c.Summary.PerClass)
}

func TestCompareAddedRemovedModified(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	kept := seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	modified := seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	removed := seedAnnotation(t, ds, 2, "detection", "person", datastore.StateConfirmed)

	va, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	// Between versions: move one box, delete one annotation, add one.
	patch := datastore.NewAnnotationPatch("userB").
		SetGeometry(`{"x":5,"y":5,"width":30,"height":40}`)
	_, err = ds.UpdateAnnotation(ctx, modified.ID, modified.Version, patch)
	require.NoError(t, err)
	_, err = ds.DeleteAnnotation(ctx, removed.ID)
	require.NoError(t, err)
	added := seedAnnotation(t, ds, 3, "detection", "bike", datastore.StateConfirmed)

	vb, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	c, err := d.Compare(ctx, va.ID, vb.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Summary.Added)
	assert.Equal(t, 1, c.Summary.Removed)
	assert.Equal(t, 1, c.Summary.Modified)
	assert.Equal(t, 1, c.Summary.Unchanged)
	assert.Equal(t, 3, c.Summary.TotalChanges)
	assert.Equal(t, 3, c.Summary.ImagesWithChanges)

	require.Contains(t, c.Images, uint(1))
	img1 := c.Images[1]
	assert.Equal(t, 1, img1.Modified)
	assert.Equal(t, 1, img1.Unchanged)
	assert.Equal(t, 1, img1.TotalChanges)

	require.Contains(t, c.Images, uint(2))
	assert.Equal(t, 1, c.Images[2].Removed)
	require.Contains(t, c.Images, uint(3))
	assert.Equal(t, 1, c.Images[3].Added)

	assert.Equal(t, ClassDiff{Modified: 1}, c.Summary.PerClass["car"])
	assert.Equal(t, ClassDiff{Removed: 1}, c.Summary.PerClass["person"])
	assert.Equal(t, ClassDiff{Added: 1}, c.Summary.PerClass["bike"])

	var changes []AnnotationChange
	for _, img := range c.Images {
		changes = append(changes, img.Annotations...)
	}
	byID := map[uint]ChangeType{}
	for _, ch := range changes {
		byID[ch.AnnotationID] = ch.Change
	}
	assert.Equal(t, ChangeUnchanged, byID[kept.ID])
	assert.Equal(t, ChangeModified, byID[modified.ID])
	assert.Equal(t, ChangeRemoved, byID[removed.ID])
	assert.Equal(t, ChangeAdded, byID[added.ID])
}

func TestCompareClassChangeCountsAsModified(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	a := seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	va, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	patch := datastore.NewAnnotationPatch("userB").SetClass("truck", "truck")
	_, err = ds.UpdateAnnotation(ctx, a.ID, a.Version, patch)
	require.NoError(t, err)

	vb, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	c, err := d.Compare(ctx, va.ID, vb.ID, nil)
	require.NoError(t, err)

	// Same annotation ID in both sets, so structurally this is one
	// modification, attributed to the class captured in the newer version.
	assert.Equal(t, 1, c.Summary.Modified)
	assert.Equal(t, ClassDiff{Modified: 1}, c.Summary.PerClass["truck"])
	assert.NotContains(t, c.Summary.PerClass, "car")
}

func TestCompareImageFilter(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	a1 := seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	seedAnnotation(t, ds, 2, "detection", "person", datastore.StateConfirmed)

	va, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	patch := datastore.NewAnnotationPatch("userB").SetConfidence(80)
	_, err = ds.UpdateAnnotation(ctx, a1.ID, a1.Version, patch)
	require.NoError(t, err)

	vb, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	image := uint(1)
	c, err := d.Compare(ctx, va.ID, vb.ID, &image)
	require.NoError(t, err)

	assert.Len(t, c.Images, 1)
	require.Contains(t, c.Images, uint(1))
	assert.Equal(t, 1, c.Summary.Modified)
	assert.Equal(t, 0, c.Summary.Unchanged)
}

func TestCompareSwappedOperands(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	va, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	x := seedAnnotation(t, ds, 1, "detection", "person", datastore.StateConfirmed)
	vb, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	forward, err := d.Compare(ctx, va.ID, vb.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, forward.Summary.Added)
	assert.Equal(t, 0, forward.Summary.Removed)
	assert.Equal(t, ChangeAdded, findChange(forward, x.ID))

	backward, err := d.Compare(ctx, vb.ID, va.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, backward.Summary.Added)
	assert.Equal(t, 1, backward.Summary.Removed)
	assert.Equal(t, ChangeRemoved, findChange(backward, x.ID))
}

func findChange(c *Comparison, annotationID uint) ChangeType {
	for _, img := range c.Images {
		for _, ch := range img.Annotations {
			if ch.AnnotationID == annotationID {
				return ch.Change
			}
		}
	}
	return ""
}

func TestCompareSummaryMatchesFullComparison(t *testing.T) {
	t.Parallel()
	d, p, ds := newTestDiffer(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	va, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	seedAnnotation(t, ds, 2, "detection", "person", datastore.StateConfirmed)
	vb, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)

	full, err := d.Compare(ctx, va.ID, vb.ID, nil)
	require.NoError(t, err)
	summary, err := d.CompareSummary(ctx, va.ID, vb.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, full.Summary, *summary)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.ImagesWithChanges)
}
