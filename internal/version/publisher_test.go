package version

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/objectstore"
)

func newTestPublisher(t *testing.T) (*Publisher, *datastore.DataStore) {
	t.Helper()
	ds := datastore.NewTestStore(t)
	settings := &conf.Settings{}
	return NewPublisher(ds, nil, nil, settings, nil), ds
}

func seedAnnotation(t *testing.T, ds *datastore.DataStore, imageID uint, taskType, className string, state datastore.AnnotationState) *datastore.Annotation {
	t.Helper()
	a := &datastore.Annotation{
		ProjectID:       1,
		ImageID:         imageID,
		TaskType:        taskType,
		AnnotationType:  "bbox",
		Geometry:        `{"x":1,"y":2,"width":30,"height":40}`,
		ClassName:       className,
		AnnotationState: state,
		CreatedBy:       "userA",
		UpdatedBy:       "userA",
	}
	require.NoError(t, ds.CreateAnnotation(context.Background(), a))
	return a
}

func TestPublishFreezesConfirmedSet(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	confirmed := seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	seedAnnotation(t, ds, 2, "detection", "person", datastore.StateConfirmed)
	seedAnnotation(t, ds, 2, "detection", "bike", datastore.StateDraft)

	v, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", UserID: "publisher"})
	require.NoError(t, err)
	assert.Equal(t, "v1.0", v.VersionNumber)
	assert.Equal(t, datastore.VersionTypePublished, v.VersionType)
	assert.Equal(t, 2, v.AnnotationCount)
	assert.Equal(t, 2, v.ImageCount)

	snapshots, err := ds.ListVersionSnapshots(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	// Mutating the live annotation must not touch the frozen snapshot.
	patch := datastore.NewAnnotationPatch("userA").SetClass("truck", "truck")
	_, err = ds.UpdateAnnotation(ctx, confirmed.ID, confirmed.Version, patch)
	require.NoError(t, err)

	after, err := ds.ListVersionSnapshots(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshots[0].SnapshotData, after[0].SnapshotData)
	assert.Contains(t, after[0].SnapshotData, `"car"`)
}

func TestPublishIncludeDraft(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	seedAnnotation(t, ds, 1, "detection", "bike", datastore.StateDraft)

	v, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", IncludeDraft: true})
	require.NoError(t, err)
	assert.Equal(t, 2, v.AnnotationCount)
	assert.Equal(t, 1, v.ImageCount)
}

func TestPublishAutoNumberingPerPartition(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)
	seedAnnotation(t, ds, 1, "segmentation", "car", datastore.StateConfirmed)

	v1, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)
	v2, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)
	other, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "segmentation"})
	require.NoError(t, err)

	assert.Equal(t, "v1.0", v1.VersionNumber)
	assert.Equal(t, "v2.0", v2.VersionNumber)
	assert.Equal(t, "v1.0", other.VersionNumber)
}

func TestPublishCountsAcrossImages(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	for _, imageID := range []uint{1, 1, 2, 3, 3} {
		seedAnnotation(t, ds, imageID, "detection", "car", datastore.StateConfirmed)
	}

	v, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", VersionNumber: "v1.0"})
	require.NoError(t, err)
	assert.Equal(t, 5, v.AnnotationCount)
	assert.Equal(t, 3, v.ImageCount)

	snapshots, err := ds.ListVersionSnapshots(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, snapshots, 5)
}

func TestPublishDuplicateVersionNumber(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)

	_, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", VersionNumber: "v5.0"})
	require.NoError(t, err)

	_, err = p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", VersionNumber: "v5.0"})
	require.ErrorIs(t, err, datastore.ErrDuplicateVersionNumber)
}

func TestPublishUnknownFormatWritesNothing(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)

	_, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", ExportFormat: "tfrecord"})
	require.Error(t, err)

	versions, err := ds.ListAnnotationVersions(ctx, 1, "detection")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestPublishEmptyPartition(t *testing.T) {
	t.Parallel()
	p, ds := newTestPublisher(t)
	ctx := context.Background()

	v, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection"})
	require.NoError(t, err)
	assert.Equal(t, 0, v.AnnotationCount)
	assert.Equal(t, 0, v.ImageCount)

	snapshots, err := ds.ListVersionSnapshots(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestPublishWithExportAndDownloadURL(t *testing.T) {
	t.Parallel()
	ds := datastore.NewTestStore(t)
	ps := datastore.NewTestPlatformStore(t)
	settings := &conf.Settings{}
	settings.Export.Path = t.TempDir()
	settings.Export.PresignTTL = time.Hour

	require.NoError(t, ps.DB.Create(&datastore.DatasetImage{
		ID: 1, DatasetID: 1, ProjectID: 1, FileName: "frame-0001.jpg", Width: 1920, Height: 1080,
	}).Error)

	objects, err := objectstore.NewDiskStore(settings)
	require.NoError(t, err)
	p := NewPublisher(ds, ps, objects, settings, nil)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)

	v, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", ExportFormat: "coco-json"})
	require.NoError(t, err)
	require.NotEmpty(t, v.ExportPath)

	data, err := os.ReadFile(filepath.Join(settings.Export.Path, v.ExportPath))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"frame-0001.jpg"`)
	assert.Contains(t, string(data), `"car"`)

	attached, err := p.AttachDownloadURL(ctx, v.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, attached.DownloadURL)
	require.NotNil(t, attached.DownloadExpiresAt)
	assert.True(t, attached.DownloadExpiresAt.After(time.Now()))

	reloaded, err := ds.GetAnnotationVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, attached.DownloadURL, reloaded.DownloadURL)
}

// failingStore rejects every upload, standing in for an unreachable
// storage backend.
type failingStore struct{}

func (failingStore) Upload(context.Context, string, []byte) (string, error) {
	return "", errors.New("storage unavailable")
}

func (failingStore) Presign(context.Context, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, errors.New("storage unavailable")
}

func TestPublishExportFailureLeavesNoPartialVersion(t *testing.T) {
	t.Parallel()
	ds := datastore.NewTestStore(t)
	settings := &conf.Settings{}
	p := NewPublisher(ds, nil, failingStore{}, settings, nil)
	ctx := context.Background()

	seedAnnotation(t, ds, 1, "detection", "car", datastore.StateConfirmed)

	_, err := p.Publish(ctx, &PublishRequest{ProjectID: 1, TaskType: "detection", ExportFormat: "coco-json"})
	require.Error(t, err)

	versions, err := ds.ListAnnotationVersions(ctx, 1, "detection")
	require.NoError(t, err)
	assert.Empty(t, versions)
}
