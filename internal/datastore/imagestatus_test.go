package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveStatus(t *testing.T, ds *DataStore, imageID uint, taskType string) {
	t.Helper()
	require.NoError(t, ds.SaveImageStatus(context.Background(), &ImageAnnotationStatus{
		ProjectID:        1,
		ImageID:          imageID,
		TaskType:         taskType,
		Status:           StatusInProgress,
		TotalAnnotations: 1,
		DraftAnnotations: 1,
	}))
}

func TestListImageStatusesPartitionFilter(t *testing.T) {
	t.Parallel()
	ds := NewTestStore(t)
	ctx := context.Background()

	saveStatus(t, ds, 1, "detection")
	saveStatus(t, ds, 2, "detection")
	saveStatus(t, ds, 1, "") // untagged partition

	all, err := ds.ListImageStatuses(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	detection := "detection"
	tagged, err := ds.ListImageStatuses(ctx, 1, &detection)
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	// The empty string is the untagged partition, matched by exact
	// equality just like everywhere else, not a wildcard.
	untaggedTask := ""
	untagged, err := ds.ListImageStatuses(ctx, 1, &untaggedTask)
	require.NoError(t, err)
	require.Len(t, untagged, 1)
	assert.Equal(t, uint(1), untagged[0].ImageID)
	assert.Equal(t, "", untagged[0].TaskType)
}
