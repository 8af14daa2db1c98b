package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDataset(t *testing.T) {
	t.Parallel()
	ps := NewTestPlatformStore(t)
	ctx := context.Background()

	require.NoError(t, ps.DB.Create(&Dataset{ProjectID: 1, Name: "street scenes"}).Error)

	dataset, err := ps.GetDataset(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "street scenes", dataset.Name)

	_, err = ps.GetDataset(ctx, 999)
	require.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	ps := NewTestPlatformStore(t)
	ctx := context.Background()

	require.NoError(t, ps.DB.Create(&User{UserID: "userA", Name: "Alex", Role: "annotator"}).Error)

	user, err := ps.GetUser(ctx, "userA")
	require.NoError(t, err)
	assert.Equal(t, "Alex", user.Name)

	_, err = ps.GetUser(ctx, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestListProjectImages(t *testing.T) {
	t.Parallel()
	ps := NewTestPlatformStore(t)
	ctx := context.Background()

	require.NoError(t, ps.DB.Create(&DatasetImage{DatasetID: 1, ProjectID: 1, FileName: "a.jpg"}).Error)
	require.NoError(t, ps.DB.Create(&DatasetImage{DatasetID: 1, ProjectID: 1, FileName: "b.jpg"}).Error)
	require.NoError(t, ps.DB.Create(&DatasetImage{DatasetID: 2, ProjectID: 2, FileName: "other.jpg"}).Error)

	images, err := ps.ListProjectImages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "a.jpg", images[0].FileName)
}
