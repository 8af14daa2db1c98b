package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
)

func newTestStore(t *testing.T) (*DiskStore, string) {
	t.Helper()
	settings := &conf.Settings{}
	settings.Export.Path = t.TempDir()
	store, err := NewDiskStore(settings)
	require.NoError(t, err)
	return store, settings.Export.Path
}

func TestUploadAndPresign(t *testing.T) {
	t.Parallel()
	store, root := newTestStore(t)
	ctx := context.Background()

	path, err := store.Upload(ctx, "project-1/detection/v1.0.json", []byte(`{"images":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "project-1/detection/v1.0.json", path)

	data, err := os.ReadFile(filepath.Join(root, path))
	require.NoError(t, err)
	assert.Equal(t, `{"images":[]}`, string(data))

	url, expires, err := store.Presign(ctx, path, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "v1.0.json")
	assert.Contains(t, url, "expires=")
	assert.True(t, expires.After(time.Now()))
}

func TestUploadOverwrites(t *testing.T) {
	t.Parallel()
	store, root := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upload(ctx, "a.json", []byte("one"))
	require.NoError(t, err)
	_, err = store.Upload(ctx, "a.json", []byte("two"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestRejectsEscapingPaths(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, path := range []string{"../outside.json", "/abs.json", "a/../../b.json", "."} {
		_, err := store.Upload(ctx, path, []byte("x"))
		assert.Error(t, err, "path %q", path)
	}
}

func TestPresignMissingArtifact(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	_, _, err := store.Presign(context.Background(), "missing.json", time.Hour)
	require.Error(t, err)
}
