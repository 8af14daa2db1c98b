// Package objectstore abstracts artifact storage for version exports. The
// disk implementation writes under a configured root; the interface leaves
// room for remote backends without touching the publisher.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
)

// Store uploads export artifacts and produces time-limited download URLs.
type Store interface {
	// Upload writes data at the given relative path and returns the
	// stored location.
	Upload(ctx context.Context, path string, data []byte) (string, error)
	// Presign returns a download URL for a previously uploaded path and
	// the instant it stops being valid.
	Presign(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error)
}

// DiskStore keeps artifacts on the local filesystem. Presigned URLs are
// file URLs with an expiry timestamp; enforcement is left to whatever
// serves the files.
type DiskStore struct {
	root string
}

// NewDiskStore creates a disk-backed store rooted at the configured
// export path.
func NewDiskStore(settings *conf.Settings) (*DiskStore, error) {
	root := settings.Export.Path
	if root == "" {
		return nil, errors.Newf("export path is not configured").
			Component("objectstore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", root).
			Build()
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.Newf("invalid artifact path %q", path).
			Component("objectstore").
			Category(errors.CategoryValidation).
			Build()
	}
	return filepath.Join(s.root, clean), nil
}

// Upload writes the artifact atomically: temp file in the target directory,
// then rename.
func (s *DiskStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Build()
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", tmpName).
			Build()
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", tmpName).
			Build()
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", full).
			Build()
	}
	return path, nil
}

// Presign returns a file URL for the artifact together with its expiry.
func (s *DiskStore) Presign(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := os.Stat(full); err != nil {
		return "", time.Time{}, errors.New(err).
			Component("objectstore").
			Category(errors.CategoryFileIO).
			Context("path", full).
			Build()
	}
	expires := time.Now().Add(ttl)
	u := url.URL{
		Scheme:   "file",
		Path:     full,
		RawQuery: fmt.Sprintf("expires=%d", expires.Unix()),
	}
	return u.String(), expires, nil
}
