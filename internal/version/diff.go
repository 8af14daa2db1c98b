package version

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/geometry"
)

// ChangeType classifies one annotation's fate between two versions.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeRemoved   ChangeType = "removed"
	ChangeModified  ChangeType = "modified"
	ChangeUnchanged ChangeType = "unchanged"
)

// AnnotationChange is the per-annotation diff detail. ClassName is the
// class captured in the newer version for added and modified annotations,
// and in the older version for removed ones.
type AnnotationChange struct {
	AnnotationID uint       `json:"annotation_id"`
	ImageID      uint       `json:"image_id"`
	ClassName    string     `json:"class_name"`
	Change       ChangeType `json:"change"`
}

// ImageDiff aggregates changes for one image.
type ImageDiff struct {
	ImageID      uint               `json:"image_id"`
	Added        int                `json:"added"`
	Removed      int                `json:"removed"`
	Modified     int                `json:"modified"`
	Unchanged    int                `json:"unchanged"`
	TotalChanges int                `json:"total_changes"`
	Annotations  []AnnotationChange `json:"annotations"`
}

// ClassDiff aggregates changes for one class name.
type ClassDiff struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// Summary is the overall roll-up across all compared images.
type Summary struct {
	VersionA          uint                 `json:"version_a"`
	VersionB          uint                 `json:"version_b"`
	Added             int                  `json:"added"`
	Removed           int                  `json:"removed"`
	Modified          int                  `json:"modified"`
	Unchanged         int                  `json:"unchanged"`
	TotalChanges      int                  `json:"total_changes"`
	ImagesWithChanges int                  `json:"images_with_changes"`
	PerClass          map[string]ClassDiff `json:"per_class"`
}

// Comparison is the full diff result: overall summary plus per-image
// detail keyed by image ID.
type Comparison struct {
	Summary Summary             `json:"summary"`
	Images  map[uint]*ImageDiff `json:"images"`
}

// Differ computes structural diffs between two published versions.
type Differ struct {
	store datastore.Interface
	p     *Publisher
}

// NewDiffer creates a diff engine over the publisher's store.
func NewDiffer(p *Publisher) *Differ {
	return &Differ{store: p.store, p: p}
}

// Compare diffs version B against version A. Both versions must belong to
// the same project and task type. A non-nil imageID restricts the diff to
// that image. Snapshots are matched by their original annotation ID; an ID
// present only in B is added, only in A is removed, and IDs present in
// both are compared field by field on geometry, class, attributes, and
// confidence.
func (d *Differ) Compare(ctx context.Context, versionAID, versionBID uint, imageID *uint) (*Comparison, error) {
	start := time.Now()

	versionA, err := d.store.GetAnnotationVersion(ctx, versionAID)
	if err != nil {
		return nil, err
	}
	versionB, err := d.store.GetAnnotationVersion(ctx, versionBID)
	if err != nil {
		return nil, err
	}
	if versionA.ProjectID != versionB.ProjectID || versionA.TaskType != versionB.TaskType {
		return nil, errors.Newf("versions %s and %s belong to different partitions",
			versionA.VersionNumber, versionB.VersionNumber).
			Component("version").
			Category(errors.CategoryValidation).
			Context("project_a", versionA.ProjectID).
			Context("project_b", versionB.ProjectID).
			Build()
	}

	snapshotsA, err := d.loadSnapshots(ctx, versionAID, imageID)
	if err != nil {
		return nil, err
	}
	snapshotsB, err := d.loadSnapshots(ctx, versionBID, imageID)
	if err != nil {
		return nil, err
	}

	comparison := &Comparison{
		Summary: Summary{
			VersionA: versionAID,
			VersionB: versionBID,
			PerClass: map[string]ClassDiff{},
		},
		Images: map[uint]*ImageDiff{},
	}

	for _, img := range unionImageIDs(snapshotsA, snapshotsB) {
		diff := diffImage(img, snapshotsA[img], snapshotsB[img])
		comparison.Images[img] = diff

		comparison.Summary.Added += diff.Added
		comparison.Summary.Removed += diff.Removed
		comparison.Summary.Modified += diff.Modified
		comparison.Summary.Unchanged += diff.Unchanged
		comparison.Summary.TotalChanges += diff.TotalChanges
		if diff.TotalChanges > 0 {
			comparison.Summary.ImagesWithChanges++
		}
		for i := range diff.Annotations {
			c := diff.Annotations[i]
			entry := comparison.Summary.PerClass[c.ClassName]
			switch c.Change {
			case ChangeAdded:
				entry.Added++
			case ChangeRemoved:
				entry.Removed++
			case ChangeModified:
				entry.Modified++
			case ChangeUnchanged:
				continue
			}
			comparison.Summary.PerClass[c.ClassName] = entry
		}
	}

	if d.p != nil {
		d.p.metrics.RecordDiff(time.Since(start), comparison.Summary.ImagesWithChanges)
	}
	return comparison, nil
}

// CompareSummary returns only the overall aggregates. The per-image detail
// is still computed internally; there is no cheaper path to the summary.
func (d *Differ) CompareSummary(ctx context.Context, versionAID, versionBID uint, imageID *uint) (*Summary, error) {
	comparison, err := d.Compare(ctx, versionAID, versionBID, imageID)
	if err != nil {
		return nil, err
	}
	return &comparison.Summary, nil
}

// snapshotPayload is the subset of the frozen annotation payload the diff
// inspects.
type snapshotPayload struct {
	ClassID    string
	ClassName  string
	Geometry   string
	Attributes string
	Confidence *int
}

func (d *Differ) loadSnapshots(ctx context.Context, versionID uint, imageID *uint) (map[uint]map[uint]snapshotPayload, error) {
	rows, err := d.store.ListVersionSnapshots(ctx, versionID)
	if err != nil {
		return nil, err
	}
	byImage := map[uint]map[uint]snapshotPayload{}
	for i := range rows {
		if imageID != nil && rows[i].ImageID != *imageID {
			continue
		}
		var payload snapshotPayload
		if err := json.Unmarshal([]byte(rows[i].SnapshotData), &payload); err != nil {
			return nil, fmt.Errorf("decoding snapshot %d of version %d: %w", rows[i].ID, versionID, err)
		}
		if byImage[rows[i].ImageID] == nil {
			byImage[rows[i].ImageID] = map[uint]snapshotPayload{}
		}
		byImage[rows[i].ImageID][rows[i].AnnotationID] = payload
	}
	return byImage, nil
}

func unionImageIDs(a, b map[uint]map[uint]snapshotPayload) []uint {
	seen := map[uint]struct{}{}
	for id := range a {
		seen[id] = struct{}{}
	}
	for id := range b {
		seen[id] = struct{}{}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func diffImage(imageID uint, inA, inB map[uint]snapshotPayload) *ImageDiff {
	diff := &ImageDiff{ImageID: imageID}

	ids := map[uint]struct{}{}
	for id := range inA {
		ids[id] = struct{}{}
	}
	for id := range inB {
		ids[id] = struct{}{}
	}
	ordered := make([]uint, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, id := range ordered {
		a, okA := inA[id]
		b, okB := inB[id]
		change := AnnotationChange{AnnotationID: id, ImageID: imageID}
		switch {
		case okB && !okA:
			change.Change = ChangeAdded
			change.ClassName = b.ClassName
			diff.Added++
		case okA && !okB:
			change.Change = ChangeRemoved
			change.ClassName = a.ClassName
			diff.Removed++
		case payloadsEqual(a, b):
			change.Change = ChangeUnchanged
			change.ClassName = b.ClassName
			diff.Unchanged++
		default:
			change.Change = ChangeModified
			change.ClassName = b.ClassName
			diff.Modified++
		}
		diff.Annotations = append(diff.Annotations, change)
	}
	diff.TotalChanges = diff.Added + diff.Removed + diff.Modified
	return diff
}

func payloadsEqual(a, b snapshotPayload) bool {
	if a.ClassID != b.ClassID || a.ClassName != b.ClassName {
		return false
	}
	if !geometry.Equal([]byte(a.Geometry), []byte(b.Geometry)) {
		return false
	}
	if !geometry.Equal([]byte(a.Attributes), []byte(b.Attributes)) {
		return false
	}
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return false
	}
	if a.Confidence != nil && *a.Confidence != *b.Confidence {
		return false
	}
	return true
}
