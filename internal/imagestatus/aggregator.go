// Package imagestatus keeps the per-(project, image, task) rollup status
// consistent with the actual annotation rows. Update is an explicit,
// synchronous step in the same unit of work as every annotation mutation,
// not a database trigger.
package imagestatus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/logging"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/observability/metrics"
)

// Aggregator derives and caches rollup status rows from annotation state.
type Aggregator struct {
	store   datastore.Interface
	cache   *gocache.Cache
	metrics *metrics.LabelerMetrics
	log     *slog.Logger
}

// NewAggregator creates a status aggregator. A zero cache TTL disables the
// read cache entirely.
func NewAggregator(store datastore.Interface, settings *conf.Settings, m *metrics.LabelerMetrics) *Aggregator {
	log := logging.ForService("imagestatus")
	if log == nil {
		log = slog.Default().With("service", "imagestatus")
	}
	var c *gocache.Cache
	if ttl := settings.Status.CacheTTL; ttl > 0 {
		c = gocache.New(ttl, 2*ttl)
	}
	return &Aggregator{store: store, cache: c, metrics: m, log: log}
}

// Update recomputes the rollup row for one partition from the current
// annotation rows. Callers must invoke it after every annotation
// create/update/delete. When the last annotation is gone the status row is
// deleted and (nil, nil) is returned: a fully-deleted image reverts to "no
// status", not "not-started".
//
// The whole recompute runs in one transaction so concurrent updates each
// recompute from a fresh read rather than racing on stale counts.
func (a *Aggregator) Update(ctx context.Context, projectID, imageID uint, taskType string) (*datastore.ImageAnnotationStatus, error) {
	start := time.Now()
	defer func() { a.metrics.RecordStatusRecompute(time.Since(start)) }()

	var result *datastore.ImageAnnotationStatus
	err := a.store.Transaction(ctx, func(tx datastore.Interface) error {
		status, err := recompute(ctx, tx, projectID, imageID, taskType)
		if err != nil {
			return err
		}
		result = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.Invalidate(projectID, imageID, taskType)
	return result, nil
}

// UpdateInTx is Update running inside an existing transaction, for callers
// (the confirmation workflow) that combine the recompute with other writes
// atomically. The caller is responsible for cache invalidation afterwards.
func (a *Aggregator) UpdateInTx(ctx context.Context, tx datastore.Interface, projectID, imageID uint, taskType string) (*datastore.ImageAnnotationStatus, error) {
	return recompute(ctx, tx, projectID, imageID, taskType)
}

// recompute derives the rollup purely from current annotation rows plus the
// existing row's manual confirmation flag.
func recompute(ctx context.Context, tx datastore.Interface, projectID, imageID uint, taskType string) (*datastore.ImageAnnotationStatus, error) {
	annotations, err := tx.ListImageAnnotations(ctx, projectID, imageID, taskType)
	if err != nil {
		return nil, err
	}

	if len(annotations) == 0 {
		if err := tx.DeleteImageStatus(ctx, projectID, imageID, taskType); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var confirmed, draft int
	firstModified := annotations[0].CreatedAt
	lastModified := annotations[0].UpdatedAt
	for i := range annotations {
		switch annotations[i].AnnotationState {
		case datastore.StateDraft:
			draft++
		case datastore.StateConfirmed, datastore.StateVerified:
			confirmed++
		}
		if annotations[i].CreatedAt.Before(firstModified) {
			firstModified = annotations[i].CreatedAt
		}
		if annotations[i].UpdatedAt.After(lastModified) {
			lastModified = annotations[i].UpdatedAt
		}
	}

	status := &datastore.ImageAnnotationStatus{
		ProjectID:            projectID,
		ImageID:              imageID,
		TaskType:             taskType,
		TotalAnnotations:     len(annotations),
		ConfirmedAnnotations: confirmed,
		DraftAnnotations:     draft,
		FirstModifiedAt:      &firstModified,
		LastModifiedAt:       &lastModified,
	}

	existing, err := tx.GetImageStatus(ctx, projectID, imageID, taskType)
	switch {
	case err == nil:
		status.ID = existing.ID
		status.IsImageConfirmed = existing.IsImageConfirmed
		status.ConfirmedAt = existing.ConfirmedAt
		status.CreatedAt = existing.CreatedAt
		// FirstModifiedAt is monotonically non-increasing across recomputes.
		if existing.FirstModifiedAt != nil && existing.FirstModifiedAt.Before(firstModified) {
			status.FirstModifiedAt = existing.FirstModifiedAt
		}
	case errors.Is(err, datastore.ErrStatusNotFound):
		// First annotation write for this partition creates the row lazily.
	default:
		return nil, err
	}

	// Never not-started once any annotation exists; completed only via the
	// manual confirmation flag.
	if status.IsImageConfirmed {
		status.Status = datastore.StatusCompleted
	} else {
		status.Status = datastore.StatusInProgress
	}

	if err := tx.SaveImageStatus(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

// Get returns the rollup row for a partition, serving from the read cache
// when enabled. Returns datastore.ErrStatusNotFound when no row exists.
func (a *Aggregator) Get(ctx context.Context, projectID, imageID uint, taskType string) (*datastore.ImageAnnotationStatus, error) {
	key := cacheKey(projectID, imageID, taskType)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			a.metrics.RecordStatusCacheOp("hit")
			status := cached.(datastore.ImageAnnotationStatus)
			return &status, nil
		}
		a.metrics.RecordStatusCacheOp("miss")
	}

	status, err := a.store.GetImageStatus(ctx, projectID, imageID, taskType)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.SetDefault(key, *status)
	}
	return status, nil
}

// ListProject returns rollup rows for a project, uncached. A nil taskType
// spans every partition; &"" selects the untagged partition.
func (a *Aggregator) ListProject(ctx context.Context, projectID uint, taskType *string) ([]datastore.ImageAnnotationStatus, error) {
	return a.store.ListImageStatuses(ctx, projectID, taskType)
}

// Invalidate drops the cached rollup for a partition.
func (a *Aggregator) Invalidate(projectID, imageID uint, taskType string) {
	if a.cache == nil {
		return
	}
	a.cache.Delete(cacheKey(projectID, imageID, taskType))
	a.metrics.RecordStatusCacheOp("invalidate")
}

func cacheKey(projectID, imageID uint, taskType string) string {
	return fmt.Sprintf("%d:%d:%s", projectID, imageID, taskType)
}
