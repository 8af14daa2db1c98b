// Package imagelock implements the image lock manager: short-lived,
// per-(project, image) exclusive editing leases tied to a user. Locks are
// advisory coordination for annotation UIs; they are layered on top of, not
// a substitute for, the per-annotation optimistic locking in the datastore.
package imagelock

import (
	"context"
	"log/slog"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/logging"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/observability/metrics"
)

// Outcome tags the result of a lock operation. Contention outcomes
// (already_locked, not_owner, not_locked) are normal multi-user flow, not
// errors.
type Outcome string

const (
	OutcomeAcquired      Outcome = "acquired"
	OutcomeRefreshed     Outcome = "refreshed"
	OutcomeAlreadyLocked Outcome = "already_locked"
	OutcomeUpdated       Outcome = "updated"
	OutcomeReleased      Outcome = "released"
	OutcomeNotLocked     Outcome = "not_locked"
	OutcomeNotOwner      Outcome = "not_owner"
)

// Result is the structured outcome of a lock operation. Lock carries the
// current lock row where one exists: the caller's lease on success, the
// holder's lease on already_locked / not_owner.
type Result struct {
	Outcome Outcome
	Lock    *datastore.ImageLock
}

// Manager grants, refreshes and releases image editing leases.
type Manager struct {
	store    datastore.Interface
	duration time.Duration
	metrics  *metrics.LabelerMetrics
	log      *slog.Logger

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewManager creates a lock manager using the configured lease duration.
func NewManager(store datastore.Interface, settings *conf.Settings, m *metrics.LabelerMetrics) *Manager {
	log := logging.ForService("imagelock")
	if log == nil {
		log = slog.Default().With("service", "imagelock")
	}
	return &Manager{
		store:    store,
		duration: settings.Locking.Duration,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Acquire attempts to take the editing lease for (project, image). Expired
// locks are swept first, so a lease abandoned by a crashed client is taken
// over rather than deadlocking the image.
func (m *Manager) Acquire(ctx context.Context, projectID, imageID uint, userID string) (*Result, error) {
	m.sweep(ctx, projectID)
	now := m.now()

	existing, err := m.store.GetImageLock(ctx, projectID, imageID)
	switch {
	case errors.Is(err, datastore.ErrLockNotFound):
		return m.create(ctx, projectID, imageID, userID, now)
	case err != nil:
		return nil, err
	}

	if existing.UserID == userID {
		existing.HeartbeatAt = now
		existing.ExpiresAt = now.Add(m.duration)
		if err := m.store.SaveImageLock(ctx, existing); err != nil {
			return nil, err
		}
		m.record("acquire", OutcomeRefreshed)
		return &Result{Outcome: OutcomeRefreshed, Lock: existing}, nil
	}

	if existing.Expired(now) {
		// Sweep raced with a fresh expiry; take the lease over.
		if _, err := m.store.DeleteImageLock(ctx, projectID, imageID); err != nil {
			return nil, err
		}
		return m.create(ctx, projectID, imageID, userID, now)
	}

	m.record("acquire", OutcomeAlreadyLocked)
	return &Result{Outcome: OutcomeAlreadyLocked, Lock: existing}, nil
}

// create inserts a fresh lease. When two acquirers race, the unique index
// lets exactly one win; the loser reports already_locked with the winner's
// lease.
func (m *Manager) create(ctx context.Context, projectID, imageID uint, userID string, now time.Time) (*Result, error) {
	lock := &datastore.ImageLock{
		ProjectID:   projectID,
		ImageID:     imageID,
		UserID:      userID,
		LockedAt:    now,
		HeartbeatAt: now,
		ExpiresAt:   now.Add(m.duration),
	}
	err := m.store.CreateImageLock(ctx, lock)
	if errors.Is(err, datastore.ErrLockExists) {
		winner, getErr := m.store.GetImageLock(ctx, projectID, imageID)
		if getErr != nil {
			return nil, getErr
		}
		m.record("acquire", OutcomeAlreadyLocked)
		return &Result{Outcome: OutcomeAlreadyLocked, Lock: winner}, nil
	}
	if err != nil {
		return nil, err
	}

	m.log.Debug("lock acquired",
		"project_id", projectID, "image_id", imageID, "user_id", userID,
		"expires_at", lock.ExpiresAt)
	m.record("acquire", OutcomeAcquired)
	return &Result{Outcome: OutcomeAcquired, Lock: lock}, nil
}

// Heartbeat extends the lease deadline for the owning user.
func (m *Manager) Heartbeat(ctx context.Context, projectID, imageID uint, userID string) (*Result, error) {
	lock, err := m.store.GetImageLock(ctx, projectID, imageID)
	if errors.Is(err, datastore.ErrLockNotFound) {
		m.record("heartbeat", OutcomeNotLocked)
		return &Result{Outcome: OutcomeNotLocked}, nil
	}
	if err != nil {
		return nil, err
	}
	if lock.UserID != userID {
		m.record("heartbeat", OutcomeNotOwner)
		return &Result{Outcome: OutcomeNotOwner, Lock: lock}, nil
	}

	now := m.now()
	lock.HeartbeatAt = now
	lock.ExpiresAt = now.Add(m.duration)
	if err := m.store.SaveImageLock(ctx, lock); err != nil {
		return nil, err
	}
	m.record("heartbeat", OutcomeUpdated)
	return &Result{Outcome: OutcomeUpdated, Lock: lock}, nil
}

// Release deletes the lease. Only the owning user may release; a non-owner
// gets not_owner and the lease is untouched.
func (m *Manager) Release(ctx context.Context, projectID, imageID uint, userID string) (*Result, error) {
	lock, err := m.store.GetImageLock(ctx, projectID, imageID)
	if errors.Is(err, datastore.ErrLockNotFound) {
		m.record("release", OutcomeNotLocked)
		return &Result{Outcome: OutcomeNotLocked}, nil
	}
	if err != nil {
		return nil, err
	}
	if lock.UserID != userID {
		m.record("release", OutcomeNotOwner)
		return &Result{Outcome: OutcomeNotOwner, Lock: lock}, nil
	}

	if _, err := m.store.DeleteImageLock(ctx, projectID, imageID); err != nil {
		return nil, err
	}
	m.record("release", OutcomeReleased)
	return &Result{Outcome: OutcomeReleased}, nil
}

// ForceRelease unconditionally deletes the lease regardless of owner or
// expiry. Administrative override.
func (m *Manager) ForceRelease(ctx context.Context, projectID, imageID uint) (*Result, error) {
	n, err := m.store.DeleteImageLock(ctx, projectID, imageID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		m.record("force_release", OutcomeNotLocked)
		return &Result{Outcome: OutcomeNotLocked}, nil
	}
	m.log.Info("lock force-released", "project_id", projectID, "image_id", imageID)
	m.record("force_release", OutcomeReleased)
	return &Result{Outcome: OutcomeReleased}, nil
}

// ListActive sweeps expired locks and returns the remaining leases for the
// project, for UI lock indicators.
func (m *Manager) ListActive(ctx context.Context, projectID uint) ([]datastore.ImageLock, error) {
	m.sweep(ctx, projectID)
	locks, err := m.store.ListImageLocks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	m.metrics.SetActiveLocks(len(locks))
	return locks, nil
}

// Status sweeps expired locks and returns the current lease for the image,
// or nil when the image is unlocked.
func (m *Manager) Status(ctx context.Context, projectID, imageID uint) (*datastore.ImageLock, error) {
	m.sweep(ctx, projectID)
	lock, err := m.store.GetImageLock(ctx, projectID, imageID)
	if errors.Is(err, datastore.ErrLockNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// sweep opportunistically removes expired lock rows, keeping the table small
// without a background reaper. Sweep failures are logged and otherwise
// ignored; the expiry check in Acquire still guards correctness.
func (m *Manager) sweep(ctx context.Context, projectID uint) {
	n, err := m.store.DeleteExpiredImageLocks(ctx, projectID, m.now())
	if err != nil {
		m.log.Warn("expired lock sweep failed", "project_id", projectID, "error", err)
		return
	}
	m.metrics.RecordExpiredLocksSwept(n)
}

func (m *Manager) record(operation string, outcome Outcome) {
	m.metrics.RecordLockOperation(operation, string(outcome))
}
