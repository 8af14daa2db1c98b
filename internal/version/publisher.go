// Package version implements annotation version publishing and diffing.
// A published version freezes the confirmed annotation set of one
// (project, task) partition into an immutable record plus per-annotation
// snapshots; the diff engine later compares two such frozen sets.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/export"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/logging"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/objectstore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/observability/metrics"
)

// PublishRequest describes one publish call.
type PublishRequest struct {
	ProjectID     uint
	TaskType      string
	VersionNumber string // auto-generated when empty
	Description   string
	ExportFormat  string // no export artifact when empty
	IncludeDraft  bool   // escape hatch for partial exports
	UserID        string
}

// Publisher freezes annotation sets into immutable versions.
type Publisher struct {
	store    datastore.Interface
	platform datastore.PlatformInterface
	objects  objectstore.Store
	settings *conf.Settings
	metrics  *metrics.LabelerMetrics
	log      *slog.Logger
}

// NewPublisher creates a version publisher. The platform store and object
// store are only used when a publish requests an export; both may be nil
// for deployments that never export.
func NewPublisher(store datastore.Interface, platform datastore.PlatformInterface, objects objectstore.Store, settings *conf.Settings, m *metrics.LabelerMetrics) *Publisher {
	log := logging.ForService("version")
	if log == nil {
		log = slog.Default().With("service", "version")
	}
	return &Publisher{
		store:    store,
		platform: platform,
		objects:  objects,
		settings: settings,
		metrics:  m,
		log:      log,
	}
}

// Publish snapshots the partition's annotation set into a new version. The
// version row, every snapshot row, and the optional export upload all
// happen in a single transaction; a failure at any step leaves no partial
// version behind. Concurrent publishes racing on the same version number
// resolve through the uniqueness constraint, with the loser receiving
// ErrDuplicateVersionNumber.
func (p *Publisher) Publish(ctx context.Context, req *PublishRequest) (*datastore.AnnotationVersion, error) {
	start := time.Now()

	// Resolve the serializer before touching the database so an unknown
	// format fails without a transaction.
	var serializer export.Serializer
	if req.ExportFormat != "" {
		var err error
		serializer, err = export.Get(req.ExportFormat)
		if err != nil {
			return nil, err
		}
	}

	states := []datastore.AnnotationState{datastore.StateConfirmed}
	if req.IncludeDraft {
		states = append(states, datastore.StateDraft)
	}

	var version *datastore.AnnotationVersion
	err := p.store.Transaction(ctx, func(tx datastore.Interface) error {
		annotations, err := tx.ListProjectAnnotations(ctx, req.ProjectID, req.TaskType, states...)
		if err != nil {
			return err
		}

		number := req.VersionNumber
		if number == "" {
			major, err := tx.LatestVersionMajor(ctx, req.ProjectID, req.TaskType)
			if err != nil {
				return err
			}
			number = fmt.Sprintf("v%d.0", major+1)
		}

		images := map[uint]struct{}{}
		for i := range annotations {
			images[annotations[i].ImageID] = struct{}{}
		}

		version = &datastore.AnnotationVersion{
			ProjectID:       req.ProjectID,
			TaskType:        req.TaskType,
			VersionNumber:   number,
			VersionType:     datastore.VersionTypePublished,
			Description:     req.Description,
			AnnotationCount: len(annotations),
			ImageCount:      len(images),
			ExportFormat:    req.ExportFormat,
			CreatedBy:       req.UserID,
		}
		if serializer != nil {
			version.ExportPath = artifactPath(req.ProjectID, req.TaskType, number)
		}
		if err := tx.CreateAnnotationVersion(ctx, version); err != nil {
			return err
		}

		snapshots := make([]datastore.AnnotationSnapshot, 0, len(annotations))
		for i := range annotations {
			payload, err := json.Marshal(annotations[i])
			if err != nil {
				return fmt.Errorf("freezing annotation %d: %w", annotations[i].ID, err)
			}
			snapshots = append(snapshots, datastore.AnnotationSnapshot{
				VersionID:    version.ID,
				AnnotationID: annotations[i].ID,
				ImageID:      annotations[i].ImageID,
				SnapshotData: string(payload),
			})
		}
		if err := tx.CreateAnnotationSnapshots(ctx, snapshots); err != nil {
			return err
		}

		if serializer != nil {
			if err := p.exportVersion(ctx, serializer, version, snapshots); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.metrics.RecordPublish("error", time.Since(start), 0)
		return nil, err
	}

	p.metrics.RecordPublish("success", time.Since(start), version.AnnotationCount)
	p.log.Info("published annotation version",
		"project_id", req.ProjectID,
		"task_type", req.TaskType,
		"version_number", version.VersionNumber,
		"annotations", version.AnnotationCount,
		"images", version.ImageCount)
	return version, nil
}

// exportVersion serializes the snapshot set and uploads the artifact. It
// runs inside the publish transaction so a storage failure aborts the
// whole publish.
func (p *Publisher) exportVersion(ctx context.Context, serializer export.Serializer, version *datastore.AnnotationVersion, snapshots []datastore.AnnotationSnapshot) error {
	if p.objects == nil {
		return fmt.Errorf("export format %q requested but no object store is configured", version.ExportFormat)
	}

	var images []export.ImageMeta
	if p.platform != nil {
		datasetImages, err := p.platform.ListProjectImages(ctx, version.ProjectID)
		if err != nil {
			return err
		}
		images = make([]export.ImageMeta, 0, len(datasetImages))
		for i := range datasetImages {
			images = append(images, export.ImageMeta{
				ID:       datasetImages[i].ID,
				FileName: datasetImages[i].FileName,
				Width:    datasetImages[i].Width,
				Height:   datasetImages[i].Height,
			})
		}
	}

	data, err := serializer.Serialize(&export.Request{
		Version:   version,
		Snapshots: snapshots,
		Images:    images,
	})
	if err != nil {
		return fmt.Errorf("serializing version %s: %w", version.VersionNumber, err)
	}

	if _, err := p.objects.Upload(ctx, version.ExportPath, data); err != nil {
		return fmt.Errorf("uploading export for version %s: %w", version.VersionNumber, err)
	}
	return nil
}

// AttachDownloadURL presigns the version's export artifact and records the
// URL on the version row. This is the only post-publish mutation a version
// row ever receives; the annotation content stays frozen.
func (p *Publisher) AttachDownloadURL(ctx context.Context, versionID uint) (*datastore.AnnotationVersion, error) {
	version, err := p.store.GetAnnotationVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.ExportPath == "" {
		return nil, fmt.Errorf("version %s has no export artifact", version.VersionNumber)
	}
	if p.objects == nil {
		return nil, fmt.Errorf("no object store configured")
	}

	url, expires, err := p.objects.Presign(ctx, version.ExportPath, p.settings.Export.PresignTTL)
	if err != nil {
		return nil, err
	}
	if err := p.store.SetVersionDownloadURL(ctx, version.ID, url, &expires); err != nil {
		return nil, err
	}
	version.DownloadURL = url
	version.DownloadExpiresAt = &expires
	return version, nil
}

// artifactPath builds the storage path for an export artifact. The uuid
// suffix keeps re-publishes of a deleted version from colliding with stale
// artifacts.
func artifactPath(projectID uint, taskType, versionNumber string) string {
	task := taskType
	if task == "" {
		task = "untagged"
	}
	return fmt.Sprintf("project-%d/%s/%s-%s.json", projectID, task, versionNumber, uuid.New().String()[:8])
}
