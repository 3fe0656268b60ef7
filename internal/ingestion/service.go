// Package ingestion drives staged media files through inspection,
// thumbnailing, and promotion to remote object storage.
package ingestion

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/media"
	"github.com/your-org/mediasink/internal/staging"
)

// Inspector extracts metadata from a staged file.
type Inspector interface {
	Inspect(ctx context.Context, path string, kind media.Kind) (media.Metadata, error)
}

// Thumbnailer produces a local preview file and returns its path.
type Thumbnailer interface {
	Generate(ctx context.Context, path string, kind media.Kind) (string, error)
}

// Store is the remote storage capability the orchestrator consumes.
type Store interface {
	Put(ctx context.Context, localPath, folder string) (remoteID, url string, err error)
	Delete(ctx context.Context, remoteIDOrURL string) error
}

// Publisher emits pipeline events. Publishing is best-effort; it
// never fails an ingestion run.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
}

// Orchestrator runs one staged file through the ingestion stages and
// guarantees staging cleanup on every exit path.
type Orchestrator struct {
	store       Store
	inspector   Inspector
	thumbnailer Thumbnailer
	events      Publisher
	reconcile   Publisher
	logger      *zap.Logger
	tracer      trace.Tracer

	mediaFolder string
	thumbFolder string
}

// Params collects the orchestrator's dependencies.
type Params struct {
	Store       Store
	Inspector   Inspector
	Thumbnailer Thumbnailer
	Events      Publisher
	Reconcile   Publisher
	Logger      *zap.Logger
	MediaFolder string
	ThumbFolder string
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		store:       p.Store,
		inspector:   p.Inspector,
		thumbnailer: p.Thumbnailer,
		events:      p.Events,
		reconcile:   p.Reconcile,
		logger:      p.Logger,
		tracer:      otel.Tracer("mediasink/ingestion"),
		mediaFolder: p.MediaFolder,
		thumbFolder: p.ThumbFolder,
	}
}

// Ingest promotes one staged file to remote storage and returns its
// record. On failure the error is a *media.IngestError naming the
// stage that failed. The staged file and any generated thumbnail are
// deleted on every path, success or failure.
func (o *Orchestrator) Ingest(ctx context.Context, file *staging.File) (*media.Record, error) {
	ctx, span := o.tracer.Start(ctx, "ingestion.Ingest",
		trace.WithAttributes(attribute.String("media.filename", file.OriginalName)))
	defer span.End()

	defer file.Discard()

	kind, err := media.KindFromMime(file.DeclaredMimeType)
	if err != nil {
		return nil, o.fail(file, media.StageStaged, err)
	}
	span.SetAttributes(attribute.String("media.kind", string(kind)))

	span.AddEvent("inspect")
	meta, err := o.inspector.Inspect(ctx, file.Path, kind)
	if err != nil {
		// Best-effort record over strict validation: a file we
		// cannot inspect still gets uploaded.
		o.logger.Warn("metadata extraction degraded",
			zap.String("filename", file.OriginalName), zap.Error(err))
		meta = media.Metadata{}
	}

	span.AddEvent("thumbnail")
	thumbPath, err := o.thumbnailer.Generate(ctx, file.Path, kind)
	if err != nil {
		o.logger.Warn("thumbnail generation failed, continuing without preview",
			zap.String("filename", file.OriginalName), zap.Error(err))
		thumbPath = ""
	}
	if thumbPath != "" {
		defer o.removeLocal(thumbPath)
	}

	span.AddEvent("upload-original")
	remoteID, url, err := o.store.Put(ctx, file.Path, o.mediaFolder)
	if err != nil {
		return nil, o.fail(file, media.StageUploadOriginal, err)
	}

	var thumbID, thumbURL string
	if thumbPath != "" {
		span.AddEvent("upload-thumbnail")
		thumbID, thumbURL, err = o.store.Put(ctx, thumbPath, o.thumbFolder)
		if err != nil {
			o.logger.Warn("thumbnail upload failed, record keeps no preview",
				zap.String("filename", file.OriginalName), zap.Error(err))
			thumbID, thumbURL = "", ""
		}
	}

	record := &media.Record{
		RemoteID:          remoteID,
		URL:               url,
		ThumbnailRemoteID: thumbID,
		ThumbnailURL:      thumbURL,
		Kind:              kind,
		Metadata:          meta,
		OriginalFilename:  file.OriginalName,
	}

	o.publishIngested(ctx, file, record)
	return record, nil
}

func (o *Orchestrator) fail(file *staging.File, stage media.Stage, cause error) *media.IngestError {
	return &media.IngestError{
		OriginalFilename: file.OriginalName,
		Stage:            stage,
		Cause:            cause,
	}
}

func (o *Orchestrator) removeLocal(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("remove local thumbnail", zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) publishIngested(ctx context.Context, file *staging.File, record *media.Record) {
	if o.events == nil {
		return
	}

	event := MediaIngestedEvent{
		ID:                uuid.NewString(),
		RemoteID:          record.RemoteID,
		URL:               record.URL,
		ThumbnailRemoteID: record.ThumbnailRemoteID,
		ThumbnailURL:      record.ThumbnailURL,
		Kind:              record.Kind,
		OriginalFilename:  record.OriginalFilename,
		SizeBytes:         file.SizeBytes,
		Metadata:          record.Metadata,
		CreatedAt:         time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.Error("marshal ingested event", zap.Error(err))
		return
	}

	headers := map[string]string{
		"event_type": "media.ingested",
	}
	if err := o.events.Publish(ctx, []byte(event.ID), payload, headers); err != nil {
		o.logger.Warn("publish ingested event", zap.Error(err))
	}
}

// DeleteRemote removes the original and thumbnail objects behind a
// record. Failures are soft: they are logged and queued for
// reconciliation so a provider outage never blocks the caller's own
// row removal. The returned slice names the identifiers that could
// not be removed.
func (o *Orchestrator) DeleteRemote(ctx context.Context, remoteIDsOrURLs ...string) []string {
	var failed []string
	for _, id := range remoteIDsOrURLs {
		if id == "" {
			continue
		}
		if err := o.store.Delete(ctx, id); err != nil {
			o.logger.Warn("remote delete soft-failed, queueing for reconciliation",
				zap.String("remote_id", id), zap.Error(err))
			o.publishReconcile(ctx, id, err)
			failed = append(failed, id)
		}
	}
	return failed
}

func (o *Orchestrator) publishReconcile(ctx context.Context, remoteID string, cause error) {
	if o.reconcile == nil {
		return
	}

	event := ReconcileEvent{
		RemoteID: remoteID,
		Reason:   cause.Error(),
		FailedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.Error("marshal reconcile event", zap.Error(err))
		return
	}

	headers := map[string]string{
		"event_type": "storage.reconcile",
	}
	if err := o.reconcile.Publish(ctx, []byte(remoteID), payload, headers); err != nil {
		o.logger.Error("publish reconcile event", zap.Error(err),
			zap.String("remote_id", remoteID))
	}
}
