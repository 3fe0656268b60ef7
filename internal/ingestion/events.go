package ingestion

import (
	"time"

	"github.com/your-org/mediasink/internal/media"
)

// MediaIngestedEvent is emitted when a file has been promoted to
// remote storage and its record produced.
type MediaIngestedEvent struct {
	ID                string         `json:"id"`
	RemoteID          string         `json:"remote_id"`
	URL               string         `json:"url"`
	ThumbnailRemoteID string         `json:"thumbnail_remote_id,omitempty"`
	ThumbnailURL      string         `json:"thumbnail_url,omitempty"`
	Kind              media.Kind     `json:"kind"`
	OriginalFilename  string         `json:"original_filename"`
	SizeBytes         int64          `json:"size_bytes"`
	Metadata          media.Metadata `json:"metadata"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ReconcileEvent queues a remote object whose delete soft-failed so a
// background task can retry the removal later.
type ReconcileEvent struct {
	RemoteID string    `json:"remote_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
