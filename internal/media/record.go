package media

// Record is the durable result of one successful ingestion. The
// caller owns it once returned; the pipeline keeps no reference.
type Record struct {
	RemoteID          string   `json:"remote_id"`
	URL               string   `json:"url"`
	ThumbnailRemoteID string   `json:"thumbnail_remote_id,omitempty"`
	ThumbnailURL      string   `json:"thumbnail_url,omitempty"`
	Kind              Kind     `json:"kind"`
	Metadata          Metadata `json:"metadata"`
	OriginalFilename  string   `json:"original_filename"`
}

// BatchReport aggregates the per-file outcomes of one batch run.
// Entry order follows completion order, not input order.
type BatchReport struct {
	Succeeded []Record       `json:"succeeded"`
	Failed    []*IngestError `json:"failed"`
}
