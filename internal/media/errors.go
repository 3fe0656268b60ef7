package media

import "fmt"

// Stage names the pipeline step at which an ingestion run failed.
type Stage string

const (
	// StageStaged covers pre-flight rejections (unsupported kind)
	// that fail before any external call is made.
	StageStaged          Stage = "staged"
	StageInspect         Stage = "inspect"
	StageThumbnail       Stage = "thumbnail"
	StageUploadOriginal  Stage = "upload-original"
	StageUploadThumbnail Stage = "upload-thumbnail"
	// StageCancelled marks files the batch coordinator never
	// dispatched because the batch context was cancelled.
	StageCancelled Stage = "cancelled"
)

// IngestError is the terminal failure of one ingestion run. It never
// carries a live file handle, only enough detail for the caller to
// decide between retry and surfacing to the user.
type IngestError struct {
	OriginalFilename string `json:"original_filename"`
	Stage            Stage  `json:"stage"`
	Cause            error  `json:"-"`
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %q failed at %s: %v", e.OriginalFilename, e.Stage, e.Cause)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}
