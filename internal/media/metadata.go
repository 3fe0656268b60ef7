package media

import "time"

// Metadata is the structural and embedded metadata extracted from a
// staged file. Exactly one of Image or Video is set, keyed by Kind;
// both nil means extraction was skipped or degraded to empty.
type Metadata struct {
	Image *ImageMetadata `json:"image,omitempty"`
	Video *VideoMetadata `json:"video,omitempty"`
}

// Empty reports whether no metadata was extracted at all.
func (m Metadata) Empty() bool {
	return m.Image == nil && m.Video == nil
}

// ImageMetadata describes a raster image.
type ImageMetadata struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      string  `json:"format"`
	SizeBytes   int64   `json:"size_bytes"`
	AspectRatio float64 `json:"aspect_ratio"`
	Exif        *Exif   `json:"exif,omitempty"`
}

// Exif holds embedded capture metadata. Every field is best-effort:
// a missing or corrupt EXIF block leaves the whole struct absent.
type Exif struct {
	CameraMake          string     `json:"camera_make,omitempty"`
	CameraModel         string     `json:"camera_model,omitempty"`
	FocalLengthMm       float64    `json:"focal_length_mm,omitempty"`
	Aperture            float64    `json:"aperture,omitempty"`
	ShutterSpeedSeconds float64    `json:"shutter_speed_seconds,omitempty"`
	ISO                 int        `json:"iso,omitempty"`
	TakenAt             *time.Time `json:"taken_at,omitempty"`
	Location            *Location  `json:"location,omitempty"`
}

// Location is a GPS position embedded in capture metadata.
type Location struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	AreaName string  `json:"area_name,omitempty"`
}

// VideoMetadata describes a video container. A container with no
// video stream carries only Format and SizeBytes.
type VideoMetadata struct {
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	Format          string `json:"format"`
	SizeBytes       int64  `json:"size_bytes"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
}
