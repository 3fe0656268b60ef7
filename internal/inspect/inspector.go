// Package inspect extracts structural and embedded metadata from
// staged media files.
package inspect

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/media"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Inspector reads metadata from staged files. It never mutates its
// input.
type Inspector struct {
	prober Prober
	logger *zap.Logger
}

// New constructs an Inspector.
func New(prober Prober, logger *zap.Logger) *Inspector {
	return &Inspector{prober: prober, logger: logger}
}

// Inspect extracts metadata for the given kind. Image EXIF extraction
// is a second, independent step whose failure leaves Exif absent.
func (i *Inspector) Inspect(ctx context.Context, path string, kind media.Kind) (media.Metadata, error) {
	switch kind {
	case media.KindImage:
		return i.inspectImage(path)
	case media.KindVideo:
		return i.inspectVideo(ctx, path)
	default:
		return media.Metadata{}, fmt.Errorf("%w: %q", media.ErrUnsupportedKind, kind)
	}
}

func (i *Inspector) inspectImage(path string) (media.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	// Header-only decode; pixel data stays compressed.
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("decode image header: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("stat image: %w", err)
	}

	meta := &media.ImageMetadata{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    format,
		SizeBytes: stat.Size(),
	}
	if cfg.Height > 0 {
		meta.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}

	if exif := extractExif(path); exif != nil {
		meta.Exif = exif
	} else {
		i.logger.Debug("no usable exif block", zap.String("path", path))
	}

	return media.Metadata{Image: meta}, nil
}

func (i *Inspector) inspectVideo(ctx context.Context, path string) (media.Metadata, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("stat video: %w", err)
	}

	meta := &media.VideoMetadata{
		Format:    containerFormat(path),
		SizeBytes: stat.Size(),
	}

	probe, err := i.prober.Probe(ctx, path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("probe video: %w", err)
	}

	// A container without a video stream still yields format and
	// size. Rejecting audio-only uploads is the caller's concern.
	if probe.HasVideoStream {
		meta.Width = probe.Width
		meta.Height = probe.Height
		meta.AspectRatio = probe.DisplayAspectRatio
		meta.DurationSeconds = int64(math.Floor(probe.DurationSeconds))
	}

	return media.Metadata{Video: meta}, nil
}

func containerFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
