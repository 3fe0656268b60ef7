// Package thumbnail produces fixed-box JPEG previews from staged
// image and video files.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/inspect"
	"github.com/your-org/mediasink/internal/media"

	_ "image/png"
)

// Generator writes preview assets into a scratch directory. Output
// names carry a random suffix so concurrent runs never collide.
type Generator struct {
	dir     string
	width   int
	height  int
	quality int
	prober  inspect.Prober
	ffmpeg  string
	timeout time.Duration
	logger  *zap.Logger
}

// Config tunes the generated previews.
type Config struct {
	Dir     string
	Width   int
	Height  int
	Quality int
	Timeout time.Duration
}

// New constructs a Generator. The prober supplies video duration for
// frame sampling.
func New(cfg Config, prober inspect.Prober, logger *zap.Logger) *Generator {
	return &Generator{
		dir:     cfg.Dir,
		width:   cfg.Width,
		height:  cfg.Height,
		quality: cfg.Quality,
		prober:  prober,
		ffmpeg:  "ffmpeg",
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Generate produces a cover-cropped JPEG preview and returns its
// path. The caller owns the file and is responsible for deleting it.
func (g *Generator) Generate(ctx context.Context, path string, kind media.Kind) (string, error) {
	var (
		img image.Image
		err error
	)
	switch kind {
	case media.KindImage:
		img, err = imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			err = fmt.Errorf("open image: %w", err)
		}
	case media.KindVideo:
		img, err = g.extractFrame(ctx, path)
	default:
		err = fmt.Errorf("%w: %q", media.ErrUnsupportedKind, kind)
	}
	if err != nil {
		return "", err
	}

	thumb := imaging.Fill(img, g.width, g.height, imaging.Center, imaging.Lanczos)

	outPath := filepath.Join(g.dir, "thumb-"+uuid.NewString()+".jpg")
	if err := imaging.Save(thumb, outPath, imaging.JPEGQuality(g.quality)); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return outPath, nil
}

// extractFrame samples one frame at 10% of the probed duration,
// falling back to the first decodable frame when the duration is
// unknown or the seek fails.
func (g *Generator) extractFrame(ctx context.Context, path string) (image.Image, error) {
	var seekSeconds float64
	if probe, err := g.prober.Probe(ctx, path); err == nil && probe.DurationSeconds > 0 {
		seekSeconds = probe.DurationSeconds * 0.10
	} else if err != nil {
		g.logger.Debug("probe before frame extraction failed", zap.String("path", path), zap.Error(err))
	}

	if seekSeconds > 0 {
		img, err := g.runFFmpeg(ctx, path, seekSeconds)
		if err == nil {
			return img, nil
		}
		g.logger.Debug("seeked frame extraction failed, retrying from start",
			zap.String("path", path), zap.Error(err))
	}

	return g.runFFmpeg(ctx, path, 0)
}

func (g *Generator) runFFmpeg(ctx context.Context, path string, seekSeconds float64) (image.Image, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	args := []string{}
	if seekSeconds > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", seekSeconds))
	}
	args = append(args,
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, g.ffmpeg, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode extracted frame: %w", err)
	}
	return img, nil
}
