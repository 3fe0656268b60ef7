package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// ErrProbeTimeout is returned when the probe process exceeds its
// deadline. The child process is killed, never left orphaned.
var ErrProbeTimeout = errors.New("media probe timed out")

// ProbeResult is the subset of container/stream information the
// pipeline consumes.
type ProbeResult struct {
	HasVideoStream     bool
	Width              int
	Height             int
	DisplayAspectRatio string
	DurationSeconds    float64
}

// Prober reads container and stream headers of a media file without
// decoding it.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// FFprobe shells out to the ffprobe binary with a per-call timeout.
type FFprobe struct {
	Binary  string
	Timeout time.Duration
}

// NewFFprobe returns a prober using the ffprobe binary on PATH.
func NewFFprobe(timeout time.Duration) *FFprobe {
	return &FFprobe{Binary: "ffprobe", Timeout: timeout}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType          string `json:"codec_type"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe runs ffprobe and extracts the first video stream plus the
// container duration. CommandContext kills the child on deadline.
func (p *FFprobe) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s", ErrProbeTimeout, p.Timeout)
		}
		return nil, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

// parseProbeOutput extracts the container duration and the first
// video stream from ffprobe's JSON.
func parseProbeOutput(raw []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			result.DurationSeconds = d
		}
	}
	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		result.HasVideoStream = true
		result.Width = stream.Width
		result.Height = stream.Height
		result.DisplayAspectRatio = stream.DisplayAspectRatio
		break
	}
	return result, nil
}
