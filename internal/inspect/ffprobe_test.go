package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	raw := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "display_aspect_ratio": "16:9"},
			{"codec_type": "video", "codec_name": "mjpeg", "width": 320, "height": 240}
		],
		"format": {"format_name": "mov,mp4,m4a", "duration": "12.640000"}
	}`)

	result, err := parseProbeOutput(raw)
	require.NoError(t, err)

	assert.True(t, result.HasVideoStream)
	// First video stream wins, the embedded cover art does not.
	assert.Equal(t, 1280, result.Width)
	assert.Equal(t, 720, result.Height)
	assert.Equal(t, "16:9", result.DisplayAspectRatio)
	assert.InDelta(t, 12.64, result.DurationSeconds, 1e-9)
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	raw := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "mp3"}],
		"format": {"duration": "201.3"}
	}`)

	result, err := parseProbeOutput(raw)
	require.NoError(t, err)

	assert.False(t, result.HasVideoStream)
	assert.InDelta(t, 201.3, result.DurationSeconds, 1e-9)
}

func TestParseProbeOutputMissingDuration(t *testing.T) {
	raw := []byte(`{"streams": [{"codec_type": "video", "width": 640, "height": 360}], "format": {}}`)

	result, err := parseProbeOutput(raw)
	require.NoError(t, err)

	assert.True(t, result.HasVideoStream)
	assert.Zero(t, result.DurationSeconds)
}

func TestParseProbeOutputInvalidJSON(t *testing.T) {
	_, err := parseProbeOutput([]byte("ffprobe exploded"))
	assert.Error(t, err)
}
