package media

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an upload by its declared MIME type prefix.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ErrUnsupportedKind is returned when a MIME type maps to neither
// image nor video. Unknown prefixes are a rejection, not a default.
var ErrUnsupportedKind = errors.New("unsupported media kind")

// KindFromMime derives the Kind from a declared MIME type.
func KindFromMime(mimeType string) (Kind, error) {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.ToLower(strings.TrimSpace(base))

	switch {
	case strings.HasPrefix(base, "image/"):
		return KindImage, nil
	case strings.HasPrefix(base, "video/"):
		return KindVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, mimeType)
	}
}
