// Package staging manages the lifecycle of uploaded files on local
// disk between receipt and promotion to remote storage.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store owns a staging directory. Each staged file gets a unique
// path under it; the path belongs to exactly one owner at a time.
type Store struct {
	dir    string
	logger *zap.Logger
}

// File is a staged upload pending processing. Its backing path is
// deleted exactly once, via Discard, on every exit path.
type File struct {
	Path             string
	DeclaredMimeType string
	OriginalName     string
	SizeBytes        int64

	logger *zap.Logger
}

// NewStore creates the staging directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the staging directory root. Thumbnail temp files are
// written under the same root so one cleanup policy covers both.
func (s *Store) Dir() string {
	return s.dir
}

// Stage copies the upload to a uniquely named path. SizeBytes comes
// from the bytes actually written, not from upload headers, which may
// be stale after multipart buffering.
func (s *Store) Stage(r io.Reader, originalName, mimeType string) (*File, error) {
	path := filepath.Join(s.dir, uuid.NewString()+filepath.Ext(originalName))

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	written, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("remove partial staged file", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("write staged file: %w", err)
	}

	return &File{
		Path:             path,
		DeclaredMimeType: mimeType,
		OriginalName:     originalName,
		SizeBytes:        written,
		logger:           s.logger,
	}, nil
}

// Discard deletes the backing file. Safe to call more than once;
// removal errors are logged, never raised, so cleanup cannot turn a
// finished run into a failed one.
func (f *File) Discard() {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("discard staged file", zap.String("path", f.Path), zap.Error(err))
	}
}
