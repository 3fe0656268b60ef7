// Package objectstore wraps the configured object-storage provider
// behind the small capability surface the ingestion pipeline needs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrTimeout marks a storage call that exceeded its own deadline,
// distinct from any client-library default.
var ErrTimeout = errors.New("object store call timed out")

// Config contains the information required to talk to an object store.
type Config struct {
	Provider      string
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
	CallTimeout   time.Duration
}

// Client represents the capabilities the ingestion pipeline expects.
// Delete is idempotent: removing an object the provider no longer
// knows about is success.
type Client interface {
	Put(ctx context.Context, localPath, folder string) (remoteID, url string, err error)
	Delete(ctx context.Context, remoteIDOrURL string) error
	Close() error
}

// New creates an object store client based on the given configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

type minioClient struct {
	client      *minio.Client
	bucket      string
	baseURL     string
	callTimeout time.Duration
}

func newMinioClient(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &minioClient{
		client:      cl,
		bucket:      cfg.Bucket,
		baseURL:     baseURL,
		callTimeout: cfg.CallTimeout,
	}, nil
}

// Put uploads the file under upload/<folder>/<uuid><ext> and returns
// the object key as the remote identifier plus the public URL.
func (m *minioClient) Put(ctx context.Context, localPath, folder string) (string, string, error) {
	ctx, cancel := m.withDeadline(ctx)
	defer cancel()

	ext := strings.ToLower(filepath.Ext(localPath))
	key := path.Join("upload", folder, uuid.NewString()+ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", "", fmt.Errorf("put %s: %w", key, ErrTimeout)
		}
		return "", "", fmt.Errorf("put object %s: %w", key, err)
	}

	url := fmt.Sprintf("%s/%s/%s", m.baseURL, m.bucket, key)
	return key, url, nil
}

// Delete removes an object by remote identifier or by a previously
// issued URL. A provider-side "not found" is treated as success.
func (m *minioClient) Delete(ctx context.Context, remoteIDOrURL string) error {
	ctx, cancel := m.withDeadline(ctx)
	defer cancel()

	key := ObjectKey(remoteIDOrURL)
	if key == "" {
		return fmt.Errorf("no object key in %q", remoteIDOrURL)
	}

	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("delete %s: %w", key, ErrTimeout)
		}
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (m *minioClient) Close() error {
	return nil
}

func (m *minioClient) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.callTimeout)
}

// ObjectKey recovers the object key from a remote identifier or URL.
// Historical records may only carry the URL; keys issued by this
// gateway always live under the upload/ prefix, so the key is the
// last /upload/ marker onward.
func ObjectKey(remoteIDOrURL string) string {
	if !strings.Contains(remoteIDOrURL, "://") {
		return strings.TrimPrefix(remoteIDOrURL, "/")
	}
	idx := strings.LastIndex(remoteIDOrURL, "/upload/")
	if idx < 0 {
		return ""
	}
	key := strings.TrimPrefix(remoteIDOrURL[idx:], "/")
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key
}
