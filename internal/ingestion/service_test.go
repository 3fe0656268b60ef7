package ingestion

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/media"
	"github.com/your-org/mediasink/internal/staging"
)

// fakeStore records calls and fails on demand, keyed by destination
// folder for Put and by identifier for Delete.
type fakeStore struct {
	mu        sync.Mutex
	puts      []string
	deletes   []string
	putErr    map[string]error
	deleteErr map[string]error

	inFlight    int
	maxInFlight int
	block       chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		putErr:    map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (s *fakeStore) Put(ctx context.Context, localPath, folder string) (string, string, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	if err := s.putErr[folder]; err != nil {
		return "", "", err
	}

	s.puts = append(s.puts, localPath)
	key := path.Join("upload", folder, filepath.Base(localPath))
	return key, "https://cdn.test/mediasink/" + key, nil
}

func (s *fakeStore) Delete(ctx context.Context, remoteIDOrURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[remoteIDOrURL]; err != nil {
		return err
	}
	s.deletes = append(s.deletes, remoteIDOrURL)
	return nil
}

type fakeInspector struct {
	meta media.Metadata
	err  error
}

func (f *fakeInspector) Inspect(ctx context.Context, path string, kind media.Kind) (media.Metadata, error) {
	return f.meta, f.err
}

// fakeThumbnailer writes a real temp file so cleanup behavior is
// observable.
type fakeThumbnailer struct {
	dir string
	err error

	mu    sync.Mutex
	paths []string
}

func (f *fakeThumbnailer) Generate(ctx context.Context, sourcePath string, kind media.Kind) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out, err := os.CreateTemp(f.dir, "thumb-*.jpg")
	if err != nil {
		return "", err
	}
	if _, err := out.WriteString("jpeg bytes"); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.paths = append(f.paths, out.Name())
	f.mu.Unlock()
	return out.Name(), nil
}

type publishedMessage struct {
	key     string
	value   string
	headers map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, key, value []byte, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{
		key:     string(key),
		value:   string(value),
		headers: headers,
	})
	return nil
}

type testPipeline struct {
	staging      *staging.Store
	store        *fakeStore
	inspector    *fakeInspector
	thumbnailer  *fakeThumbnailer
	events       *fakePublisher
	reconcile    *fakePublisher
	orchestrator *Orchestrator
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()

	stagingStore, err := staging.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	p := &testPipeline{
		staging: stagingStore,
		store:   newFakeStore(),
		inspector: &fakeInspector{meta: media.Metadata{
			Image: &media.ImageMetadata{Width: 640, Height: 480, Format: "jpeg", SizeBytes: 10, AspectRatio: 640.0 / 480.0},
		}},
		thumbnailer: &fakeThumbnailer{dir: t.TempDir()},
		events:      &fakePublisher{},
		reconcile:   &fakePublisher{},
	}
	p.orchestrator = NewOrchestrator(Params{
		Store:       p.store,
		Inspector:   p.inspector,
		Thumbnailer: p.thumbnailer,
		Events:      p.events,
		Reconcile:   p.reconcile,
		Logger:      zap.NewNop(),
		MediaFolder: "media",
		ThumbFolder: "thumbnails",
	})
	return p
}

func (p *testPipeline) stage(t *testing.T, name, mimeType string) *staging.File {
	t.Helper()
	file, err := p.staging.Stage(strings.NewReader("file contents"), name, mimeType)
	require.NoError(t, err)
	return file
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expected %s to be deleted", path)
}

func TestIngestSuccess(t *testing.T) {
	p := newTestPipeline(t)
	file := p.stage(t, "sunset.jpg", "image/jpeg")

	record, err := p.orchestrator.Ingest(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, media.KindImage, record.Kind)
	assert.Equal(t, "sunset.jpg", record.OriginalFilename)
	assert.Contains(t, record.RemoteID, "upload/media/")
	assert.Contains(t, record.URL, record.RemoteID)
	assert.Contains(t, record.ThumbnailRemoteID, "upload/thumbnails/")
	assert.NotEmpty(t, record.ThumbnailURL)
	require.NotNil(t, record.Metadata.Image)
	assert.Equal(t, 640, record.Metadata.Image.Width)

	// Staged file and local thumbnail are gone after the run.
	assertGone(t, file.Path)
	for _, thumb := range p.thumbnailer.paths {
		assertGone(t, thumb)
	}

	require.Len(t, p.events.messages, 1)
	assert.Equal(t, "media.ingested", p.events.messages[0].headers["event_type"])
	assert.Contains(t, p.events.messages[0].value, record.RemoteID)
}

func TestIngestUnsupportedKindFailsBeforeAnyExternalCall(t *testing.T) {
	p := newTestPipeline(t)
	file := p.stage(t, "report.pdf", "application/pdf")

	_, err := p.orchestrator.Ingest(context.Background(), file)
	require.Error(t, err)

	var ingestErr *media.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, media.StageStaged, ingestErr.Stage)
	assert.ErrorIs(t, err, media.ErrUnsupportedKind)

	assert.Empty(t, p.store.puts)
	assert.Empty(t, p.events.messages)
	assertGone(t, file.Path)
}

func TestIngestInspectionFailureDegradesMetadata(t *testing.T) {
	p := newTestPipeline(t)
	p.inspector.err = errors.New("corrupt header")
	file := p.stage(t, "odd.jpg", "image/jpeg")

	record, err := p.orchestrator.Ingest(context.Background(), file)
	require.NoError(t, err)

	assert.True(t, record.Metadata.Empty())
	assert.NotEmpty(t, record.URL)
	assertGone(t, file.Path)
}

func TestIngestThumbnailFailureIsNonFatal(t *testing.T) {
	p := newTestPipeline(t)
	p.thumbnailer.err = errors.New("unsupported codec")
	file := p.stage(t, "clip.mp4", "video/mp4")

	record, err := p.orchestrator.Ingest(context.Background(), file)
	require.NoError(t, err)

	assert.NotEmpty(t, record.URL)
	assert.Empty(t, record.ThumbnailRemoteID)
	assert.Empty(t, record.ThumbnailURL)
	assertGone(t, file.Path)
}

func TestIngestUploadOriginalFailureIsFatal(t *testing.T) {
	p := newTestPipeline(t)
	p.store.putErr["media"] = errors.New("bucket unreachable")
	file := p.stage(t, "sunset.jpg", "image/jpeg")

	_, err := p.orchestrator.Ingest(context.Background(), file)
	require.Error(t, err)

	var ingestErr *media.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, media.StageUploadOriginal, ingestErr.Stage)
	assert.Equal(t, "sunset.jpg", ingestErr.OriginalFilename)

	assert.Empty(t, p.events.messages)
	assertGone(t, file.Path)
	for _, thumb := range p.thumbnailer.paths {
		assertGone(t, thumb)
	}
}

func TestIngestUploadThumbnailFailureIsNonFatal(t *testing.T) {
	p := newTestPipeline(t)
	p.store.putErr["thumbnails"] = errors.New("bucket hiccup")
	file := p.stage(t, "sunset.jpg", "image/jpeg")

	record, err := p.orchestrator.Ingest(context.Background(), file)
	require.NoError(t, err)

	assert.NotEmpty(t, record.URL)
	assert.Empty(t, record.ThumbnailRemoteID)
	assert.Empty(t, record.ThumbnailURL)
	assertGone(t, file.Path)
	for _, thumb := range p.thumbnailer.paths {
		assertGone(t, thumb)
	}
}

func TestIngestPublishFailureDoesNotFailRun(t *testing.T) {
	p := newTestPipeline(t)
	p.events.err = errors.New("broker down")
	file := p.stage(t, "sunset.jpg", "image/jpeg")

	record, err := p.orchestrator.Ingest(context.Background(), file)
	require.NoError(t, err)
	assert.NotEmpty(t, record.URL)
}

func TestDeleteRemoteIsIdempotentPerGateway(t *testing.T) {
	p := newTestPipeline(t)

	// The gateway treats not-found as success, so repeated deletes
	// of the same identifier come back clean.
	failed := p.orchestrator.DeleteRemote(context.Background(), "upload/media/a.jpg", "upload/thumbnails/a.jpg")
	assert.Empty(t, failed)
	failed = p.orchestrator.DeleteRemote(context.Background(), "upload/media/a.jpg")
	assert.Empty(t, failed)
}

func TestDeleteRemoteSoftFailureQueuesReconciliation(t *testing.T) {
	p := newTestPipeline(t)
	p.store.deleteErr["upload/media/stuck.jpg"] = errors.New("503 from provider")

	failed := p.orchestrator.DeleteRemote(context.Background(),
		"upload/media/stuck.jpg", "upload/thumbnails/fine.jpg")

	assert.Equal(t, []string{"upload/media/stuck.jpg"}, failed)
	assert.Equal(t, []string{"upload/thumbnails/fine.jpg"}, p.store.deletes)

	require.Len(t, p.reconcile.messages, 1)
	assert.Equal(t, "storage.reconcile", p.reconcile.messages[0].headers["event_type"])
	assert.Contains(t, p.reconcile.messages[0].value, "upload/media/stuck.jpg")
}

func TestIngestSkipsEmptyIdentifiersOnDelete(t *testing.T) {
	p := newTestPipeline(t)

	failed := p.orchestrator.DeleteRemote(context.Background(), "", "upload/media/a.jpg", "")
	assert.Empty(t, failed)
	assert.Equal(t, []string{"upload/media/a.jpg"}, p.store.deletes)
}
