package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/media"
	"github.com/your-org/mediasink/internal/staging"
)

func stageBatch(t *testing.T, p *testPipeline, specs ...[2]string) []*staging.File {
	t.Helper()
	files := make([]*staging.File, 0, len(specs))
	for _, spec := range specs {
		files = append(files, p.stage(t, spec[0], spec[1]))
	}
	return files
}

func TestIngestAllPartialFailure(t *testing.T) {
	p := newTestPipeline(t)
	coordinator := NewCoordinator(p.orchestrator, zap.NewNop())

	files := stageBatch(t, p,
		[2]string{"a.jpg", "image/jpeg"},
		[2]string{"b.jpg", "image/jpeg"},
		[2]string{"report.pdf", "application/pdf"},
		[2]string{"c.mp4", "video/mp4"},
		[2]string{"d.png", "image/png"},
	)

	report := coordinator.IngestAll(context.Background(), files, 2)

	// One unsupported file fails; its siblings are untouched.
	assert.Len(t, report.Succeeded, 4)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "report.pdf", report.Failed[0].OriginalFilename)
	assert.Equal(t, media.StageStaged, report.Failed[0].Stage)
	assert.ErrorIs(t, report.Failed[0], media.ErrUnsupportedKind)

	// Concurrency never exceeded the requested bound.
	assert.LessOrEqual(t, p.store.maxInFlight, 2)

	for _, file := range files {
		assertGone(t, file.Path)
	}
}

func TestIngestAllNoSuccessfulRecordDropped(t *testing.T) {
	p := newTestPipeline(t)
	coordinator := NewCoordinator(p.orchestrator, zap.NewNop())

	var specs [][2]string
	for i := 0; i < 20; i++ {
		specs = append(specs, [2]string{fmt.Sprintf("img-%02d.jpg", i), "image/jpeg"})
	}
	// Sprinkle failures through the batch.
	specs[3][1] = "application/zip"
	specs[11][1] = "text/csv"
	specs[17][1] = "audio/ogg"

	report := coordinator.IngestAll(context.Background(), stageBatch(t, p, specs...), 4)

	assert.Len(t, report.Succeeded, 17)
	assert.Len(t, report.Failed, 3)

	seen := map[string]bool{}
	for _, record := range report.Succeeded {
		seen[record.OriginalFilename] = true
	}
	assert.Len(t, seen, 17, "every successful record is distinct")
}

func TestIngestAllBoundsConcurrency(t *testing.T) {
	p := newTestPipeline(t)
	coordinator := NewCoordinator(p.orchestrator, zap.NewNop())

	// Uploads park on this channel so all workers pile up in-flight.
	block := make(chan struct{})
	p.store.block = block

	var specs [][2]string
	for i := 0; i < 8; i++ {
		specs = append(specs, [2]string{fmt.Sprintf("img-%d.jpg", i), "image/jpeg"})
	}
	files := stageBatch(t, p, specs...)

	done := make(chan media.BatchReport, 1)
	go func() {
		done <- coordinator.IngestAll(context.Background(), files, 3)
	}()

	time.Sleep(50 * time.Millisecond)
	close(block)
	report := <-done

	assert.Len(t, report.Succeeded, 8)
	assert.LessOrEqual(t, p.store.maxInFlight, 3)
}

func TestIngestAllDefaultsConcurrency(t *testing.T) {
	p := newTestPipeline(t)
	coordinator := NewCoordinator(p.orchestrator, zap.NewNop())

	files := stageBatch(t, p, [2]string{"a.jpg", "image/jpeg"})
	report := coordinator.IngestAll(context.Background(), files, 0)

	assert.Len(t, report.Succeeded, 1)
}

func TestIngestAllCancelledBeforeDispatch(t *testing.T) {
	p := newTestPipeline(t)
	coordinator := NewCoordinator(p.orchestrator, zap.NewNop())

	files := stageBatch(t, p,
		[2]string{"a.jpg", "image/jpeg"},
		[2]string{"b.jpg", "image/jpeg"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := coordinator.IngestAll(ctx, files, 2)

	assert.Empty(t, report.Succeeded)
	require.Len(t, report.Failed, 2)
	for _, failure := range report.Failed {
		assert.Equal(t, media.StageCancelled, failure.Stage)
	}
	// Undispatched staged files are still cleaned up.
	for _, file := range files {
		assertGone(t, file.Path)
	}
}

func TestIngestAllCancellationLetsInFlightRunsFinish(t *testing.T) {
	p := newTestPipeline(t)
	coordinator := NewCoordinator(p.orchestrator, zap.NewNop())

	block := make(chan struct{})
	p.store.block = block

	var specs [][2]string
	for i := 0; i < 5; i++ {
		specs = append(specs, [2]string{fmt.Sprintf("img-%d.jpg", i), "image/jpeg"})
	}
	files := stageBatch(t, p, specs...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan media.BatchReport, 1)
	go func() {
		done <- coordinator.IngestAll(ctx, files, 2)
	}()

	// Let two runs get in flight, then cancel the batch.
	require.Eventually(t, func() bool {
		p.store.mu.Lock()
		defer p.store.mu.Unlock()
		return p.store.inFlight == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	close(block)

	report := <-done

	// The two in-flight runs complete; the rest were never started.
	assert.Len(t, report.Succeeded, 2)
	require.Len(t, report.Failed, 3)
	for _, failure := range report.Failed {
		assert.Equal(t, media.StageCancelled, failure.Stage)
		assert.ErrorIs(t, failure, context.Canceled)
	}
	for _, file := range files {
		assertGone(t, file.Path)
	}
}

func TestIngestAllWrapsPlainErrors(t *testing.T) {
	plainErr := errors.New("worker exploded")
	coordinator := NewCoordinator(runnerFunc(func(ctx context.Context, file *staging.File) (*media.Record, error) {
		file.Discard()
		return nil, plainErr
	}), zap.NewNop())

	p := newTestPipeline(t)
	files := stageBatch(t, p, [2]string{"a.jpg", "image/jpeg"})

	report := coordinator.IngestAll(context.Background(), files, 1)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], plainErr)
	assert.Equal(t, "a.jpg", report.Failed[0].OriginalFilename)
}

type runnerFunc func(ctx context.Context, file *staging.File) (*media.Record, error)

func (f runnerFunc) Ingest(ctx context.Context, file *staging.File) (*media.Record, error) {
	return f(ctx, file)
}
