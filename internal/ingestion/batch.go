package ingestion

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/media"
	"github.com/your-org/mediasink/internal/staging"
)

// DefaultMaxConcurrency bounds parallel ingestion runs when the
// caller does not supply a limit.
const DefaultMaxConcurrency = 5

// Runner ingests a single staged file.
type Runner interface {
	Ingest(ctx context.Context, file *staging.File) (*media.Record, error)
}

// Coordinator fans staged files out to the runner under a bounded
// concurrency limit and collects per-file results. One file's failure
// never cancels its siblings.
type Coordinator struct {
	runner Runner
	logger *zap.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(runner Runner, logger *zap.Logger) *Coordinator {
	return &Coordinator{runner: runner, logger: logger}
}

// IngestAll dispatches all files and waits for every dispatched run
// to reach a terminal state. When ctx is cancelled, no new runs are
// dispatched and in-flight runs complete on a detached context so a
// mid-upload run is never killed with an orphaned remote object;
// undispatched files are discarded and reported as cancelled.
func (c *Coordinator) IngestAll(ctx context.Context, files []*staging.File, maxConcurrency int) media.BatchReport {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	sem := make(chan struct{}, maxConcurrency)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report media.BatchReport
	)

	for _, file := range files {
		if !c.acquire(ctx, sem) {
			file.Discard()
			mu.Lock()
			report.Failed = append(report.Failed, &media.IngestError{
				OriginalFilename: file.OriginalName,
				Stage:            media.StageCancelled,
				Cause:            context.Cause(ctx),
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(file *staging.File) {
			defer wg.Done()
			defer func() { <-sem }()

			record, err := c.runner.Ingest(context.WithoutCancel(ctx), file)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var ingestErr *media.IngestError
				if !errors.As(err, &ingestErr) {
					ingestErr = &media.IngestError{
						OriginalFilename: file.OriginalName,
						Stage:            media.StageStaged,
						Cause:            err,
					}
				}
				report.Failed = append(report.Failed, ingestErr)
				return
			}
			report.Succeeded = append(report.Succeeded, *record)
		}(file)
	}

	wg.Wait()

	c.logger.Info("batch complete",
		zap.Int("total", len(files)),
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)),
	)
	return report
}

// acquire takes a worker slot, reporting false once the batch
// context is cancelled.
func (c *Coordinator) acquire(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}
