package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/pkg/logger"
)

// Worker interface that background workers should implement
type Worker interface {
	// Name returns worker name for logging
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// IntervalFunc returns the delay before the next run.
// It is called after every run so the schedule follows configuration changes.
type IntervalFunc func() time.Duration

// PeriodicWorker wraps a Worker with periodic execution
type PeriodicWorker struct {
	worker   Worker
	interval IntervalFunc
	wg       *sync.WaitGroup
	name     string
}

// NewPeriodicWorker creates new periodic worker
func NewPeriodicWorker(worker Worker, interval IntervalFunc) *PeriodicWorker {
	return &PeriodicWorker{
		worker:   worker,
		interval: interval,
		wg:       &sync.WaitGroup{},
		name:     worker.Name(),
	}
}

// Fixed returns IntervalFunc for a constant interval
func Fixed(d time.Duration) IntervalFunc {
	return func() time.Duration { return d }
}

// Start starts the worker with graceful shutdown support
func (pw *PeriodicWorker) Start(ctx context.Context) {
	pw.wg.Add(1)
	go pw.run(ctx)
}

// Stop waits for graceful shutdown, returns false on timeout.
// The context passed to Start must be cancelled first.
func (pw *PeriodicWorker) Stop(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		pw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ Worker stopped gracefully",
			zap.String("worker", pw.name),
		)
		return true
	case <-time.After(timeout):
		logger.Warn("⚠️ Worker stop timeout",
			zap.String("worker", pw.name),
		)
		return false
	}
}

func (pw *PeriodicWorker) nextInterval() time.Duration {
	d := pw.interval()
	if d <= 0 {
		// non-positive delay would spin the loop
		d = time.Second
	}
	return d
}

// run executes worker periodically
func (pw *PeriodicWorker) run(ctx context.Context) {
	defer pw.wg.Done()

	logger.Info("🚀 Worker started",
		zap.String("worker", pw.name),
		zap.Duration("interval", pw.nextInterval()),
	)

	// Run immediately on start
	pw.execute(ctx)

	timer := time.NewTimer(pw.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Worker stopping",
				zap.String("worker", pw.name),
			)
			return

		case <-timer.C:
			pw.execute(ctx)
			timer.Reset(pw.nextInterval())
		}
	}
}

func (pw *PeriodicWorker) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := pw.worker.Run(ctx); err != nil {
		logger.Error("worker execution failed",
			zap.String("worker", pw.name),
			zap.Error(err),
		)
		// Continue despite error - don't crash worker
	}
}
