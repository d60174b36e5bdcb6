package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingWorker struct {
	runs atomic.Int32
	err  error
}

func (w *countingWorker) Name() string { return "counting" }

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	return w.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPeriodicWorker_RunsImmediately(t *testing.T) {
	w := &countingWorker{}
	pw := NewPeriodicWorker(w, Fixed(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	pw.Start(ctx)

	waitFor(t, func() bool { return w.runs.Load() == 1 })

	cancel()
	if !pw.Stop(time.Second) {
		t.Error("Expected worker to stop before timeout")
	}
	if got := w.runs.Load(); got != 1 {
		t.Errorf("Expected exactly 1 run with hour interval, got %d", got)
	}
}

func TestPeriodicWorker_KeepsRunningAfterErrors(t *testing.T) {
	w := &countingWorker{err: errors.New("boom")}
	pw := NewPeriodicWorker(w, Fixed(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	pw.Start(ctx)

	waitFor(t, func() bool { return w.runs.Load() >= 3 })

	cancel()
	pw.Stop(time.Second)
}

func TestPeriodicWorker_FollowsIntervalChanges(t *testing.T) {
	w := &countingWorker{}

	var interval atomic.Int64
	interval.Store(int64(10 * time.Millisecond))
	pw := NewPeriodicWorker(w, func() time.Duration { return time.Duration(interval.Load()) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pw.Start(ctx)

	waitFor(t, func() bool { return w.runs.Load() >= 2 })

	// At most one already armed short timer may still fire
	interval.Store(int64(time.Hour))
	time.Sleep(50 * time.Millisecond)
	settled := w.runs.Load()
	time.Sleep(50 * time.Millisecond)

	if got := w.runs.Load(); got != settled {
		t.Errorf("Expected no runs after switching to hour interval, got %d -> %d", settled, got)
	}

	cancel()
	pw.Stop(time.Second)
}

func TestPeriodicWorker_NoRunsAfterStop(t *testing.T) {
	w := &countingWorker{}
	pw := NewPeriodicWorker(w, Fixed(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	pw.Start(ctx)
	waitFor(t, func() bool { return w.runs.Load() >= 1 })

	cancel()
	pw.Stop(time.Second)

	after := w.runs.Load()
	time.Sleep(30 * time.Millisecond)
	if got := w.runs.Load(); got != after {
		t.Errorf("Worker ran after stop: %d -> %d", after, got)
	}
}
