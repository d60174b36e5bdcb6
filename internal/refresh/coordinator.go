// Package refresh drives the fetch, cache check, analyze and cache write cycle.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/ai"
	"github.com/selivandex/forex-analyzer/internal/adapters/news"
	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
	"github.com/selivandex/forex-analyzer/pkg/worker"
)

// CacheStore is the single-slot analysis cache
type CacheStore interface {
	Read(ctx context.Context) (*models.CacheEntry, bool)
	Write(ctx context.Context, news []models.NewsItem, correlations []models.CorrelationPair)
	Clear(ctx context.Context)
}

// SettingsSource supplies the configuration read at the start of every cycle
type SettingsSource interface {
	Get() models.Settings
}

// CostRecorder is the running spend total
type CostRecorder interface {
	Add(amount decimal.Decimal)
	Float64() float64
}

// Options tunes retry and shutdown behaviour
type Options struct {
	FeedRetries    int
	FeedRetryDelay time.Duration
	StopTimeout    time.Duration
}

// Coordinator owns the refresh state machine.
// At most one cycle runs at a time, no transitions are published after Stop.
type Coordinator struct {
	fetcher  news.Fetcher
	analyzer ai.Analyzer
	cache    CacheStore
	settings SettingsSource
	cost     CostRecorder
	opts     Options

	inFlight atomic.Bool
	settled  atomic.Bool
	rerun    atomic.Bool

	ctx      context.Context
	cancel   context.CancelFunc
	periodic *worker.PeriodicWorker
	subs     map[int]chan models.Snapshot
	snapshot models.Snapshot
	nextSub  int
	stopped  bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewCoordinator creates coordinator in Idle state
func NewCoordinator(
	fetcher news.Fetcher,
	analyzer ai.Analyzer,
	cache CacheStore,
	settings SettingsSource,
	cost CostRecorder,
	opts Options,
) *Coordinator {
	if opts.FeedRetries < 0 {
		opts.FeedRetries = 0
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 10 * time.Second
	}

	cfg := settings.Get()
	return &Coordinator{
		fetcher:  fetcher,
		analyzer: analyzer,
		cache:    cache,
		settings: settings,
		cost:     cost,
		opts:     opts,
		subs:     make(map[int]chan models.Snapshot),
		snapshot: models.Snapshot{
			State:              models.StateIdle,
			UpdatedAt:          time.Now().UTC(),
			ShowCost:           cfg.ShowCostEstimates,
			NeedsConfiguration: !cfg.HasAPIKey(),
			EstimatedCost:      cost.Float64(),
		},
	}
}

// Name implements worker.Worker
func (c *Coordinator) Name() string {
	return "refresh-coordinator"
}

// Run implements worker.Worker: one scheduled cycle, skipped while another is in flight
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		logger.Debug("scheduled refresh skipped, cycle in flight")
		return nil
	}

	c.runCycle(ctx)
	c.settle()

	return nil
}

// Start runs the first cycle immediately and then on the settings interval
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.periodic = worker.NewPeriodicWorker(c, c.interval)
	runCtx := c.ctx
	c.mu.Unlock()

	c.periodic.Start(runCtx)
}

// Stop cancels the schedule and the in-flight cycle, results arriving later are discarded
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	periodic := c.periodic
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	logger.Info("🛑 Stopping refresh coordinator...")
	cancel()
	periodic.Stop(c.opts.StopTimeout)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.opts.StopTimeout):
		logger.Warn("⚠️ manual refresh did not finish before stop timeout")
	}
}

// Trigger starts a manual cycle. Returns false when one is already in flight or the coordinator is not running.
func (c *Coordinator) Trigger() bool {
	c.mu.Lock()
	if c.ctx == nil || c.stopped {
		c.mu.Unlock()
		return false
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		c.mu.Unlock()
		logger.Debug("manual refresh ignored, cycle in flight")
		return false
	}
	c.wg.Add(1)
	ctx := c.ctx
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.runCycle(ctx)
		c.settle()
	}()

	return true
}

// InFlight reports whether a cycle is running
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// Settled reports whether at least one cycle reached a final state
func (c *Coordinator) Settled() bool {
	return c.settled.Load()
}

// Snapshot returns current published state
func (c *Coordinator) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe returns a channel receiving the current snapshot and every later one.
// Slow readers miss intermediate snapshots. The channel is closed on Stop.
func (c *Coordinator) Subscribe() (<-chan models.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan models.Snapshot, 1)
	if c.stopped {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshot

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

// HandleSettingsChange reacts to applied settings.
// A new key or model invalidates cached correlations and refreshes right away.
func (c *Coordinator) HandleSettingsChange(old, updated models.Settings) {
	c.update(context.Background(), func(s *models.Snapshot) {
		s.ShowCost = updated.ShowCostEstimates
		s.NeedsConfiguration = !updated.HasAPIKey()
	})

	if old.OpenAIKey == updated.OpenAIKey && old.Model == updated.Model {
		return
	}

	c.cache.Clear(context.Background())
	// set before Trigger so a cycle settling in between still repeats,
	// the next cycle to start clears it
	c.rerun.Store(true)
	c.Trigger()
}

// settle releases the in-flight flag. A settings change seen mid-cycle purges what the
// cycle cached before any other cycle can read it, then refreshes again.
func (c *Coordinator) settle() {
	rerun := c.rerun.CompareAndSwap(true, false)
	if rerun {
		c.cache.Clear(context.Background())
	}
	c.inFlight.Store(false)
	if rerun {
		c.Trigger()
	}
}

func (c *Coordinator) interval() time.Duration {
	return c.settings.Get().Interval()
}

func (c *Coordinator) runCycle(ctx context.Context) {
	// cleared before reading settings, this cycle sees every change flagged so far
	c.rerun.Store(false)
	cfg := c.settings.Get()
	cycleID := uuid.NewString()
	startTime := time.Now()

	logger.Info("🔄 refresh cycle started",
		zap.String("cycle_id", cycleID),
		zap.String("model", cfg.Model),
	)

	c.update(ctx, func(s *models.Snapshot) {
		s.CycleID = cycleID
		s.State = models.StateFetchingNews
		s.News.IsLoading = true
		s.Correlations.IsLoading = true
		s.ShowCost = cfg.ShowCostEstimates
		s.NeedsConfiguration = !cfg.HasAPIKey()
	})

	if entry, ok := c.cache.Read(ctx); ok {
		c.finish(ctx, func(s *models.Snapshot) {
			s.State = models.StateReady
			s.News = models.NewsView{Data: entry.News}
			s.Correlations = models.CorrelationsView{Data: entry.Correlations}
			s.FromCache = true
		})
		logger.Info("✅ refresh served from cache",
			zap.String("cycle_id", cycleID),
			zap.Duration("age", time.Since(entry.CapturedAt).Round(time.Second)),
		)
		return
	}

	items, err := c.fetchNews(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("⚠️ news fetch failed",
			zap.String("cycle_id", cycleID),
			zap.Error(err),
		)
		c.finish(ctx, func(s *models.Snapshot) {
			s.State = models.StateNewsError
			s.News.IsLoading = false
			s.News.Error = toErrorInfo(err)
			s.Correlations.IsLoading = false
			// no analysis ran this cycle, an older analysis error would be stale
			s.Correlations.Error = nil
		})
		return
	}

	c.update(ctx, func(s *models.Snapshot) {
		s.State = models.StateAnalyzingCorrelations
		s.News = models.NewsView{Data: items}
		s.FromCache = false
	})

	var onCost ai.CostFunc
	if cfg.ShowCostEstimates {
		onCost = c.cost.Add
	}

	pairs, err := c.analyzer.Analyze(ctx, items, cfg, onCost)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("⚠️ correlation analysis failed",
			zap.String("cycle_id", cycleID),
			zap.String("provider", c.analyzer.GetName()),
			zap.Error(err),
		)
		c.finish(ctx, func(s *models.Snapshot) {
			s.State = models.StateAnalysisError
			s.Correlations.IsLoading = false
			s.Correlations.Error = toErrorInfo(err)
		})
		return
	}

	// Nothing was analyzed without news or a key, caching that would hide the first real analysis
	if len(items) > 0 && cfg.HasAPIKey() {
		c.cache.Write(ctx, items, pairs)
	}

	c.finish(ctx, func(s *models.Snapshot) {
		s.State = models.StateReady
		s.Correlations = models.CorrelationsView{Data: pairs}
	})

	logger.Info("✅ refresh cycle completed",
		zap.String("cycle_id", cycleID),
		zap.Int("news", len(items)),
		zap.Int("correlations", len(pairs)),
		zap.Bool("needs_configuration", !cfg.HasAPIKey()),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// fetchNews retries unavailable feeds a bounded number of times, parse errors are final
func (c *Coordinator) fetchNews(ctx context.Context) ([]models.NewsItem, error) {
	operation := func() ([]models.NewsItem, error) {
		items, err := c.fetcher.Fetch(ctx)
		if err == nil {
			if items == nil {
				items = []models.NewsItem{}
			}
			return items, nil
		}
		if errors.Is(err, news.ErrFeedParse) {
			return nil, backoff.Permanent(err)
		}
		if !errors.Is(err, news.ErrFeedUnavailable) {
			err = fmt.Errorf("%w: %v", news.ErrFeedUnavailable, err)
		}
		return nil, err
	}

	items, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.FeedRetryDelay)),
		backoff.WithMaxTries(uint(c.opts.FeedRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("feed fetch failed, retrying",
				zap.String("source", c.fetcher.GetName()),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return items, err
}

func (c *Coordinator) finish(ctx context.Context, fn func(s *models.Snapshot)) {
	if c.update(ctx, fn) {
		c.settled.Store(true)
	}
}

// update applies fn and publishes the result unless the cycle was torn down
func (c *Coordinator) update(ctx context.Context, fn func(s *models.Snapshot)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || ctx.Err() != nil {
		return false
	}

	fn(&c.snapshot)
	c.snapshot.UpdatedAt = time.Now().UTC()
	c.snapshot.EstimatedCost = c.cost.Float64()

	for _, ch := range c.subs {
		publish(ch, c.snapshot)
	}
	return true
}

// publish replaces an unread snapshot so the channel always holds the newest one
func publish(ch chan models.Snapshot, snap models.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
