// Package cache keeps the last successful news + analysis pair for a limited time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/storage"
	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

// Store is a single-slot cache on top of a KV backend.
// Persistence failures are logged and treated as a miss, never returned.
type Store struct {
	kv     storage.KV
	now    func() time.Time
	key    string
	window time.Duration
}

// Option configures Store
type Option func(*Store)

// WithClock overrides time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates cache store under the given key
func NewStore(kv storage.KV, key string, window time.Duration, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		key:    key,
		window: window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the entry while it is fresh, a stale or unreadable entry is purged
func (s *Store) Read(ctx context.Context) (*models.CacheEntry, bool) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.warn("cache read failed", err)
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.warn("cache entry unreadable, purging", err)
		s.purge(ctx)
		return nil, false
	}

	age := entry.Age(s.now())
	// a stamp from the future (clock step, another host) is never trusted as fresh
	if age < 0 || age > s.window {
		logger.Debug("cache entry expired",
			zap.String("key", s.key),
			zap.Duration("age", age),
			zap.Duration("window", s.window),
		)
		s.purge(ctx)
		return nil, false
	}

	return &entry, true
}

// Write replaces the slot with a new entry stamped now
func (s *Store) Write(ctx context.Context, news []models.NewsItem, correlations []models.CorrelationPair) {
	entry := models.CacheEntry{
		CapturedAt:   s.now().UTC(),
		News:         news,
		Correlations: correlations,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		s.warn("cache entry encode failed", err)
		return
	}

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.warn("cache write failed", err)
		return
	}

	logger.Debug("cache entry written",
		zap.String("key", s.key),
		zap.Int("news", len(news)),
		zap.Int("correlations", len(correlations)),
	)
}

// Clear drops the current entry
func (s *Store) Clear(ctx context.Context) {
	s.purge(ctx)
}

func (s *Store) purge(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.warn("cache purge failed", err)
	}
}

func (s *Store) warn(msg string, err error) {
	logger.Warn(msg,
		zap.String("key", s.key),
		zap.Error(err),
	)
}
