// Package settings holds the user refresh configuration and persists it as JSON.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/storage"
	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

// ErrInvalid is returned by Update for values that fail validation
var ErrInvalid = errors.New("invalid settings")

// ChangeFunc is called after settings were applied
type ChangeFunc func(old, updated models.Settings)

// Store is the settings collaborator: readers get snapshots, changes go through Update
type Store struct {
	kv        storage.KV
	key       string
	current   models.Settings
	listeners []ChangeFunc
	mu        sync.RWMutex
}

// Load reads persisted settings on top of defaults.
// A missing or broken document falls back to defaults, only a backend error is fatal.
func Load(ctx context.Context, kv storage.KV, key string, defaults models.Settings) (*Store, error) {
	s := &Store{kv: kv, key: key, current: defaults}

	data, err := kv.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("no persisted settings, using defaults",
			zap.String("model", defaults.Model),
			zap.Bool("has_api_key", defaults.HasAPIKey()),
		)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := defaults
	if err := json.Unmarshal(data, &loaded); err != nil {
		logger.Warn("persisted settings unreadable, using defaults",
			zap.String("key", key),
			zap.Error(err),
		)
		return s, nil
	}
	if err := loaded.Validate(); err != nil {
		logger.Warn("persisted settings invalid, using defaults",
			zap.String("key", key),
			zap.Error(err),
		)
		return s, nil
	}

	s.current = loaded
	logger.Info("settings loaded",
		zap.String("model", loaded.Model),
		zap.Int64("refresh_interval_ms", loaded.RefreshInterval),
		zap.Bool("has_api_key", loaded.HasAPIKey()),
		zap.Bool("show_cost", loaded.ShowCostEstimates),
	)

	return s, nil
}

// Get returns current settings
func (s *Store) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers a listener for applied updates
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update validates, persists and applies new settings.
// Nothing is applied when persisting fails.
func (s *Store) Update(ctx context.Context, updated models.Settings) error {
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	old := s.current
	s.current = updated
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	logger.Info("settings updated",
		zap.String("model", updated.Model),
		zap.Int64("refresh_interval_ms", updated.RefreshInterval),
		zap.Bool("has_api_key", updated.HasAPIKey()),
		zap.Bool("show_cost", updated.ShowCostEstimates),
	)

	for _, fn := range listeners {
		fn(old, updated)
	}

	return nil
}
