package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Feed.URL != "https://www.forexlive.com/feed/news" {
		t.Errorf("Unexpected feed URL: %s", cfg.Feed.URL)
	}
	if cfg.Feed.Timeout != 30*time.Second || cfg.AI.Timeout != 30*time.Second {
		t.Errorf("Expected 30s network timeouts, got feed=%s ai=%s", cfg.Feed.Timeout, cfg.AI.Timeout)
	}
	if cfg.Feed.Retries != 2 {
		t.Errorf("Expected 2 feed retries, got %d", cfg.Feed.Retries)
	}
	if cfg.AI.MaxNews != 0 || cfg.AI.ContentMaxLen != 0 {
		t.Errorf("Expected uncapped prompt news by default, got maxNews=%d contentMaxLen=%d", cfg.AI.MaxNews, cfg.AI.ContentMaxLen)
	}
	if cfg.Cache.Freshness != 5*time.Minute {
		t.Errorf("Expected 5m freshness window, got %s", cfg.Cache.Freshness)
	}
	if cfg.Cache.Key != "forex_analyzer_cache" || cfg.Settings.Key != "forex_analyzer_settings" {
		t.Errorf("Unexpected storage keys: %s / %s", cfg.Cache.Key, cfg.Settings.Key)
	}

	price, err := cfg.AI.TokenPrice()
	if err != nil {
		t.Fatalf("TokenPrice() failed: %v", err)
	}
	if price.String() != "0.00001" {
		t.Errorf("Expected 0.00001 per token, got %s", price)
	}

	defaults := cfg.Settings.Defaults()
	if defaults.RefreshInterval != 300000 {
		t.Errorf("Expected 300000ms refresh interval, got %d", defaults.RefreshInterval)
	}
	if !defaults.ShowCostEstimates {
		t.Error("Expected cost estimates on by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FEED_URL", "http://localhost:9999/rss")
	t.Setenv("FEED_RETRIES", "0")
	t.Setenv("CACHE_FRESHNESS", "90s")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SETTINGS_MODEL", "gpt-4o")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Feed.URL != "http://localhost:9999/rss" {
		t.Errorf("Expected overridden feed URL, got %s", cfg.Feed.URL)
	}
	if cfg.Feed.Retries != 0 {
		t.Errorf("Expected 0 retries, got %d", cfg.Feed.Retries)
	}
	if cfg.Cache.Freshness != 90*time.Second {
		t.Errorf("Expected 90s freshness, got %s", cfg.Cache.Freshness)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Settings.Defaults().Model != "gpt-4o" {
		t.Errorf("Expected gpt-4o default model, got %s", cfg.Settings.Defaults().Model)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "s3"},
			wantErr: "unknown storage backend",
		},
		{
			name:    "postgres without credentials",
			env:     map[string]string{"STORAGE_BACKEND": "postgres"},
			wantErr: "DB_USER and DB_PASSWORD",
		},
		{
			name:    "negative retries",
			env:     map[string]string{"FEED_RETRIES": "-1"},
			wantErr: "feed retries",
		},
		{
			name:    "bad token price",
			env:     map[string]string{"AI_PRICE_PER_TOKEN": "cheap"},
			wantErr: "invalid AI token price",
		},
		{
			name:    "negative news cap",
			env:     map[string]string{"AI_MAX_NEWS": "-5"},
			wantErr: "must not be negative",
		},
		{
			name:    "same keys",
			env:     map[string]string{"CACHE_KEY": "state", "SETTINGS_KEY": "state"},
			wantErr: "must differ",
		},
		{
			name:    "refresh interval too short",
			env:     map[string]string{"SETTINGS_REFRESH_INTERVAL": "1s"},
			wantErr: "invalid default settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, Name: "forex", User: "u", Password: "p", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=forex sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
