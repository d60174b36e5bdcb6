package models

import (
	"fmt"
	"strings"
	"time"
)

// MinRefreshInterval is the smallest accepted refresh interval in milliseconds
const MinRefreshInterval = 10_000

// Settings is the user-facing refresh configuration
type Settings struct {
	OpenAIKey         string `json:"openaiKey"`
	Model             string `json:"model"`
	RefreshInterval   int64  `json:"refreshInterval"` // milliseconds
	ShowCostEstimates bool   `json:"showCostEstimates"`
}

// Interval returns refresh interval as duration
func (s Settings) Interval() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Millisecond
}

// HasAPIKey reports whether analysis can be requested at all
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.OpenAIKey) != ""
}

// Validate checks settings before they are applied
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if s.RefreshInterval < MinRefreshInterval {
		return fmt.Errorf("refresh interval must be at least %dms, got %d", MinRefreshInterval, s.RefreshInterval)
	}
	return nil
}

// Masked returns copy safe for logging and API responses
func (s Settings) Masked() Settings {
	s.OpenAIKey = MaskSecret(s.OpenAIKey)
	return s
}

// MaskSecret keeps only the last four characters of a secret
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
