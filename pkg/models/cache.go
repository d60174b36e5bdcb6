package models

import "time"

// CacheEntry is the last successful news + analysis pair
type CacheEntry struct {
	CapturedAt   time.Time         `json:"timestamp"`
	News         []NewsItem        `json:"news"`
	Correlations []CorrelationPair `json:"correlations"`
}

// Age returns how old the entry is at the given moment
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CapturedAt)
}
