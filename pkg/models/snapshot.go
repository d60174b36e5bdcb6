package models

import "time"

// RefreshState is the refresh cycle state
type RefreshState string

const (
	StateIdle                  RefreshState = "idle"
	StateFetchingNews          RefreshState = "fetching_news"
	StateNewsError             RefreshState = "news_error"
	StateAnalyzingCorrelations RefreshState = "analyzing_correlations"
	StateAnalysisError         RefreshState = "analysis_error"
	StateReady                 RefreshState = "ready"
)

// InFlight reports whether a cycle is running in this state
func (s RefreshState) InFlight() bool {
	return s == StateFetchingNews || s == StateAnalyzingCorrelations
}

// ErrorInfo is an error as shown to the dashboard
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewsView is the news tuple exposed to the dashboard
type NewsView struct {
	Error     *ErrorInfo `json:"error"`
	Data      []NewsItem `json:"data"`
	IsLoading bool       `json:"isLoading"`
}

// CorrelationsView is the correlations tuple exposed to the dashboard
type CorrelationsView struct {
	Error     *ErrorInfo        `json:"error"`
	Data      []CorrelationPair `json:"data"`
	IsLoading bool              `json:"isLoading"`
}

// Snapshot is the combined pipeline state published after every transition
type Snapshot struct {
	UpdatedAt          time.Time        `json:"updatedAt"`
	State              RefreshState     `json:"state"`
	CycleID            string           `json:"cycleId"`
	News               NewsView         `json:"news"`
	Correlations       CorrelationsView `json:"correlations"`
	EstimatedCost      float64          `json:"estimatedCost"`
	ShowCost           bool             `json:"showCost"`
	NeedsConfiguration bool             `json:"needsConfiguration"`
	FromCache          bool             `json:"fromCache"`
}
