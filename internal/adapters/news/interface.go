package news

import (
	"context"

	"github.com/selivandex/forex-analyzer/pkg/models"
)

// Fetcher retrieves the current news list.
// Implementations do not retry, callers own the retry policy.
type Fetcher interface {
	// GetName returns source name for logging
	GetName() string

	// Fetch returns normalized items, an empty slice is a valid result
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}
