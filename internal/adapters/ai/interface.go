package ai

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/selivandex/forex-analyzer/pkg/models"
)

var (
	// ErrAuthOrTransport means the completion API could not be reached or rejected the request
	ErrAuthOrTransport = errors.New("analysis request failed, check your API key")
	// ErrResponseMalformed means the completion came back but did not contain valid correlation data
	ErrResponseMalformed = errors.New("analysis response malformed")
)

// CostFunc receives estimated spend of one completed request
type CostFunc func(cost decimal.Decimal)

// Analyzer turns news into correlation pairs
type Analyzer interface {
	// GetName returns provider name
	GetName() string

	// Analyze issues a single request for the whole news list.
	// Empty news or empty API key return an empty result without network I/O.
	// onCost may be nil, it is never called when usage is not reported.
	Analyze(ctx context.Context, news []models.NewsItem, settings models.Settings, onCost CostFunc) ([]models.CorrelationPair, error)
}
