package refresh

import (
	"errors"

	"github.com/selivandex/forex-analyzer/internal/adapters/ai"
	"github.com/selivandex/forex-analyzer/internal/adapters/news"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

// Error codes shown to the dashboard
const (
	CodeFeedUnavailable   = "feed_unavailable"
	CodeFeedParse         = "feed_parse_error"
	CodeAnalysisTransport = "analysis_auth_or_transport"
	CodeAnalysisMalformed = "analysis_response_malformed"
	CodeInternal          = "internal_error"
)

func toErrorInfo(err error) *models.ErrorInfo {
	if err == nil {
		return nil
	}

	code := CodeInternal
	switch {
	case errors.Is(err, news.ErrFeedParse):
		code = CodeFeedParse
	case errors.Is(err, news.ErrFeedUnavailable):
		code = CodeFeedUnavailable
	case errors.Is(err, ai.ErrAuthOrTransport):
		code = CodeAnalysisTransport
	case errors.Is(err, ai.ErrResponseMalformed):
		code = CodeAnalysisMalformed
	}

	return &models.ErrorInfo{Code: code, Message: err.Error()}
}
