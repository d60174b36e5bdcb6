package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/config"
	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

// OpenAIAnalyzer implements Analyzer on the chat completions API
type OpenAIAnalyzer struct {
	client        *http.Client
	baseURL       string
	pricePerToken decimal.Decimal
	timeout       time.Duration
	maxNews       int
	contentMaxLen int
}

// NewOpenAIAnalyzer creates new analyzer. The API key comes from settings on every call.
func NewOpenAIAnalyzer(cfg *config.AIConfig) (*OpenAIAnalyzer, error) {
	price, err := cfg.TokenPrice()
	if err != nil {
		return nil, fmt.Errorf("invalid token price: %w", err)
	}

	return &OpenAIAnalyzer{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:       cfg.BaseURL,
		pricePerToken: price,
		timeout:       cfg.Timeout,
		maxNews:       cfg.MaxNews,
		contentMaxLen: cfg.ContentMaxLen,
	}, nil
}

func (o *OpenAIAnalyzer) GetName() string {
	return "openai"
}

func (o *OpenAIAnalyzer) Analyze(ctx context.Context, news []models.NewsItem, settings models.Settings, onCost CostFunc) ([]models.CorrelationPair, error) {
	if len(news) == 0 || !settings.HasAPIKey() {
		return []models.CorrelationPair{}, nil
	}

	if o.maxNews > 0 && len(news) > o.maxNews {
		news = news[:o.maxNews]
	}

	userPrompt, err := buildCorrelationPrompt(news, o.contentMaxLen)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	clientCfg := openai.DefaultConfig(settings.OpenAIKey)
	clientCfg.BaseURL = o.baseURL
	clientCfg.HTTPClient = o.client
	client := openai.NewClientWithConfig(clientCfg)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	logger.Debug("OpenAI response",
		zap.String("model", settings.Model),
		zap.Int("news", len(news)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(startTime)),
	)

	// Tokens are spent even if the payload turns out to be unusable
	o.reportCost(resp.Usage, onCost)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrResponseMalformed)
	}

	correlations, err := parseCorrelations(resp.Choices[0].Message.Content, news)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseMalformed, err)
	}

	return correlations, nil
}

// EstimateCost converts reported token usage to spend
func (o *OpenAIAnalyzer) EstimateCost(totalTokens int) decimal.Decimal {
	return o.pricePerToken.Mul(decimal.NewFromInt(int64(totalTokens)))
}

func (o *OpenAIAnalyzer) reportCost(usage openai.Usage, onCost CostFunc) {
	if onCost == nil {
		return
	}
	if usage.TotalTokens <= 0 {
		logger.Warn("completion usage not reported, skipping cost estimate")
		return
	}
	onCost(o.EstimateCost(usage.TotalTokens))
}

// classifyError separates undecodable payloads from everything that never produced one
func classifyError(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("%w (status %d: %s)", ErrAuthOrTransport, apiErr.HTTPStatusCode, apiErr.Message)
	case errors.As(err, &reqErr):
		return fmt.Errorf("%w (status %d)", ErrAuthOrTransport, reqErr.HTTPStatusCode)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %v", ErrResponseMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrAuthOrTransport, err)
	}
}
