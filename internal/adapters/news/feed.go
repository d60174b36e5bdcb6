package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/adapters/config"
	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

const maxFeedSize = 10 << 20

// RSSFetcher fetches news from a syndication feed (RSS, Atom or JSON Feed)
type RSSFetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	url       string
	userAgent string
	timeout   time.Duration
	maxSize   int64
}

// NewRSSFetcher creates new feed fetcher
func NewRSSFetcher(cfg *config.FeedConfig) *RSSFetcher {
	return &RSSFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		parser:    gofeed.NewParser(),
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		maxSize:   maxFeedSize,
	}
}

func (f *RSSFetcher) GetName() string {
	return "rss"
}

// Fetch downloads and parses the feed.
// Whole-document problems fail the fetch, a broken item only loses its missing fields.
func (f *RSSFetcher) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateDocument(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}

	news := make([]models.NewsItem, 0, len(feed.Items))
	for i, item := range feed.Items {
		newsItem, ok := normalizeItem(item)
		if !ok {
			logger.Warn("skipping feed item without title and link",
				zap.String("url", f.url),
				zap.Int("index", i),
			)
			continue
		}
		news = append(news, newsItem)
	}

	logger.Debug("feed fetched",
		zap.String("url", f.url),
		zap.String("feed_type", feed.FeedType),
		zap.Int("items", len(news)),
	)

	return news, nil
}

func (f *RSSFetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	startTime := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP error %d", ErrFeedUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrFeedUnavailable, err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrFeedTooLarge, f.maxSize)
	}

	logger.Debug("feed downloaded",
		zap.String("url", f.url),
		zap.Int("bytes", len(body)),
		zap.Duration("latency", time.Since(startTime)),
	)

	return body, nil
}

// normalizeItem maps a parsed item to NewsItem with empty-string defaults.
// Items with neither title nor link carry nothing worth analyzing.
func normalizeItem(item *gofeed.Item) (models.NewsItem, bool) {
	if item == nil {
		return models.NewsItem{}, false
	}

	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}

	content := strings.TrimSpace(item.Description)
	if content == "" {
		content = strings.TrimSpace(item.Content)
	}

	newsItem := models.NewsItem{
		Title:   strings.TrimSpace(item.Title),
		Link:    link,
		Content: content,
	}

	switch {
	case item.PublishedParsed != nil:
		newsItem.PublishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		newsItem.PublishedAt = item.UpdatedParsed.UTC()
	}

	if newsItem.Title == "" && newsItem.Link == "" {
		return models.NewsItem{}, false
	}

	return newsItem, true
}
