package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/selivandex/forex-analyzer/internal/adapters/config"
	"github.com/selivandex/forex-analyzer/pkg/logger"
)

const twoItemFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>ForexLive</title>
  <item>
    <title>USD rises</title>
    <link>https://example.com/usd</link>
    <pubDate>Tue, 02 Jan 2024 15:04:05 GMT</pubDate>
    <description>Dollar gains after CPI</description>
  </item>
  <item>
    <title>Oil drops</title>
    <link>https://example.com/oil</link>
    <pubDate>Tue, 02 Jan 2024 16:00:00 GMT</pubDate>
    <description>Crude slides on inventories</description>
  </item>
</channel>
</rss>`

// setupTest initializes logger for tests
func setupTest(t *testing.T) {
	t.Helper()
	if err := logger.Init("error", ""); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
}

func newTestFetcher(url string, timeout time.Duration) *RSSFetcher {
	return NewRSSFetcher(&config.FeedConfig{
		URL:       url,
		UserAgent: "forex-analyzer-test",
		Timeout:   timeout,
	})
}

func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSFetcher_Fetch(t *testing.T) {
	setupTest(t)

	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(twoItemFeed))
	}))
	defer srv.Close()

	items, err := newTestFetcher(srv.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if userAgent != "forex-analyzer-test" {
		t.Errorf("Expected configured user agent, got %q", userAgent)
	}

	first := items[0]
	if first.Title != "USD rises" || first.Link != "https://example.com/usd" || first.Content != "Dollar gains after CPI" {
		t.Errorf("Unexpected first item: %+v", first)
	}
	want := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("Expected pubDate %s, got %s", want, first.PublishedAt)
	}
	if items[1].Title != "Oil drops" {
		t.Errorf("Expected feed order preserved, got %q second", items[1].Title)
	}
}

func TestRSSFetcher_ItemDefaults(t *testing.T) {
	setupTest(t)

	body := `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>feed</title>
  <item><title>Only title</title></item>
  <item><link>https://example.com/only-link</link><pubDate>not a date</pubDate></item>
  <item><title>Encoded</title><content:encoded><![CDATA[<p>Body</p>]]></content:encoded></item>
  <item><description>Neither title nor link</description></item>
</channel>
</rss>`
	srv := serveBody(t, http.StatusOK, body)

	items, err := newTestFetcher(srv.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("Expected 3 items (one dropped), got %d: %+v", len(items), items)
	}

	if items[0].Title != "Only title" || items[0].Link != "" || items[0].Content != "" {
		t.Errorf("Expected empty-string defaults, got %+v", items[0])
	}
	if items[0].HasPublishDate() {
		t.Error("Expected zero publish date for item without pubDate")
	}
	if items[1].Title != "" || items[1].Link != "https://example.com/only-link" {
		t.Errorf("Unexpected link-only item: %+v", items[1])
	}
	if items[1].HasPublishDate() {
		t.Error("Expected unparseable pubDate to become zero time")
	}
	if items[2].Content != "<p>Body</p>" {
		t.Errorf("Expected content:encoded fallback, got %q", items[2].Content)
	}
}

func TestRSSFetcher_EmptyFeed(t *testing.T) {
	setupTest(t)

	srv := serveBody(t, http.StatusOK, `<rss version="2.0"><channel><title>quiet day</title></channel></rss>`)

	items, err := newTestFetcher(srv.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Empty feed must not be an error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", items)
	}
}

func TestRSSFetcher_AtomFeed(t *testing.T) {
	setupTest(t)

	body := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>atom</title>
  <entry>
    <title>EUR steady</title>
    <link href="https://example.com/eur"/>
    <updated>2024-01-02T10:00:00Z</updated>
    <summary>ECB holds</summary>
  </entry>
</feed>`
	srv := serveBody(t, http.StatusOK, body)

	items, err := newTestFetcher(srv.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "EUR steady" || items[0].Link != "https://example.com/eur" {
		t.Fatalf("Unexpected atom items: %+v", items)
	}
	if !items[0].HasPublishDate() {
		t.Error("Expected updated date to be used as publish date")
	}
}

func TestRSSFetcher_Errors(t *testing.T) {
	setupTest(t)

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    "oops",
			wantErr: ErrFeedUnavailable,
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    twoItemFeed,
			wantErr: ErrFeedUnavailable,
		},
		{
			name:    "rss without channel",
			status:  http.StatusOK,
			body:    `<?xml version="1.0"?><rss version="2.0"><item><title>x</title></item></rss>`,
			wantErr: ErrFeedParse,
		},
		{
			name:    "html page",
			status:  http.StatusOK,
			body:    `<!DOCTYPE html><html><body>maintenance</body></html>`,
			wantErr: ErrFeedParse,
		},
		{
			name:    "plain text",
			status:  http.StatusOK,
			body:    "not a feed",
			wantErr: ErrFeedParse,
		},
		{
			name:    "empty body",
			status:  http.StatusOK,
			body:    "",
			wantErr: ErrFeedParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveBody(t, tt.status, tt.body)

			items, err := newTestFetcher(srv.URL, time.Second).Fetch(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if items != nil {
				t.Errorf("Expected no items on error, got %d", len(items))
			}
		})
	}
}

func TestRSSFetcher_ConnectionRefused(t *testing.T) {
	setupTest(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher(url, time.Second).Fetch(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("Expected ErrFeedUnavailable, got %v", err)
	}
}

func TestRSSFetcher_Timeout(t *testing.T) {
	setupTest(t)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newTestFetcher(srv.URL, 50*time.Millisecond).Fetch(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("Expected timeout to be ErrFeedUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Fetch did not honour timeout, took %s", elapsed)
	}
}

func TestRSSFetcher_BodySizeLimit(t *testing.T) {
	setupTest(t)
	srv := serveBody(t, http.StatusOK, twoItemFeed)

	fetcher := newTestFetcher(srv.URL, time.Second)
	fetcher.maxSize = int64(len(twoItemFeed)) - 1

	items, err := fetcher.Fetch(context.Background())
	if !errors.Is(err, ErrFeedTooLarge) {
		t.Fatalf("Expected ErrFeedTooLarge, got %v", err)
	}
	if !errors.Is(err, ErrFeedParse) {
		t.Errorf("Expected oversized feed to count as a parse failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size in error message, got %q", err.Error())
	}
	if items != nil {
		t.Errorf("Expected no items, got %d", len(items))
	}

	fetcher.maxSize = int64(len(twoItemFeed))
	items, err = fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Expected body at the limit to parse, got %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}
}
