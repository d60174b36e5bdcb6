package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/selivandex/forex-analyzer/pkg/models"
)

const systemPrompt = "You are a financial analyst expert in correlations between different assets."

const correlationInstructions = `Analyze these news items and identify correlations between major currency pairs, commodities, and stock indices. Return the data as JSON array with correlation scores (-1 to 1) and sentiment impact (-1 to 1).
Each array element must be an object: {"assetA": string, "assetB": string, "correlation": number, "sentiment": number, "relatedNews": [indexes of the news items below]}.
Respond with the JSON array only.
`

var codeFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// promptNewsItem is the shape news takes inside the prompt
type promptNewsItem struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	PubDate string `json:"pubDate,omitempty"`
	Content string `json:"content"`
}

func buildCorrelationPrompt(news []models.NewsItem, contentMaxLen int) (string, error) {
	items := make([]promptNewsItem, len(news))
	for i, n := range news {
		items[i] = promptNewsItem{
			Index:   i,
			Title:   n.Title,
			Link:    n.Link,
			Content: truncateContent(n.Content, contentMaxLen),
		}
		if n.HasPublishDate() {
			items[i].PubDate = n.PublishedAt.Format(time.RFC3339)
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}

	return correlationInstructions + string(data), nil
}

// correlationPayload is one element as returned by the model.
// Pointers tell a missing score apart from a zero score.
type correlationPayload struct {
	AssetA      string            `json:"assetA"`
	AssetB      string            `json:"assetB"`
	Asset1      string            `json:"asset1"`
	Asset2      string            `json:"asset2"`
	Correlation *float64          `json:"correlation"`
	Sentiment   *float64          `json:"sentiment"`
	RelatedNews []json.RawMessage `json:"relatedNews"`
}

// parseCorrelations validates the completion text and resolves related news against the request
func parseCorrelations(content string, news []models.NewsItem) ([]models.CorrelationPair, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("empty completion")
	}

	var payload []correlationPayload
	if strings.HasPrefix(raw, "{") {
		var wrapped struct {
			Correlations *[]correlationPayload `json:"correlations"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse completion: %w", err)
		}
		if wrapped.Correlations == nil {
			return nil, fmt.Errorf("completion object has no correlations array")
		}
		payload = *wrapped.Correlations
	} else if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if payload == nil {
		// JSON null decodes without error, an empty array is the only valid "no correlations"
		return nil, fmt.Errorf("completion has no correlations array")
	}

	pairs := make([]models.CorrelationPair, 0, len(payload))
	for i, p := range payload {
		pair, err := p.toPair(news)
		if err != nil {
			return nil, fmt.Errorf("correlation %d: %w", i, err)
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}

func (p correlationPayload) toPair(news []models.NewsItem) (models.CorrelationPair, error) {
	assetA := strings.TrimSpace(firstNonEmpty(p.AssetA, p.Asset1))
	assetB := strings.TrimSpace(firstNonEmpty(p.AssetB, p.Asset2))
	if assetA == "" || assetB == "" {
		return models.CorrelationPair{}, fmt.Errorf("missing asset names")
	}

	if err := checkScore("correlation", p.Correlation); err != nil {
		return models.CorrelationPair{}, err
	}
	if err := checkScore("sentiment", p.Sentiment); err != nil {
		return models.CorrelationPair{}, err
	}

	return models.CorrelationPair{
		AssetA:      assetA,
		AssetB:      assetB,
		Correlation: *p.Correlation,
		Sentiment:   *p.Sentiment,
		RelatedNews: resolveRelatedNews(p.RelatedNews, news),
	}, nil
}

func checkScore(name string, v *float64) error {
	if v == nil {
		return fmt.Errorf("missing %s", name)
	}
	if math.IsNaN(*v) || *v < -1 || *v > 1 {
		return fmt.Errorf("%s %v out of range [-1, 1]", name, *v)
	}
	return nil
}

// resolveRelatedNews accepts indexes, titles or links; unknown references are dropped
func resolveRelatedNews(refs []json.RawMessage, news []models.NewsItem) []models.NewsItem {
	related := make([]models.NewsItem, 0, len(refs))
	seen := make(map[int]bool, len(refs))

	for _, ref := range refs {
		idx := -1

		var n int
		var s string
		if err := json.Unmarshal(ref, &n); err == nil {
			if n >= 0 && n < len(news) {
				idx = n
			}
		} else if err := json.Unmarshal(ref, &s); err == nil {
			idx = findNews(news, strings.TrimSpace(s))
		}

		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		related = append(related, news[idx])
	}

	return related
}

func findNews(news []models.NewsItem, ref string) int {
	if ref == "" {
		return -1
	}
	for i, n := range news {
		if n.Link == ref || strings.EqualFold(n.Title, ref) {
			return i
		}
	}
	return -1
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// extractJSON strips markdown fences and surrounding prose from model output
func extractJSON(text string) string {
	matches := codeFenceRe.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// Try to find JSON object or array
	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")

	var start int
	var endChar string

	// Determine which comes first: object or array
	if startObj >= 0 && (startArr < 0 || startObj < startArr) {
		start = startObj
		endChar = "}"
	} else if startArr >= 0 {
		start = startArr
		endChar = "]"
	} else {
		return strings.TrimSpace(text)
	}

	end := strings.LastIndex(text, endChar)
	if end > start {
		return strings.TrimSpace(text[start : end+1])
	}

	return strings.TrimSpace(text)
}

func truncateContent(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	// Cut on a rune boundary
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
