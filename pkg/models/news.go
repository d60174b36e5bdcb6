package models

import "time"

// NewsItem represents single feed entry.
// Missing fields are empty strings, a missing publish date is the zero time.
type NewsItem struct {
	PublishedAt time.Time `json:"pubDate"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Content     string    `json:"content"`
}

// HasPublishDate reports whether the feed supplied a parseable publish date
func (n NewsItem) HasPublishDate() bool {
	return !n.PublishedAt.IsZero()
}
