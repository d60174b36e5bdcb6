package news

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
)

// validateDocument rejects documents gofeed would silently turn into an empty feed.
// An RSS root without a channel element parses without error but has no items container.
func validateDocument(body []byte) error {
	switch gofeed.DetectFeedType(bytes.NewReader(body)) {
	case gofeed.FeedTypeRSS:
		return requireChannel(body)
	case gofeed.FeedTypeAtom, gofeed.FeedTypeJSON:
		return nil
	default:
		return gofeed.ErrFeedTypeNotDetected
	}
}

func requireChannel(body []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	// Element names are ASCII, the declared charset does not matter here
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("rss document has no channel element")
		}
		if err != nil {
			return fmt.Errorf("invalid xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && strings.EqualFold(t.Name.Local, "channel") {
				return nil
			}
		case xml.EndElement:
			depth--
		}
	}
}
