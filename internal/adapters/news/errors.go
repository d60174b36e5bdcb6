package news

import (
	"errors"
	"fmt"
)

var (
	// ErrFeedUnavailable means the feed could not be retrieved (transport error, non-2xx, timeout)
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedParse means the document was retrieved but is not a feed
	ErrFeedParse = errors.New("feed parse error")
	// ErrFeedTooLarge means the body exceeded the size limit, it is never parsed truncated
	ErrFeedTooLarge = fmt.Errorf("%w: feed too large", ErrFeedParse)
)
