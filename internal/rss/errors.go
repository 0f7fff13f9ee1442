package rss

import (
	"errors"
	"fmt"
)

// ErrNotAFeed is returned when a document's root element is not a known feed root.
var ErrNotAFeed = errors.New("not a feed")

// ErrBodyTooLarge reports a response body over the fetcher's size cap.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// NetworkError reports a fetch that could not complete: transport failure,
// timeout, or a non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a document that could not be read as a feed.
type ParseError struct {
	Root string // offending root element, empty if none was found
	Err  error
}

func (e *ParseError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("parse feed: unexpected root element <%s>: %v", e.Root, e.Err)
	}
	return fmt.Sprintf("parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
