package crawler

import "errors"

var (
	// ErrCrawlInProgress is returned by Refresh when another generation is
	// running. The running generation is not affected.
	ErrCrawlInProgress = errors.New("crawl already in progress")

	// ErrClosed is returned by Open and Refresh after Close.
	ErrClosed = errors.New("crawl engine closed")
)
