package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Crawl and fetch errors
	ErrTransientFetch = fmt.Errorf("transient fetch failure")
	ErrDecode         = fmt.Errorf("malformed page payload")
	ErrCrawlAborted   = fmt.Errorf("crawl aborted")

	// Storage errors
	ErrStorage      = fmt.Errorf("storage operation failed")
	ErrSongNotFound = fmt.Errorf("song not found")
	ErrRunNotFound  = fmt.Errorf("sync run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
