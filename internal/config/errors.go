package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoEndpoint is returned when the admin endpoint is empty.
	ErrNoEndpoint = errors.New("no admin endpoint specified: use --endpoint or MESHMAP_ENDPOINT")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// Without workers no node beyond the root could be interrogated.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidCrawlTimeout is returned when the crawl timeout is negative.
	// Use 0 for no limit.
	ErrInvalidCrawlTimeout = errors.New("invalid crawl timeout: must be non-negative")

	// ErrInvalidMode is returned when the export mode is not supported.
	ErrInvalidMode = errors.New("invalid mode: must be \"path\" or \"peers\"")

	// ErrIncompleteProxyAuth is returned when a proxy password is set
	// without a user name.
	ErrIncompleteProxyAuth = errors.New("proxy password given without proxy user")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidNodeKey is returned when the config file names a node by a
	// string that is not a valid key.
	ErrInvalidNodeKey = errors.New("invalid node key in config file")

	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
