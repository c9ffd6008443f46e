package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no file or URL is given.
	ErrNoTarget = errors.New("no target specified: provide a file, a URL or use --list")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --ui is given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use only one of --json, --markdown and --ui")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxAge is returned when the cache age is negative.
	ErrInvalidMaxAge = errors.New("invalid max age: must be non-negative")

	// ErrInvalidThreshold is returned when a threshold is outside 0-100.
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 100")

	// ErrInvalidSectionGap is returned when the section gap is not positive.
	ErrInvalidSectionGap = errors.New("invalid section gap: must be positive")

	// ErrInvalidLogFormat is returned for a log format other than text or
	// json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")
)
