// Package store holds the API's state: job records and caches in redis,
// playlist history in sqlite.
package store

import "errors"

var (
	// ErrJobNotFound is returned for unknown or expired job IDs
	ErrJobNotFound = errors.New("job not found")
	// ErrUnavailable is returned by redis-backed stores running without redis
	ErrUnavailable = errors.New("store unavailable")
)
