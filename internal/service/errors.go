package service

import "errors"

var (
	// ErrNotConfigured means the upstream a request needs has no credentials
	ErrNotConfigured = errors.New("service not configured")

	ErrUnsupportedImageType = errors.New("Invalid image type. Supported types: JPEG, PNG, WebP")
	ErrInvalidImage         = errors.New("invalid image data")
	ErrImageTooLarge        = errors.New("image exceeds 20 MB")

	// ErrAnalysisFailed wraps any vision model or response-parsing failure
	ErrAnalysisFailed = errors.New("Failed to analyze image")

	ErrNoSeeds       = errors.New("AI did not suggest any tracks")
	ErrNoTracksFound = errors.New("Could not find any of the suggested tracks on Spotify")

	ErrJobNotCompleted = errors.New("job not completed")
	ErrJobForbidden    = errors.New("job belongs to another user")
)
