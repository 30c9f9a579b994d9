package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by any *APIError carrying a 401
	ErrUnauthorized = errors.New("spotify: unauthorized")
	// ErrNoToken means neither a user token nor client credentials were available
	ErrNoToken = errors.New("spotify: no access token available")
	// ErrNoSeeds means a recommendations call had nothing to seed from
	ErrNoSeeds = errors.New("spotify: at least one seed (genre, artist, or track) is required")
)

// APIError is a non-2xx answer from the Spotify Web API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// spotifyErrorBody is the error object Spotify returns with failures
type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
