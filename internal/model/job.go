package model

import (
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a background job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents a background job in the system
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	UserID      string          `json:"userId"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	RetryCount  int             `json:"retryCount"`
}

// Job types
const (
	JobTypePlaylist = "playlist"
)

// PlaylistJobPayload contains the data for a playlist save job.
// SpotifyToken is the caller's access token; the job record holding it expires quickly.
// Playlist is set once an attempt has created the Spotify playlist, so a
// retried attempt fills it instead of creating a duplicate.
type PlaylistJobPayload struct {
	UserID       string                `json:"userId"`
	SpotifyToken string                `json:"spotifyToken"`
	Request      CreatePlaylistRequest `json:"request"`
	Playlist     *SpotifyPlaylist      `json:"playlist,omitempty"`
}

// JobStatusResponse is the public view of a job
type JobStatusResponse struct {
	JobID       string    `json:"jobId"`
	Type        string    `json:"type"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"currentStep,omitempty"`
	Error       *string   `json:"error,omitempty"`
}
