package model

import (
	"time"

	"github.com/sonolens/api/internal/mood"
)

// DefaultPlaylistDescription is used when a playlist is saved without a description
const DefaultPlaylistDescription = "Created with SonoLens - AI-powered playlist from image analysis"

// CreatePlaylistRequest represents the request body for saving a playlist
type CreatePlaylistRequest struct {
	Title        string        `json:"title" validate:"required,min=1,max=100"`
	Description  string        `json:"description" validate:"omitempty,max=300"`
	TrackURIs    []string      `json:"track_uris" validate:"required,min=1,max=500,dive,startswith=spotify:track:"`
	IsPublic     *bool         `json:"is_public"`
	CoverImage   string        `json:"cover_image"`
	MoodAnalysis *MoodAnalysis `json:"mood_analysis"`
	ImageURL     string        `json:"image_url" validate:"omitempty,url"`
}

// Public reports the requested visibility, defaulting to public
func (r *CreatePlaylistRequest) Public() bool {
	return r.IsPublic == nil || *r.IsPublic
}

// PlaylistSummary describes a saved playlist
type PlaylistSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	URI  string `json:"uri"`
}

// CreatePlaylistResponse represents the response for a saved playlist
type CreatePlaylistResponse struct {
	Playlist      PlaylistSummary `json:"playlist"`
	CoverUploaded bool            `json:"cover_uploaded"`
	TracksAdded   int             `json:"tracks_added"`
}

// CreatePlaylistAsyncResponse is returned when a save is queued
type CreatePlaylistAsyncResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// PlaylistRecord is a playlist saved through the API, kept for the user's history
type PlaylistRecord struct {
	ID                string           `gorm:"primaryKey;size:36" json:"id"`
	UserID            string           `gorm:"index;not null" json:"user_id"`
	SpotifyPlaylistID string           `gorm:"not null" json:"spotify_playlist_id"`
	Name              string           `json:"name"`
	URL               string           `json:"url"`
	URI               string           `json:"uri"`
	TrackCount        int              `json:"track_count"`
	MoodTags          []string         `gorm:"serializer:json" json:"mood_tags"`
	EnergyLevel       mood.EnergyLevel `json:"energy_level,omitempty"`
	ImageURL          string           `json:"image_url,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// PlaylistHistoryResponse lists a user's saved playlists, newest first
type PlaylistHistoryResponse struct {
	Playlists []PlaylistRecord `json:"playlists"`
	Total     int64            `json:"total"`
}
