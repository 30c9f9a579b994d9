package service

import (
	"context"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
)

// VisionModel analyzes an image against a prompt and returns the raw JSON answer
type VisionModel interface {
	AnalyzeImage(ctx context.Context, prompt, mimeType, imageBase64 string) (string, error)
	IsConfigured() bool
}

// SpotifyAPI is the subset of the Spotify Web API the services use
type SpotifyAPI interface {
	SearchTracks(ctx context.Context, token, query string, limit int, market string) ([]model.Track, error)
	SearchTrack(ctx context.Context, token, name string) (*model.Track, error)
	SearchArtistID(ctx context.Context, token, name string) (string, error)
	SearchTracksByGenres(ctx context.Context, token string, genres []string, limit int, market string) ([]model.Track, error)
	Recommendations(ctx context.Context, token string, req client.RecommendationsRequest) ([]model.Track, error)
	GenreSeeds(ctx context.Context, token string) ([]string, error)
	CurrentUser(ctx context.Context, token string) (*model.SpotifyUser, error)
	TopArtists(ctx context.Context, token, timeRange string, limit int) ([]model.SpotifyArtist, error)
	TopTracks(ctx context.Context, token, timeRange string, limit int) ([]model.Track, error)
	RecentlyPlayed(ctx context.Context, token string, limit int) ([]model.PlayHistory, error)
	CreatePlaylist(ctx context.Context, token, userID, name, description string, public bool) (*model.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error)
	UploadCover(ctx context.Context, token, playlistID, imageBase64 string) error
}

// PlaylistHistory records saved playlists per user
type PlaylistHistory interface {
	Record(ctx context.Context, rec *model.PlaylistRecord) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.PlaylistRecord, int64, error)
}

var (
	_ SpotifyAPI = (*client.SpotifyClient)(nil)
	_ VisionModel = (*client.LLMClient)(nil)
)
