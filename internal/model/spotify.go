package model

import "github.com/sonolens/api/internal/mood"

// Recommendation strategies
const (
	StrategySearch          = "search"
	StrategyRecommendations = "recommendations"
)

// RecommendRequest represents the request body for track recommendations
type RecommendRequest struct {
	MoodAnalysis *MoodAnalysis `json:"mood_analysis" validate:"required"`
	Limit        int           `json:"limit" validate:"omitempty,min=1,max=50"`
	Strategy     string        `json:"strategy" validate:"omitempty,oneof=search recommendations"`
}

// RecommendResponse represents the response for track recommendations
type RecommendResponse struct {
	Tracks           []Track               `json:"tracks"`
	SearchParameters mood.SearchParameters `json:"search_parameters"`
	Unresolved       []string              `json:"unresolved"`
	Strategy         string                `json:"strategy"`
}

// SearchTracksResponse represents the response for a catalog search
type SearchTracksResponse struct {
	Tracks []Track `json:"tracks"`
	Query  string  `json:"query"`
}

// SuggestReplacementsRequest represents the request body for replacement suggestions
type SuggestReplacementsRequest struct {
	Track        *Track        `json:"track" validate:"required"`
	MoodAnalysis *MoodAnalysis `json:"mood_analysis" validate:"required"`
	Limit        int           `json:"limit" validate:"omitempty,min=1,max=20"`
}

// SuggestReplacementsResponse represents the response for replacement suggestions
type SuggestReplacementsResponse struct {
	Suggestions   []Track `json:"suggestions"`
	OriginalTrack *Track  `json:"original_track"`
}

// GenreSeedsResponse lists the genres usable as seeds
type GenreSeedsResponse struct {
	Genres []string `json:"genres"`
	Source string   `json:"source"` // "spotify", "cache" or "static"
}

// DashboardResponse aggregates the user's listening overview
type DashboardResponse struct {
	User           *SpotifyUser    `json:"user"`
	TopArtists     []SpotifyArtist `json:"top_artists"`
	TopTracks      []Track         `json:"top_tracks"`
	RecentlyPlayed []PlayHistory   `json:"recently_played"`
}
