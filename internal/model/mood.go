package model

import (
	"errors"

	"github.com/sonolens/api/internal/mood"
)

// MoodAnalysis is the structured mood of an image as returned by the vision model.
// Clients echo it back to the Spotify routes, where only energy_level is
// required; Validate applies the stricter rules for fresh model output.
type MoodAnalysis struct {
	MoodTags               []string         `json:"mood_tags"`
	ColorPalette           []string         `json:"color_palette"`
	EnergyLevel            mood.EnergyLevel `json:"energy_level" validate:"required,oneof=low medium high"`
	EmotionalDescriptors   []string         `json:"emotional_descriptors"`
	Atmosphere             string           `json:"atmosphere"`
	RecommendedGenres      []string         `json:"recommended_genres"`
	SeedArtists            []string         `json:"seed_artists,omitempty"`
	SeedTracks             []string         `json:"seed_tracks,omitempty"`
	SuggestedPlaylistTitle string           `json:"suggested_playlist_title"`
	ConfidenceScore        *float64         `json:"confidence_score,omitempty"`
}

var (
	ErrMissingMoodTags      = errors.New("missing mood_tags")
	ErrInvalidEnergyLevel   = errors.New("energy_level must be low, medium or high")
	ErrMissingGenres        = errors.New("missing recommended_genres")
	ErrMissingPlaylistTitle = errors.New("missing suggested_playlist_title")
)

// Validate checks the fields every vision model answer must carry
func (m *MoodAnalysis) Validate() error {
	var errs []error
	if m.MoodTags == nil {
		errs = append(errs, ErrMissingMoodTags)
	}
	if !m.EnergyLevel.Valid() {
		errs = append(errs, ErrInvalidEnergyLevel)
	}
	if m.RecommendedGenres == nil {
		errs = append(errs, ErrMissingGenres)
	}
	if m.SuggestedPlaylistTitle == "" {
		errs = append(errs, ErrMissingPlaylistTitle)
	}
	return errors.Join(errs...)
}

// Description converts the analysis into the mapper's input
func (m *MoodAnalysis) Description() mood.Description {
	return mood.Description{
		MoodTags:               m.MoodTags,
		EnergyLevel:            m.EnergyLevel,
		EmotionalDescriptors:   m.EmotionalDescriptors,
		RecommendedGenres:      m.RecommendedGenres,
		SeedTrackNames:         m.SeedTracks,
		SeedArtistNames:        m.SeedArtists,
		SuggestedPlaylistTitle: m.SuggestedPlaylistTitle,
	}
}

// AnalyzeImageRequest represents the request body for image analysis
type AnalyzeImageRequest struct {
	Image     string `json:"image" validate:"required"`
	ImageType string `json:"image_type" validate:"required"`
}

// AnalyzeImageResponse represents the response for image analysis
type AnalyzeImageResponse struct {
	AnalysisID       string                `json:"analysis_id"`
	MoodAnalysis     *MoodAnalysis         `json:"mood_analysis"`
	SearchParameters mood.SearchParameters `json:"search_parameters"`
	ImageURL         string                `json:"image_url,omitempty"`
	Cached           bool                  `json:"cached"`
}
