// Package mood turns a structured mood description of an image into music
// search parameters: numeric audio-feature targets plus whitelisted genre seeds.
//
// Everything in this package is pure and deterministic. Keyword matching is
// substring based, so "energetically" counts as "energetic".
package mood

import "strings"

// EnergyLevel is the coarse visual energy reported for an image
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// Valid reports whether the level is one of low, medium or high
func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

// DefaultLimit is the number of tracks requested when no limit is given
const DefaultLimit = 20

// MaxSeedNames caps the seed track and seed artist names carried into a search
const MaxSeedNames = 5

// Description is the mood of an image as produced by the vision model.
// Nil slices are treated as empty.
type Description struct {
	MoodTags               []string
	EnergyLevel            EnergyLevel
	EmotionalDescriptors   []string
	RecommendedGenres      []string
	SeedTrackNames         []string
	SeedArtistNames        []string
	SuggestedPlaylistTitle string
}

// SearchParameters are the music-search inputs derived from a Description.
// Nil pointers and nil slices mean "no preference".
type SearchParameters struct {
	SeedGenres             []string `json:"seed_genres,omitempty"`
	SeedTrackNames         []string `json:"seed_track_names,omitempty"`
	SeedArtistNames        []string `json:"seed_artist_names,omitempty"`
	TargetEnergy           float64  `json:"target_energy"`
	TargetValence          float64  `json:"target_valence"`
	TargetDanceability     float64  `json:"target_danceability"`
	TargetAcousticness     *float64 `json:"target_acousticness,omitempty"`
	TargetInstrumentalness *float64 `json:"target_instrumentalness,omitempty"`
	Limit                  int      `json:"limit"`
}

var (
	positiveKeywords = []string{
		"happy", "joyful", "uplifting", "cheerful", "energetic",
		"excited", "optimistic", "bright", "playful", "euphoric",
	}
	negativeKeywords = []string{
		"sad", "melancholic", "somber", "dark", "gloomy",
		"depressing", "lonely", "nostalgic", "moody", "tragic",
	}
	danceKeywords        = []string{"dance", "groove", "rhythmic", "upbeat", "funky", "party", "energetic", "lively"}
	acousticKeywords     = []string{"acoustic", "organic", "natural", "folk", "intimate", "stripped", "raw"}
	electronicKeywords   = []string{"electronic", "synthetic", "digital", "techno", "edm"}
	instrumentalKeywords = []string{"instrumental", "ambient", "cinematic", "atmospheric", "soundscape"}
)

// MapEnergy converts an energy level to a target energy.
// Unknown levels map like medium.
func MapEnergy(level EnergyLevel) float64 {
	switch level {
	case EnergyLow:
		return 0.3
	case EnergyHigh:
		return 0.9
	default:
		return 0.6
	}
}

// InferValence estimates positivity as the share of positive entries among
// all entries that matched either keyword set, or 0.5 when none matched.
// An entry such as "bittersweet dark joy" may count on both sides.
func InferValence(tags, descriptors []string) float64 {
	var positive, negative int
	for _, entry := range lowerAll(tags, descriptors) {
		if containsAny(entry, positiveKeywords) {
			positive++
		}
		if containsAny(entry, negativeKeywords) {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return 0.5
	}
	return float64(positive) / float64(total)
}

// InferDanceability returns 0.8 for dance-flavoured tags, otherwise a value keyed on energy
func InferDanceability(tags []string, level EnergyLevel) float64 {
	if anyContains(lowerAll(tags), danceKeywords) {
		return 0.8
	}

	switch level {
	case EnergyLow:
		return 0.3
	case EnergyHigh:
		return 0.7
	default:
		return 0.5
	}
}

// InferAcousticness returns 0.8 for acoustic tags and 0.2 for electronic ones.
// Acoustic wins when both are present. ok is false when there is no signal.
func InferAcousticness(tags []string) (value float64, ok bool) {
	lowered := lowerAll(tags)
	if anyContains(lowered, acousticKeywords) {
		return 0.8, true
	}
	if anyContains(lowered, electronicKeywords) {
		return 0.2, true
	}
	return 0, false
}

// InferInstrumentalness returns 0.7 for instrumental-sounding tags
func InferInstrumentalness(tags []string) (value float64, ok bool) {
	if anyContains(lowerAll(tags), instrumentalKeywords) {
		return 0.7, true
	}
	return 0, false
}

// ToSearchParameters builds search parameters for a mood.
// SeedGenres stays nil when the description suggests no genres at all; the
// "pop" fallback only applies to a non-empty list that fails to normalize.
func ToSearchParameters(d Description, limit int) SearchParameters {
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := SearchParameters{
		Limit:              limit,
		TargetEnergy:       MapEnergy(d.EnergyLevel),
		TargetValence:      InferValence(d.MoodTags, d.EmotionalDescriptors),
		TargetDanceability: InferDanceability(d.MoodTags, d.EnergyLevel),
	}

	if len(d.RecommendedGenres) > 0 {
		params.SeedGenres = NormalizeGenres(d.RecommendedGenres)
	}
	if len(d.SeedArtistNames) > 0 {
		params.SeedArtistNames = capNames(d.SeedArtistNames)
	}
	if len(d.SeedTrackNames) > 0 {
		params.SeedTrackNames = capNames(d.SeedTrackNames)
	}

	if v, ok := InferAcousticness(d.MoodTags); ok {
		params.TargetAcousticness = &v
	}
	if v, ok := InferInstrumentalness(d.MoodTags); ok {
		params.TargetInstrumentalness = &v
	}

	return params
}

func capNames(names []string) []string {
	n := len(names)
	if n > MaxSeedNames {
		n = MaxSeedNames
	}
	out := make([]string, n)
	copy(out, names[:n])
	return out
}

func lowerAll(groups ...[]string) []string {
	var out []string
	for _, group := range groups {
		for _, s := range group {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

func containsAny(entry string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(entry, k) {
			return true
		}
	}
	return false
}

func anyContains(entries, keywords []string) bool {
	for _, entry := range entries {
		if containsAny(entry, keywords) {
			return true
		}
	}
	return false
}
