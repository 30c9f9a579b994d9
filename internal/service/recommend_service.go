package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/sonolens/api/internal/batch"
	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/mood"
	"github.com/sonolens/api/internal/store"
)

const (
	maxRecommendGenres  = 3
	maxRecommendArtists = 2
	maxRecommendTracks  = 1

	maxReplacementGenres    = 2
	defaultReplacementLimit = 5
)

var (
	fallbackRecommendGenres    = []string{"ambient"}
	fallbackUnavailableGenres  = []string{"ambient", "pop"}
	fallbackRecommendArtistIDs = []string{
		"7MSUfLeTdDEoZiJPDSBXgi", // Brian Eno
		"5hW4u5RbOqEte58YvgVIZ1", // Nils Frahm
	}
)

// ErrNoRecommendations is returned when Spotify has nothing for the seeds
var ErrNoRecommendations = errors.New("No recommendations found for this mood. Try a different image or mood.")

// RecommendService turns mood analyses into Spotify tracks
type RecommendService struct {
	spotify   SpotifyAPI
	cache     *store.Cache
	batchSize int
	logger    *log.Logger
}

func NewRecommendService(spotify SpotifyAPI, cache *store.Cache, batchSize int, logger *log.Logger) *RecommendService {
	return &RecommendService{
		spotify:   spotify,
		cache:     cache,
		batchSize: batchSize,
		logger:    logger,
	}
}

// lookupResult is one slot of a batched track lookup
type lookupResult struct {
	track *model.Track
	err   error
}

// Recommend finds tracks for the analysis using the requested strategy
func (s *RecommendService) Recommend(ctx context.Context, token string, req *model.RecommendRequest) (*model.RecommendResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = mood.DefaultLimit
	}
	params := mood.ToSearchParameters(req.MoodAnalysis.Description(), limit)

	switch req.Strategy {
	case model.StrategyRecommendations:
		tracks, err := s.recommendBySeeds(ctx, token, req.MoodAnalysis, params)
		if err != nil {
			return nil, err
		}
		return &model.RecommendResponse{
			Tracks:           tracks,
			SearchParameters: params,
			Unresolved:       []string{},
			Strategy:         model.StrategyRecommendations,
		}, nil
	default:
		tracks, unresolved, err := s.recommendBySearch(ctx, token, req.MoodAnalysis, params)
		if err != nil {
			return nil, err
		}
		return &model.RecommendResponse{
			Tracks:           tracks,
			SearchParameters: params,
			Unresolved:       unresolved,
			Strategy:         model.StrategySearch,
		}, nil
	}
}

// recommendBySearch resolves each suggested track name, falling back to a
// genre search when the analysis named no tracks.
func (s *RecommendService) recommendBySearch(ctx context.Context, token string, analysis *model.MoodAnalysis, params mood.SearchParameters) ([]model.Track, []string, error) {
	names := analysis.SeedTracks
	if len(names) > params.Limit {
		names = names[:params.Limit]
	}

	if len(names) == 0 {
		if len(params.SeedGenres) == 0 {
			return nil, nil, ErrNoSeeds
		}
		tracks, err := s.spotify.SearchTracksByGenres(ctx, token, params.SeedGenres, params.Limit, "")
		if err != nil {
			return nil, nil, fmt.Errorf("genre search: %w", err)
		}
		if len(tracks) == 0 {
			return nil, nil, ErrNoTracksFound
		}
		return dedupeTracks(tracks), []string{}, nil
	}

	results := batch.Process(names, s.batchSize, func(name string) lookupResult {
		track, err := s.spotify.SearchTrack(ctx, token, name)
		if err != nil {
			s.logger.Warn("track lookup failed", "name", name, "err", err)
		}
		return lookupResult{track: track, err: err}
	})

	var (
		tracks     []model.Track
		unresolved = []string{}
		authErr    error
	)
	for i, r := range results {
		if r.track == nil {
			unresolved = append(unresolved, names[i])
			if errors.Is(r.err, client.ErrUnauthorized) {
				authErr = r.err
			}
			continue
		}
		tracks = append(tracks, *r.track)
	}

	if len(tracks) == 0 {
		if authErr != nil {
			return nil, nil, authErr
		}
		return nil, nil, ErrNoTracksFound
	}
	return dedupeTracks(tracks), unresolved, nil
}

// recommendBySeeds builds a genre/artist/track seeded recommendations call
func (s *RecommendService) recommendBySeeds(ctx context.Context, token string, analysis *model.MoodAnalysis, params mood.SearchParameters) ([]model.Track, error) {
	seeds := client.RecommendationSeeds{
		Genres:  s.seedGenres(ctx, token, params.SeedGenres),
		Artists: s.seedArtists(ctx, token, params.SeedArtistNames),
		Tracks:  s.seedTracks(ctx, token, params.SeedTrackNames),
	}

	var market string
	if user, err := s.spotify.CurrentUser(ctx, token); err == nil {
		market = user.Country
	} else {
		s.logger.Debug("continuing without market", "err", err)
	}

	tracks, err := s.spotify.Recommendations(ctx, token, client.RecommendationsRequest{
		Seeds:                  seeds,
		TargetEnergy:           &params.TargetEnergy,
		TargetValence:          &params.TargetValence,
		TargetDanceability:     &params.TargetDanceability,
		TargetAcousticness:     params.TargetAcousticness,
		TargetInstrumentalness: params.TargetInstrumentalness,
		Limit:                  params.Limit,
		Market:                 market,
	})
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrNoRecommendations
	}
	return tracks, nil
}

func (s *RecommendService) seedGenres(ctx context.Context, token string, genres []string) []string {
	available, err := spotifyGenreSeeds(ctx, s.spotify, s.cache, token)
	if err != nil {
		s.logger.Warn("failed to fetch genre seeds, using fallback", "err", err)
		return fallbackUnavailableGenres
	}

	known := make(map[string]bool, len(available))
	for _, g := range available {
		known[g] = true
	}
	var valid []string
	for _, g := range genres {
		if known[g] {
			valid = append(valid, g)
		}
	}
	if len(valid) == 0 {
		return fallbackRecommendGenres
	}
	return valid[:min(len(valid), maxRecommendGenres)]
}

type artistResult struct {
	id  string
	err error
}

// seedArtists resolves artist names in batches and keeps the first hits in input order
func (s *RecommendService) seedArtists(ctx context.Context, token string, names []string) []string {
	results := batch.Process(names, s.batchSize, func(name string) artistResult {
		id, err := s.spotify.SearchArtistID(ctx, token, name)
		return artistResult{id: id, err: err}
	})

	var ids []string
	for i, r := range results {
		if r.err != nil {
			s.logger.Warn("artist lookup failed", "name", names[i], "err", r.err)
			continue
		}
		if r.id != "" {
			ids = append(ids, r.id)
		}
	}
	if len(ids) == 0 {
		return fallbackRecommendArtistIDs
	}
	return ids[:min(len(ids), maxRecommendArtists)]
}

// seedTracks stays sequential: it stops at the first resolved track
func (s *RecommendService) seedTracks(ctx context.Context, token string, names []string) []string {
	var ids []string
	for _, name := range names {
		track, err := s.spotify.SearchTrack(ctx, token, name)
		if err != nil {
			s.logger.Warn("track lookup failed", "name", name, "err", err)
			continue
		}
		if track != nil {
			ids = append(ids, track.ID)
			if len(ids) == maxRecommendTracks {
				break
			}
		}
	}
	return ids
}

// SuggestReplacements finds tracks similar to one the user wants to swap out
func (s *RecommendService) SuggestReplacements(ctx context.Context, token string, req *model.SuggestReplacementsRequest) (*model.SuggestReplacementsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultReplacementLimit
	}

	energy, valence := replacementTargets(req.MoodAnalysis.EnergyLevel)
	genres := mood.NormalizeGenres(req.MoodAnalysis.RecommendedGenres)

	tracks, err := s.spotify.Recommendations(ctx, token, client.RecommendationsRequest{
		Seeds: client.RecommendationSeeds{
			Genres: genres[:min(len(genres), maxReplacementGenres)],
			Tracks: []string{req.Track.ID},
		},
		TargetEnergy:  &energy,
		TargetValence: &valence,
		Limit:         limit * 2,
	})
	if err != nil {
		return nil, err
	}

	suggestions := make([]model.Track, 0, limit)
	for _, t := range tracks {
		if t.ID == req.Track.ID {
			continue
		}
		suggestions = append(suggestions, t)
		if len(suggestions) == limit {
			break
		}
	}

	return &model.SuggestReplacementsResponse{
		Suggestions:   suggestions,
		OriginalTrack: req.Track,
	}, nil
}

func replacementTargets(level mood.EnergyLevel) (energy, valence float64) {
	switch level {
	case mood.EnergyHigh:
		return 0.8, 0.7
	case mood.EnergyMedium:
		return 0.5, 0.5
	default:
		return 0.3, 0.3
	}
}

// dedupeTracks drops repeated track IDs, keeping the first occurrence
func dedupeTracks(tracks []model.Track) []model.Track {
	seen := make(map[string]bool, len(tracks))
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
