package service

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/mood"
	"github.com/sonolens/api/internal/store"
)

const (
	defaultSearchLimit = 10
	dashboardItems     = 4
)

// Genre seed sources
const (
	GenreSourceSpotify = "spotify"
	GenreSourceCache   = "cache"
	GenreSourceStatic  = "static"
)

// ErrEmptyQuery is returned when a search has nothing to look for
var ErrEmptyQuery = errors.New("query parameter 'q' is required")

// CatalogService serves catalog lookups and the user's listening overview
type CatalogService struct {
	spotify SpotifyAPI
	cache   *store.Cache
	logger  *log.Logger
}

func NewCatalogService(spotify SpotifyAPI, cache *store.Cache, logger *log.Logger) *CatalogService {
	return &CatalogService{
		spotify: spotify,
		cache:   cache,
		logger:  logger,
	}
}

// Search runs a free-text track search
func (s *CatalogService) Search(ctx context.Context, token, query string, limit int) (*model.SearchTracksResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	tracks, err := s.spotify.SearchTracks(ctx, token, query, limit, "")
	if err != nil {
		return nil, err
	}
	return &model.SearchTracksResponse{Tracks: tracks, Query: query}, nil
}

// GenreSeeds lists seed genres, preferring the cache, then Spotify, then the built-in whitelist
func (s *CatalogService) GenreSeeds(ctx context.Context, token string) *model.GenreSeedsResponse {
	if genres, ok := s.cache.GenreSeeds(ctx); ok {
		return &model.GenreSeedsResponse{Genres: genres, Source: GenreSourceCache}
	}

	genres, err := s.spotify.GenreSeeds(ctx, token)
	if err != nil || len(genres) == 0 {
		if err != nil {
			s.logger.Warn("genre seeds unavailable, serving whitelist", "err", err)
		}
		return &model.GenreSeedsResponse{Genres: mood.GenreWhitelist(), Source: GenreSourceStatic}
	}

	s.cache.SetGenreSeeds(ctx, genres)
	return &model.GenreSeedsResponse{Genres: genres, Source: GenreSourceSpotify}
}

// spotifyGenreSeeds returns Spotify's genre seed list through the cache
func spotifyGenreSeeds(ctx context.Context, spotify SpotifyAPI, cache *store.Cache, token string) ([]string, error) {
	if genres, ok := cache.GenreSeeds(ctx); ok {
		return genres, nil
	}
	genres, err := spotify.GenreSeeds(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(genres) > 0 {
		cache.SetGenreSeeds(ctx, genres)
	}
	return genres, nil
}

// Dashboard fetches the profile, top artists, top tracks and recent plays in parallel
func (s *CatalogService) Dashboard(ctx context.Context, token string) (*model.DashboardResponse, error) {
	var resp model.DashboardResponse

	p := pool.New().WithErrors().WithContext(ctx).WithFirstError().WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		user, err := s.spotify.CurrentUser(ctx, token)
		resp.User = user
		return err
	})
	p.Go(func(ctx context.Context) error {
		artists, err := s.spotify.TopArtists(ctx, token, client.TimeRangeMedium, dashboardItems)
		resp.TopArtists = artists
		return err
	})
	p.Go(func(ctx context.Context) error {
		tracks, err := s.spotify.TopTracks(ctx, token, client.TimeRangeMedium, dashboardItems)
		resp.TopTracks = tracks
		return err
	})
	p.Go(func(ctx context.Context) error {
		played, err := s.spotify.RecentlyPlayed(ctx, token, dashboardItems)
		resp.RecentlyPlayed = played
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	if resp.TopArtists == nil {
		resp.TopArtists = []model.SpotifyArtist{}
	}
	if resp.TopTracks == nil {
		resp.TopTracks = []model.Track{}
	}
	if resp.RecentlyPlayed == nil {
		resp.RecentlyPlayed = []model.PlayHistory{}
	}
	return &resp, nil
}
