package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/sonolens/api/internal/config"
	"github.com/sonolens/api/internal/model"
)

const (
	// MaxRecommendationSeeds is the total seed budget of the recommendations endpoint
	MaxRecommendationSeeds = 5

	// playlistChunkSize is the most URIs Spotify accepts per add-tracks call
	playlistChunkSize = 100

	maxGenreQueryTerms = 3
)

// Time ranges for top artists and tracks
const (
	TimeRangeShort  = "short_term"
	TimeRangeMedium = "medium_term"
	TimeRangeLong   = "long_term"
)

// SpotifyClient handles communication with the Spotify Web API.
//
// Every call takes the caller's access token. An empty token falls back to an
// app token minted from client credentials when those are configured, which
// only works for catalog endpoints (search, recommendations, genre seeds).
type SpotifyClient struct {
	httpClient   *http.Client
	baseURL      string
	appToken     oauth2.TokenSource
	limiter      *rate.Limiter
	maxRetries   int
	baseBackoff  time.Duration
	// a Retry-After beyond maxRetryWait ends the retries
	maxRetryWait time.Duration
	logger       *log.Logger
}

// NewSpotifyClient creates a new Spotify Web API client
func NewSpotifyClient(cfg *config.SpotifyConfig, logger *log.Logger) *SpotifyClient {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	maxWait := cfg.MaxRetryWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &SpotifyClient{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		limiter:      rate.NewLimiter(limit, burst),
		maxRetries:   max(0, cfg.MaxRetries),
		baseBackoff:  backoff,
		maxRetryWait: maxWait,
		logger:       logger.With("client", "spotify"),
	}

	if cfg.HasClientCredentials() {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.appToken = cc.TokenSource(ctx)
	}

	return c
}

// HasAppToken reports whether catalog calls can run without a user token
func (c *SpotifyClient) HasAppToken() bool {
	return c.appToken != nil
}

// SearchTracks runs a free-text track search
func (c *SpotifyClient) SearchTracks(ctx context.Context, token, query string, limit int, market string) ([]model.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	if market != "" {
		params.Set("market", market)
	}

	var resp searchResponse
	if err := c.getJSON(ctx, token, "/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	if resp.Tracks == nil {
		return []model.Track{}, nil
	}
	return compactTracks(resp.Tracks.Items), nil
}

// SearchTrack returns the best match for a track name, or nil when nothing matches
func (c *SpotifyClient) SearchTrack(ctx context.Context, token, name string) (*model.Track, error) {
	tracks, err := c.SearchTracks(ctx, token, name, 1, "")
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return &tracks[0], nil
}

// SearchArtistID returns the ID of the best matching artist, or "" when nothing matches
func (c *SpotifyClient) SearchArtistID(ctx context.Context, token, name string) (string, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("type", "artist")
	params.Set("limit", "1")

	var resp searchResponse
	if err := c.getJSON(ctx, token, "/search?"+params.Encode(), &resp); err != nil {
		return "", fmt.Errorf("search artist: %w", err)
	}
	if resp.Artists == nil || len(resp.Artists.Items) == 0 {
		return "", nil
	}
	return resp.Artists.Items[0].ID, nil
}

// SearchTracksByGenres searches tracks tagged with any of the first three genres
func (c *SpotifyClient) SearchTracksByGenres(ctx context.Context, token string, genres []string, limit int, market string) ([]model.Track, error) {
	return c.SearchTracks(ctx, token, GenreQuery(genres), limit, market)
}

// GenreQuery builds a `genre:"a" OR genre:"b"` search over at most three genres
func GenreQuery(genres []string) string {
	if len(genres) > maxGenreQueryTerms {
		genres = genres[:maxGenreQueryTerms]
	}
	terms := make([]string, len(genres))
	for i, g := range genres {
		terms[i] = fmt.Sprintf("genre:%q", g)
	}
	return strings.Join(terms, " OR ")
}

// RecommendationSeeds are the IDs and genres a recommendations call is seeded with
type RecommendationSeeds struct {
	Genres  []string
	Artists []string
	Tracks  []string
}

// Total is the number of seeds across all kinds
func (s RecommendationSeeds) Total() int {
	return len(s.Genres) + len(s.Artists) + len(s.Tracks)
}

// Budget trims the seeds to the endpoint's limit, filling genres first,
// then artists, then tracks.
func (s RecommendationSeeds) Budget() RecommendationSeeds {
	remaining := MaxRecommendationSeeds
	take := func(in []string) []string {
		n := min(len(in), remaining)
		remaining -= n
		return in[:n]
	}
	return RecommendationSeeds{
		Genres:  take(s.Genres),
		Artists: take(s.Artists),
		Tracks:  take(s.Tracks),
	}
}

// RecommendationsRequest describes a recommendations call. Nil targets are omitted.
type RecommendationsRequest struct {
	Seeds                  RecommendationSeeds
	TargetEnergy           *float64
	TargetValence          *float64
	TargetDanceability     *float64
	TargetAcousticness     *float64
	TargetInstrumentalness *float64
	Limit                  int
	Market                 string
}

// Query renders the request as a raw query string. Seed lists are joined with
// literal commas since Spotify rejects the %2C form.
func (r RecommendationsRequest) Query() (string, error) {
	seeds := r.Seeds.Budget()
	if seeds.Total() == 0 {
		return "", ErrNoSeeds
	}

	var parts []string
	addSeeds := func(key string, values []string) {
		if len(values) == 0 {
			return
		}
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = url.QueryEscape(v)
		}
		parts = append(parts, key+"="+strings.Join(escaped, ","))
	}
	addSeeds("seed_genres", seeds.Genres)
	addSeeds("seed_artists", seeds.Artists)
	addSeeds("seed_tracks", seeds.Tracks)

	addTarget := func(key string, v *float64) {
		if v != nil {
			parts = append(parts, key+"="+strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	addTarget("target_energy", r.TargetEnergy)
	addTarget("target_valence", r.TargetValence)
	addTarget("target_danceability", r.TargetDanceability)
	addTarget("target_acousticness", r.TargetAcousticness)
	addTarget("target_instrumentalness", r.TargetInstrumentalness)

	limit := r.Limit
	if limit <= 0 {
		limit = 20
	}
	parts = append(parts, "limit="+strconv.Itoa(limit))
	if r.Market != "" {
		parts = append(parts, "market="+url.QueryEscape(r.Market))
	}

	return strings.Join(parts, "&"), nil
}

// Recommendations fetches tracks similar to the given seeds
func (c *SpotifyClient) Recommendations(ctx context.Context, token string, req RecommendationsRequest) ([]model.Track, error) {
	query, err := req.Query()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tracks []model.Track `json:"tracks"`
	}
	if err := c.getJSON(ctx, token, "/recommendations?"+query, &resp); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	return compactTracks(resp.Tracks), nil
}

// GenreSeeds lists the genres accepted as recommendation seeds
func (c *SpotifyClient) GenreSeeds(ctx context.Context, token string) ([]string, error) {
	var resp struct {
		Genres []string `json:"genres"`
	}
	if err := c.getJSON(ctx, token, "/recommendations/available-genre-seeds", &resp); err != nil {
		return nil, fmt.Errorf("genre seeds: %w", err)
	}
	return resp.Genres, nil
}

// CurrentUser returns the profile the token belongs to
func (c *SpotifyClient) CurrentUser(ctx context.Context, token string) (*model.SpotifyUser, error) {
	var user model.SpotifyUser
	if err := c.getJSON(ctx, token, "/me", &user); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

// TopArtists returns the user's most listened artists over a time range
func (c *SpotifyClient) TopArtists(ctx context.Context, token, timeRange string, limit int) ([]model.SpotifyArtist, error) {
	var page struct {
		Items []model.SpotifyArtist `json:"items"`
	}
	if err := c.getJSON(ctx, token, topPath("artists", timeRange, limit), &page); err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	return page.Items, nil
}

// TopTracks returns the user's most listened tracks over a time range
func (c *SpotifyClient) TopTracks(ctx context.Context, token, timeRange string, limit int) ([]model.Track, error) {
	var page struct {
		Items []model.Track `json:"items"`
	}
	if err := c.getJSON(ctx, token, topPath("tracks", timeRange, limit), &page); err != nil {
		return nil, fmt.Errorf("top tracks: %w", err)
	}
	return compactTracks(page.Items), nil
}

// RecentlyPlayed returns the user's latest plays
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context, token string, limit int) ([]model.PlayHistory, error) {
	var page struct {
		Items []model.PlayHistory `json:"items"`
	}
	path := "/me/player/recently-played?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, token, path, &page); err != nil {
		return nil, fmt.Errorf("recently played: %w", err)
	}
	return page.Items, nil
}

// CreatePlaylist creates an empty playlist owned by userID
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, token, userID, name, description string, public bool) (*model.SpotifyPlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist model.SpotifyPlaylist
	path := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := c.sendJSON(ctx, token, http.MethodPost, path, body, &playlist); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return &playlist, nil
}

// AddTracks appends URIs to a playlist in chunks of 100 and returns how many were added.
// On failure the count covers the chunks that made it.
func (c *SpotifyClient) AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error) {
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"

	added := 0
	for start := 0; start < len(uris); start += playlistChunkSize {
		chunk := uris[start:min(start+playlistChunkSize, len(uris))]
		body := map[string]any{"uris": chunk}
		if err := c.sendJSON(ctx, token, http.MethodPost, path, body, nil); err != nil {
			return added, fmt.Errorf("add tracks: %w", err)
		}
		added += len(chunk)
	}
	return added, nil
}

// UploadCover sets a playlist's cover from a base64 JPEG, with or without a data URI prefix
func (c *SpotifyClient) UploadCover(ctx context.Context, token, playlistID, imageBase64 string) error {
	payload := StripDataURI(imageBase64)
	if payload == "" {
		return fmt.Errorf("upload cover: empty image")
	}

	path := "/playlists/" + url.PathEscape(playlistID) + "/images"
	if err := c.do(ctx, token, http.MethodPut, path, []byte(payload), "image/jpeg", nil); err != nil {
		return fmt.Errorf("upload cover: %w", err)
	}
	return nil
}

// StripDataURI removes a leading "data:<mime>;base64," if present
func StripDataURI(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

func topPath(kind, timeRange string, limit int) string {
	if timeRange == "" {
		timeRange = TimeRangeMedium
	}
	params := url.Values{}
	params.Set("time_range", timeRange)
	params.Set("limit", strconv.Itoa(limit))
	return "/me/top/" + kind + "?" + params.Encode()
}

func (c *SpotifyClient) getJSON(ctx context.Context, token, path string, out any) error {
	return c.do(ctx, token, http.MethodGet, path, nil, "", out)
}

func (c *SpotifyClient) sendJSON(ctx context.Context, token, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, token, method, path, body, "application/json", out)
}

func (c *SpotifyClient) do(ctx context.Context, token, method, path string, body []byte, contentType string, out any) error {
	accessToken, err := c.resolveToken(token)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *SpotifyClient) resolveToken(token string) (string, error) {
	if token != "" {
		return token, nil
	}
	if c.appToken == nil {
		return "", ErrNoToken
	}
	t, err := c.appToken.Token()
	if err != nil {
		return "", fmt.Errorf("spotify: app token: %w", err)
	}
	return t.AccessToken, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var parsed spotifyErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

type searchResponse struct {
	Tracks *struct {
		Items []model.Track `json:"items"`
	} `json:"tracks"`
	Artists *struct {
		Items []model.SpotifyArtist `json:"items"`
	} `json:"artists"`
}

// compactTracks drops the null entries Spotify sometimes leaves in result pages
func compactTracks(tracks []model.Track) []model.Track {
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			out = append(out, t)
		}
	}
	return out
}
