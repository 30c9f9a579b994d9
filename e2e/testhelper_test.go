package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/internal/auth"
	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/config"
	"github.com/sonolens/api/internal/handler"
	"github.com/sonolens/api/internal/middleware"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/internal/store"
	ws "github.com/sonolens/api/internal/websocket"
)

const (
	testJWTSecret    = "test-secret-for-e2e"
	testUserID       = "test-user-123"
	testSpotifyToken = "spotify-test-token"
	testSpotifyUser  = "spotify-user"
)

const validAnalysisJSON = `{
  "mood_tags": ["dreamy", "calm", "acoustic"],
  "color_palette": ["#1a2b3c"],
  "energy_level": "low",
  "emotional_descriptors": ["peaceful"],
  "atmosphere": "a quiet lake at dawn",
  "recommended_genres": ["ambient", "Indie Rock"],
  "seed_artists": ["Brian Eno"],
  "seed_tracks": ["Weightless", "unknown song"],
  "suggested_playlist_title": "Dawn Lake",
  "confidence_score": 0.9
}`

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	spotify *fakeSpotify
	history *store.HistoryStore
}

type appOptions struct {
	llmContent string
	redis      *redis.Client
}

// setupApp creates a Fiber app wired like main.go, with fake Spotify and
// vision model servers, an in-memory history database and no redis.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWith(t, appOptions{llmContent: validAnalysisJSON})
}

func setupAppWith(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	logger := log.New(io.Discard)

	spotifyAPI := newFakeSpotify(t)
	llmAPI := newFakeLLM(t, opts.llmContent)

	historyStore, err := store.OpenHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	t.Cleanup(func() { historyStore.Close() })

	var enqueuer service.TaskEnqueuer
	if opts.redis != nil {
		opt := opts.redis.Options()
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: opt.Addr, DB: opt.DB})
		t.Cleanup(func() { asynqClient.Close() })
		enqueuer = asynqClient
	}

	llmClient := client.NewLLMClient(&config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: llmAPI.URL,
		Model:   "test-vision",
		Timeout: 5 * time.Second,
	})
	spotifyClient := client.NewSpotifyClient(&config.SpotifyConfig{
		APIBaseURL:      spotifyAPI.URL,
		LookupBatchSize: 2,
		Timeout:         5 * time.Second,
	}, logger)

	cache := store.NewCache(opts.redis, time.Hour, time.Hour, logger)
	jobs := store.NewJobStore(opts.redis)

	analysisService := service.NewAnalysisService(llmClient, cache, nil, logger)
	recommendService := service.NewRecommendService(spotifyClient, cache, 2, logger)
	catalogService := service.NewCatalogService(spotifyClient, cache, logger)
	playlistService := service.NewPlaylistService(spotifyClient, historyStore, jobs, enqueuer, logger)

	hub := ws.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	validate := handler.NewValidator()

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    30 * 1024 * 1024,
	})

	// Use very high rate limits so tests don't get blocked
	handler.Register(app, &handler.Routes{
		Auth:    middleware.NewLegacyAuthMiddleware(testJWTSecret).Authenticate(),
		Limiter: middleware.NewRateLimiter(opts.redis),
		Limits: config.RateLimitConfig{
			AnalyzePerHour:  10000,
			RecommendPerMin: 10000,
			SearchPerMin:    10000,
			PlaylistPerHour: 10000,
		},
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"llm":      handler.Static(true),
			"spotify":  handler.Static(true),
			"r2":       handler.Static(false),
			"redis":    handler.Static(opts.redis != nil),
			"database": func(ctx context.Context) bool { return historyStore.Ping(ctx) == nil },
			"auth":     handler.Static(true),
		}),
		Verify:   handler.NewAuthHandler(nil, testJWTSecret),
		Analysis: handler.NewAnalysisHandler(analysisService, validate),
		Spotify:  handler.NewSpotifyHandler(recommendService, catalogService, validate),
		Playlist: handler.NewPlaylistHandler(playlistService, validate),
		Hub:      hub,
	})

	return &testApp{app: app, spotify: spotifyAPI, history: historyStore}
}

// testRedis returns a client on a scratch database, skipping the test when no
// local redis answers.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 11})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		t.Skipf("skipping: redis not available: %v", err)
	}
	rdb.FlushDB(context.Background())
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	return generateTokenFor(t, testUserID)
}

func generateTokenFor(t *testing.T, userID string) string {
	t.Helper()
	return signToken(t, userID, testJWTSecret)
}

// signedWith mints a token for the test user under a different secret.
func signedWith(t *testing.T, secret string) string {
	t.Helper()
	return signToken(t, testUserID, secret)
}

func signToken(t *testing.T, userID, secret string) string {
	t.Helper()
	claims := auth.LegacyClaims{
		UserID: userID,
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: auth.LegacyIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + generateToken(t),
	})
}

// doSpotifyRequest performs an authenticated request carrying a Spotify token.
func doSpotifyRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"Authorization":               "Bearer " + generateToken(t),
		middleware.SpotifyTokenHeader: testSpotifyToken,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// errorCode returns error.code from an error envelope.
func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// fakeSpotify answers the subset of the Spotify Web API the server calls.
type fakeSpotify struct {
	*httptest.Server

	mu          sync.Mutex
	coverStatus int
	created     []string
	added       []string
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	f := &fakeSpotify{coverStatus: http.StatusAccepted}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", f.search)
	mux.HandleFunc("/recommendations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tracks": []model.Track{
			fakeTrack("orig", "Original"),
			fakeTrack("rec-1", "Recommended One"),
			fakeTrack("rec-2", "Recommended Two"),
		}})
	})
	mux.HandleFunc("/recommendations/available-genre-seeds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"genres": []string{"ambient", "indie", "pop", "rock"}})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.SpotifyUser{ID: testSpotifyUser, DisplayName: "Test User", Country: "US"})
	})
	mux.HandleFunc("/me/top/artists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []model.SpotifyArtist{{ID: "ar-1", Name: "Artist One"}}})
	})
	mux.HandleFunc("/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []model.Track{fakeTrack("top-1", "Top One")}})
	})
	mux.HandleFunc("/me/player/recently-played", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []model.PlayHistory{}})
	})
	mux.HandleFunc("/users/"+testSpotifyUser+"/playlists", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = append(f.created, body.Name)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, model.SpotifyPlaylist{
			ID:           "pl-1",
			Name:         body.Name,
			URI:          "spotify:playlist:pl-1",
			ExternalURLs: model.ExternalURLs{Spotify: "https://open.spotify.com/playlist/pl-1"},
		})
	})
	mux.HandleFunc("/playlists/pl-1/tracks", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URIs []string `json:"uris"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.added = append(f.added, body.URIs...)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap"})
	})
	mux.HandleFunc("/playlists/pl-1/images", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.coverStatus
		f.mu.Unlock()
		w.WriteHeader(status)
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testSpotifyToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"status": 401, "message": "The access token expired"},
			})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSpotify) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	if r.URL.Query().Get("type") == "artist" {
		writeJSON(w, http.StatusOK, map[string]any{
			"artists": map[string]any{"items": []map[string]string{{"id": "artist-" + slug(q)}}},
		})
		return
	}

	var tracks []model.Track
	switch {
	case strings.HasPrefix(q, "genre:"):
		tracks = []model.Track{fakeTrack("genre-1", "Genre One"), fakeTrack("genre-2", "Genre Two"), fakeTrack("genre-1", "Genre One")}
	case strings.Contains(q, "unknown"):
		tracks = []model.Track{}
	default:
		tracks = []model.Track{fakeTrack("id-"+slug(q), q)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": tracks}})
}

func (f *fakeSpotify) setCoverStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coverStatus = status
}

func (f *fakeSpotify) addedURIs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}

// newFakeLLM answers chat completions with a fixed message content.
func newFakeLLM(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":    "chatcmpl-test",
			"model": "test-vision",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fakeTrack(id, name string) model.Track {
	return model.Track{
		ID:      id,
		URI:     "spotify:track:" + id,
		Name:    name,
		Artists: []model.ArtistRef{{ID: "a-1", Name: "Some Artist", URI: "spotify:artist:a-1"}},
		Album:   model.Album{ID: "al-1", Name: "Some Album"},
	}
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
