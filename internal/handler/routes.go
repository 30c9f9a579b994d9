package handler

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/config"
	"github.com/sonolens/api/internal/middleware"
	ws "github.com/sonolens/api/internal/websocket"
	"github.com/sonolens/api/pkg/response"
)

// Routes holds everything the HTTP surface is built from
type Routes struct {
	Auth     fiber.Handler
	Limiter  *middleware.RateLimiter
	Limits   config.RateLimitConfig
	Health   *HealthHandler
	Verify   *AuthHandler
	Analysis *AnalysisHandler
	Spotify  *SpotifyHandler
	Playlist *PlaylistHandler
	Hub      *ws.Hub
}

// Register mounts every route on app
func Register(app *fiber.App, r *Routes) {
	app.Get("/", r.Health.Root)
	app.Get("/health", r.Health.Health)

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", r.Verify.Verify)

	api := app.Group("/api", r.Auth)

	analyze := api.Group("/analyze-image", r.Limiter.AnalyzeLimit(r.Limits.AnalyzePerHour))
	analyze.Post("/", r.Analysis.Analyze)
	analyze.Post("/upload", r.Analysis.Upload)

	spotify := api.Group("/spotify", middleware.RequireSpotifyToken())
	spotify.Post("/recommend", r.Limiter.RecommendLimit(r.Limits.RecommendPerMin), r.Spotify.Recommend)
	spotify.Get("/search-tracks", r.Limiter.SearchLimit(r.Limits.SearchPerMin), r.Spotify.SearchTracks)
	spotify.Post("/suggest-replacements", r.Limiter.RecommendLimit(r.Limits.RecommendPerMin), r.Spotify.SuggestReplacements)
	spotify.Get("/genre-seeds", r.Spotify.GenreSeeds)
	spotify.Post("/create-playlist", r.Limiter.PlaylistLimit(r.Limits.PlaylistPerHour), r.Playlist.Create)
	spotify.Post("/create-playlist/async", r.Limiter.PlaylistLimit(r.Limits.PlaylistPerHour), r.Playlist.CreateAsync)

	api.Get("/dashboard", middleware.RequireSpotifyToken(), r.Spotify.Dashboard)
	api.Get("/playlists", r.Playlist.History)

	jobs := api.Group("/jobs")
	jobs.Get("/:jobId", r.Playlist.Status)
	jobs.Get("/:jobId/result", r.Playlist.Result)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, c.Params("jobId"))
	}))
}

// ErrorHandler renders errors nothing else handled in the standard envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	errCode := response.CodeServiceError
	switch code {
	case fiber.StatusNotFound:
		errCode = response.CodeNotFound
	case fiber.StatusRequestEntityTooLarge, fiber.StatusBadRequest:
		errCode = response.CodeValidationError
	}

	return response.Error(c, code, errCode, message, nil)
}
