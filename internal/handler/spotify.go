package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/middleware"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/pkg/response"
)

const maxSearchLimit = 50

type SpotifyHandler struct {
	recommend *service.RecommendService
	catalog   *service.CatalogService
	validator *validator.Validate
}

func NewSpotifyHandler(recommend *service.RecommendService, catalog *service.CatalogService, v *validator.Validate) *SpotifyHandler {
	return &SpotifyHandler{
		recommend: recommend,
		catalog:   catalog,
		validator: v,
	}
}

// Recommend handles POST /api/spotify/recommend
func (h *SpotifyHandler) Recommend(c *fiber.Ctx) error {
	var req model.RecommendRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.recommend.Recommend(c.UserContext(), middleware.GetSpotifyToken(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// SearchTracks handles GET /api/spotify/search-tracks?q=&limit=
func (h *SpotifyHandler) SearchTracks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 || limit > maxSearchLimit {
		return response.ValidationError(c, "limit must be between 1 and 50", nil)
	}

	result, err := h.catalog.Search(c.UserContext(), middleware.GetSpotifyToken(c), c.Query("q"), limit)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// SuggestReplacements handles POST /api/spotify/suggest-replacements
func (h *SpotifyHandler) SuggestReplacements(c *fiber.Ctx) error {
	var req model.SuggestReplacementsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if req.Track.ID == "" {
		return response.ValidationError(c, "Validation failed", map[string]string{"id": "required"})
	}

	result, err := h.recommend.SuggestReplacements(c.UserContext(), middleware.GetSpotifyToken(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// GenreSeeds handles GET /api/spotify/genre-seeds
func (h *SpotifyHandler) GenreSeeds(c *fiber.Ctx) error {
	return response.OK(c, h.catalog.GenreSeeds(c.UserContext(), middleware.GetSpotifyToken(c)))
}

// Dashboard handles GET /api/dashboard
func (h *SpotifyHandler) Dashboard(c *fiber.Ctx) error {
	result, err := h.catalog.Dashboard(c.UserContext(), middleware.GetSpotifyToken(c))
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}
