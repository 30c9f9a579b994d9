package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/middleware"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/pkg/response"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type PlaylistHandler struct {
	service   *service.PlaylistService
	validator *validator.Validate
}

func NewPlaylistHandler(svc *service.PlaylistService, v *validator.Validate) *PlaylistHandler {
	return &PlaylistHandler{
		service:   svc,
		validator: v,
	}
}

func (h *PlaylistHandler) parse(c *fiber.Ctx) (*model.CreatePlaylistRequest, error) {
	var req model.CreatePlaylistRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return nil, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	return &req, nil
}

// Create handles POST /api/spotify/create-playlist
func (h *PlaylistHandler) Create(c *fiber.Ctx) error {
	req, err := h.parse(c)
	if req == nil {
		return err
	}

	result, err := h.service.Create(c.UserContext(), middleware.GetUserID(c), middleware.GetSpotifyToken(c), req, nil)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// CreateAsync handles POST /api/spotify/create-playlist/async
func (h *PlaylistHandler) CreateAsync(c *fiber.Ctx) error {
	req, err := h.parse(c)
	if req == nil {
		return err
	}

	result, err := h.service.Enqueue(c.UserContext(), middleware.GetUserID(c), middleware.GetSpotifyToken(c), req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/jobs/:jobId
func (h *PlaylistHandler) Status(c *fiber.Ctx) error {
	result, err := h.service.Status(c.UserContext(), middleware.GetUserID(c), c.Params("jobId"))
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Result handles GET /api/jobs/:jobId/result
func (h *PlaylistHandler) Result(c *fiber.Ctx) error {
	result, err := h.service.Result(c.UserContext(), middleware.GetUserID(c), c.Params("jobId"))
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// History handles GET /api/playlists?limit=&offset=
func (h *PlaylistHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > maxHistoryLimit || offset < 0 {
		return response.ValidationError(c, "limit must be between 1 and 100 and offset non-negative", nil)
	}

	result, err := h.service.History(c.UserContext(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}
