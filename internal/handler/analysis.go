package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/middleware"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/pkg/response"
)

type AnalysisHandler struct {
	service   *service.AnalysisService
	validator *validator.Validate
}

func NewAnalysisHandler(svc *service.AnalysisService, v *validator.Validate) *AnalysisHandler {
	return &AnalysisHandler{
		service:   svc,
		validator: v,
	}
}

// Analyze handles POST /api/analyze-image
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	var req model.AnalyzeImageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Analyze(c.UserContext(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Upload handles POST /api/analyze-image/upload with a multipart "file" field
func (h *AnalysisHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "Missing file", nil)
	}
	if file.Size > service.MaxImageBytes {
		return serviceError(c, service.ErrImageTooLarge)
	}

	f, err := file.Open()
	if err != nil {
		return response.ValidationError(c, "Unreadable file", nil)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxImageBytes+1))
	if err != nil {
		return response.ValidationError(c, "Unreadable file", nil)
	}

	mimeType := file.Header.Get("Content-Type")
	if !service.IsSupportedImageType(mimeType) {
		mimeType = sniffImageType(data)
	}

	result, err := h.service.AnalyzeBytes(c.UserContext(), middleware.GetUserID(c), mimeType, data)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// sniffImageType guesses the MIME type from the leading bytes
func sniffImageType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}
