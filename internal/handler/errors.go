package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/internal/store"
	"github.com/sonolens/api/pkg/response"
)

// serviceError writes the error envelope matching a service failure
func serviceError(c *fiber.Ctx, err error) error {
	var apiErr *client.APIError

	switch {
	case errors.Is(err, service.ErrUnsupportedImageType),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrImageTooLarge),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrNoSeeds):
		return response.ValidationError(c, err.Error(), nil)

	case errors.Is(err, service.ErrNotConfigured), errors.Is(err, store.ErrUnavailable):
		return response.ServiceUnavailable(c, err.Error())

	case errors.Is(err, service.ErrAnalysisFailed):
		return response.AIError(c, err.Error())

	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrNoToken):
		return response.Unauthorized(c, "Spotify session expired")

	case errors.Is(err, service.ErrNoTracksFound), errors.Is(err, service.ErrNoRecommendations):
		return response.NotFound(c, err.Error())

	case errors.Is(err, store.ErrJobNotFound):
		return response.NotFound(c, "Job not found")

	case errors.Is(err, service.ErrJobNotCompleted):
		return response.NotFound(c, "Job not completed")

	case errors.Is(err, service.ErrJobForbidden):
		return response.Forbidden(c, "Job belongs to another user")

	case errors.As(err, &apiErr):
		return response.UpstreamError(c, apiErr.Error())

	default:
		return response.ServiceError(c, err.Error())
	}
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return nil
}

// NewValidator returns a validator that reports fields by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
