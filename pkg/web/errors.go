package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/lodecms/lode/pkg/services"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service layer errors onto problem responses.
// Internal error text never reaches the client; only messages the service
// marked as client-facing do.
func handleServiceError(c fiber.Ctx, err error) error {
	var rateLimited *services.RateLimitedError

	switch {
	case errors.As(err, &rateLimited):
		c.Set("Retry-After", strconv.Itoa(rateLimited.RetryAfter))

		problem := problems.NewStatusProblem(429).
			WithInstance(c.Path()).
			WithType("rate_limited").
			WithDetail("Too many flow trigger requests. Please retry later.")

		return c.Status(fiber.StatusTooManyRequests).JSON(problem)

	case services.IsValidationError(err):
		return badRequest(c, services.ClientMessage(err))

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail("Flow slug already exists")

		return c.Status(fiber.StatusConflict).JSON(problem)

	case services.IsNotFoundError(err):
		return notFound(c, "Flow not found")

	default:
		return internalError(c, err)
	}
}
