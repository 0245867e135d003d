package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/lodecms/lode/pkg/services"
)

// Default page sizes applied when the query string omits limit. The service
// layer clamps whatever arrives, so these only pick the comfortable default.
const (
	defaultFlowPageSize = 50
	defaultRunPageSize  = 20
)

type APIHandlers struct {
	flows     *services.Flows
	validator *validator.Validate
}

func NewAPIHandlers(flows *services.Flows, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		flows:     flows,
		validator: validator,
	}
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	req, err := h.parseListFlowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.flows.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// parseListFlowsRequest reads pagination, filter, and sort parameters. Only
// malformed numbers fail; unknown filter values are left for the service to
// ignore.
func (h *APIHandlers) parseListFlowsRequest(c fiber.Ctx) (*services.ListFlowsRequest, error) {
	req := &services.ListFlowsRequest{Limit: defaultFlowPageSize}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.Query = c.Query("q")
	req.Status = c.Query("status")
	req.Sort = c.Query("sort")
	req.Dir = c.Query("dir")

	return req, nil
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flows.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flows.Create(c.Context(), services.CreateFlowParams{
		Slug:         req.Slug,
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		TriggerEvent: req.TriggerEvent,
		Definition:   req.Definition,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.flows.Update(c.Context(), id, services.UpdateFlowParams{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		TriggerEvent: req.TriggerEvent,
		Definition:   req.Definition,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	err := h.flows.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *APIHandlers) GetFlowRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	limit := defaultRunPageSize

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		limit = parsed
	}

	offset := 0

	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		offset = parsed
	}

	result, err := h.flows.ListRuns(c.Context(), id, limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// RunFlowTest executes a flow without recording a run, regardless of its
// status. A failed execution is still a 200: the result carries ok=false.
func (h *APIHandlers) RunFlowTest(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	req, err := parseRunFlowRequest(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.flows.RunTest(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// TriggerFlow executes an active flow for an anonymous caller. The caller
// key feeds the rate limiter before anything else happens.
func (h *APIHandlers) TriggerFlow(c fiber.Ctx) error {
	slug := c.Params("slug")

	req, err := parseRunFlowRequest(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.flows.TriggerBySlug(c.Context(), slug, req, clientKey(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flows.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Lode API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Lode API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// parseRunFlowRequest binds the optional run payload. An empty body means
// "run with defaults", not a client error.
func parseRunFlowRequest(c fiber.Ctx) (services.TriggerRequest, error) {
	var req RunFlowRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return services.TriggerRequest{}, err
		}
	}

	return services.TriggerRequest{
		Event:   req.Event,
		Input:   req.Input,
		Context: req.Context,
	}, nil
}

// clientKey identifies the caller for rate limiting. The first entry of
// X-Forwarded-For wins when a proxy set it, otherwise the remote address.
func clientKey(c fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if key := strings.TrimSpace(first); key != "" {
			return key
		}
	}

	if ip := c.IP(); ip != "" {
		return ip
	}

	return "unknown"
}
