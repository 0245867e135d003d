package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
	"github.com/lodecms/lode/pkg/flow"
	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/persistence/sqlstore"
	"github.com/lodecms/lode/pkg/ratelimit"
	"github.com/lodecms/lode/pkg/services"
	"github.com/lodecms/lode/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// problemBody mirrors the RFC 7807 shape every error response uses.
type problemBody struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

func setupTestApp(t *testing.T, triggerLimit int) (*fiber.App, *services.Flows) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlstore.NewStore(t.Context(), logger, sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	engine := flow.NewEngine(logger, noop.NewTracerProvider().Tracer("test"))
	limiter := ratelimit.NewSlidingWindow(triggerLimit, time.Minute, clockwork.NewFakeClock())
	service := services.NewFlows(store, engine, limiter, nil, logger)

	handlers := web.NewAPIHandlers(service, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	admin := app.Group("/api/admin/flows")
	admin.Get("/", handlers.GetFlows)
	admin.Post("/", handlers.CreateFlow)
	admin.Get("/:id", handlers.GetFlow)
	admin.Put("/:id", handlers.UpdateFlow)
	admin.Delete("/:id", handlers.DeleteFlow)
	admin.Get("/:id/runs", handlers.GetFlowRuns)
	admin.Post("/:id/run-test", handlers.RunFlowTest)

	app.Post("/api/public/flows/:slug/trigger", handlers.TriggerFlow)
	app.Get("/health", handlers.HealthCheck)

	return app, service
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	if payload == nil {
		return httptest.NewRequest(method, target, nil)
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func seedFlow(t *testing.T, service *services.Flows, params services.CreateFlowParams) *models.Flow {
	t.Helper()

	created, err := service.Create(t.Context(), params)
	require.NoError(t, err)

	return created
}

func noopDefinition() models.FlowDefinition {
	return models.FlowDefinition{
		Version: models.DefinitionVersion,
		Nodes: []models.FlowNode{
			{ID: "start", Kind: models.NodeKindTrigger},
			{ID: "act", Kind: models.NodeKindAction, Config: map[string]any{"operation": "noop"}},
		},
		Edges: []models.FlowEdge{{Source: "start", Target: "act"}},
	}
}

func greetDefinition() models.FlowDefinition {
	return models.FlowDefinition{
		Version: models.DefinitionVersion,
		Nodes: []models.FlowNode{
			{ID: "start", Kind: models.NodeKindTrigger},
			{ID: "greet", Kind: models.NodeKindAction, Config: map[string]any{
				"operation": "set_output",
				"key":       "greeting",
				"value":     "Hello {{ input.name }}",
			}},
		},
		Edges: []models.FlowEdge{{Source: "start", Target: "greet"}},
	}
}

func TestAPIHandlers_CreateFlow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedDetail string
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name: "successful creation",
			requestBody: web.CreateFlowRequest{
				Slug:       "Welcome-Mail",
				Title:      "Welcome mail",
				Definition: noopDefinition(),
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var created models.Flow
				require.NoError(t, json.Unmarshal(body, &created))
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, "welcome-mail", created.Slug)
				assert.Equal(t, "Welcome mail", created.Title)
				assert.Equal(t, models.FlowStatusDraft, created.Status)
				assert.Equal(t, models.DefaultTriggerEvent, created.TriggerEvent)
			},
		},
		{
			name: "missing slug",
			requestBody: web.CreateFlowRequest{
				Title:      "No slug",
				Definition: noopDefinition(),
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing definition",
			requestBody: web.CreateFlowRequest{
				Slug:  "no-definition",
				Title: "No definition",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "reserved slug",
			requestBody: web.CreateFlowRequest{
				Slug:       "admin",
				Title:      "Reserved",
				Definition: noopDefinition(),
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid definition",
			requestBody: web.CreateFlowRequest{
				Slug:  "no-trigger",
				Title: "No trigger",
				Definition: models.FlowDefinition{
					Version: models.DefinitionVersion,
					Nodes: []models.FlowNode{
						{ID: "act", Kind: models.NodeKindAction, Config: map[string]any{"operation": "noop"}},
					},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t, 100)

			var req *http.Request
			if raw, ok := tt.requestBody.(string); ok {
				req = httptest.NewRequest(http.MethodPost, "/api/admin/flows", bytes.NewBufferString(raw))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = jsonRequest(t, http.MethodPost, "/api/admin/flows", tt.requestBody)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}

			if tt.expectedDetail != "" {
				var problem problemBody
				require.NoError(t, json.Unmarshal(body, &problem))
				assert.Equal(t, tt.expectedDetail, problem.Detail)
			}
		})
	}
}

func TestAPIHandlers_CreateFlowDuplicateSlug(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	seedFlow(t, service, services.CreateFlowParams{Slug: "taken", Title: "Taken", Definition: noopDefinition()})

	req := jsonRequest(t, http.MethodPost, "/api/admin/flows", web.CreateFlowRequest{
		Slug:       "taken",
		Title:      "Taken again",
		Definition: noopDefinition(),
	})

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var problem problemBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "conflict", problem.Type)
	assert.Equal(t, "Flow slug already exists", problem.Detail)
	assert.Equal(t, "/api/admin/flows", problem.Instance)
}

func TestAPIHandlers_GetFlow(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	created := seedFlow(t, service, services.CreateFlowParams{Slug: "readable", Title: "Readable", Definition: noopDefinition()})

	t.Run("found", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows/"+created.ID, nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var fetched models.Flow
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "readable", fetched.Slug)
		assert.Len(t, fetched.Definition.Nodes, 2)
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows/missing", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var problem problemBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
		assert.Equal(t, "Flow not found", problem.Detail)
		assert.Equal(t, "not_found", problem.Type)
	})
}

func TestAPIHandlers_UpdateFlow(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)

	description := "original"
	created := seedFlow(t, service, services.CreateFlowParams{
		Slug:        "editable",
		Title:       "Original",
		Description: &description,
		Definition:  noopDefinition(),
	})

	t.Run("partial update", func(t *testing.T) {
		title := "Renamed"
		req := jsonRequest(t, http.MethodPut, "/api/admin/flows/"+created.ID, web.UpdateFlowRequest{
			Title: &title,
		})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var updated models.Flow
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.Equal(t, "Renamed", updated.Title)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "original", *updated.Description)
	})

	t.Run("blank description clears it", func(t *testing.T) {
		blank := ""
		req := jsonRequest(t, http.MethodPut, "/api/admin/flows/"+created.ID, web.UpdateFlowRequest{
			Description: &blank,
		})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var updated models.Flow
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.Nil(t, updated.Description)
	})

	t.Run("invalid status", func(t *testing.T) {
		status := "archived"
		req := jsonRequest(t, http.MethodPut, "/api/admin/flows/"+created.ID, web.UpdateFlowRequest{
			Status: &status,
		})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var problem problemBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
		assert.Equal(t, "status must be draft|active|disabled", problem.Detail)
	})

	t.Run("not found", func(t *testing.T) {
		title := "Ghost"
		req := jsonRequest(t, http.MethodPut, "/api/admin/flows/missing", web.UpdateFlowRequest{Title: &title})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAPIHandlers_DeleteFlow(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	created := seedFlow(t, service, services.CreateFlowParams{Slug: "short-lived", Title: "Short lived", Definition: noopDefinition()})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/admin/flows/"+created.ID, nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])

	getResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows/"+created.ID, nil))
	require.NoError(t, err)

	defer func() { _ = getResp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)

	deleteResp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/admin/flows/"+created.ID, nil))
	require.NoError(t, err)

	defer func() { _ = deleteResp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, deleteResp.StatusCode)
}

func TestAPIHandlers_GetFlows(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	seedFlow(t, service, services.CreateFlowParams{Slug: "alpha", Title: "Alpha", Definition: noopDefinition()})
	seedFlow(t, service, services.CreateFlowParams{Slug: "beta", Title: "Beta", Status: "active", Definition: noopDefinition()})

	type listResponse struct {
		Items  []models.Flow `json:"items"`
		Total  int64         `json:"total"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}

	t.Run("defaults", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result listResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.EqualValues(t, 2, result.Total)
		assert.Equal(t, 50, result.Limit)
		assert.Equal(t, 0, result.Offset)
		assert.Len(t, result.Items, 2)
	})

	t.Run("filter and sort", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows?status=active&sort=slug&dir=asc", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		var result listResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		require.Len(t, result.Items, 1)
		assert.Equal(t, "beta", result.Items[0].Slug)
	})

	t.Run("pagination", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows?limit=1&offset=1&sort=slug&dir=asc", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		var result listResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.EqualValues(t, 2, result.Total)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "beta", result.Items[0].Slug)
	})

	t.Run("malformed limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows?limit=abc", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPIHandlers_RunFlowTest(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	created := seedFlow(t, service, services.CreateFlowParams{Slug: "draft-greeter", Title: "Draft greeter", Definition: greetDefinition()})

	t.Run("with payload", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/admin/flows/"+created.ID+"/run-test", web.RunFlowRequest{
			Input: map[string]any{"name": "Ada"},
		})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result services.TriggerResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.True(t, result.Ok)
		assert.Equal(t, "Hello Ada", result.Output["greeting"])
		assert.Nil(t, result.RunID)
	})

	t.Run("without body", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/admin/flows/"+created.ID+"/run-test", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result services.TriggerResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.True(t, result.Ok)
	})

	t.Run("failed execution still responds 200", func(t *testing.T) {
		filtered := seedFlow(t, service, services.CreateFlowParams{
			Slug:         "filtered",
			Title:        "Filtered",
			TriggerEvent: "post.created",
			Definition: models.FlowDefinition{
				Version: models.DefinitionVersion,
				Nodes: []models.FlowNode{
					{ID: "start", Kind: models.NodeKindTrigger, Config: map[string]any{"event": "post.created"}},
					{ID: "act", Kind: models.NodeKindAction, Config: map[string]any{"operation": "noop"}},
				},
				Edges: []models.FlowEdge{{Source: "start", Target: "act"}},
			},
		})

		req := jsonRequest(t, http.MethodPost, "/api/admin/flows/"+filtered.ID+"/run-test", web.RunFlowRequest{
			Event: "unrelated.event",
		})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result services.TriggerResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.False(t, result.Ok)
		assert.Equal(t, "No trigger node matched event 'unrelated.event'", result.Output["error"])
	})

	t.Run("unknown flow", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/admin/flows/missing/run-test", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAPIHandlers_GetFlowRuns(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	created := seedFlow(t, service, services.CreateFlowParams{
		Slug:       "runner",
		Title:      "Runner",
		Status:     "active",
		Definition: noopDefinition(),
	})

	triggerReq := httptest.NewRequest(http.MethodPost, "/api/public/flows/runner/trigger", nil)
	triggerResp, err := app.Test(triggerReq)
	require.NoError(t, err)
	require.NoError(t, triggerResp.Body.Close())
	require.Equal(t, http.StatusOK, triggerResp.StatusCode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows/"+created.ID+"/runs", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Items  []models.FlowRun `json:"items"`
		Total  int64            `json:"total"`
		Limit  int              `json:"limit"`
		Offset int              `json:"offset"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.EqualValues(t, 1, result.Total)
	assert.Equal(t, 20, result.Limit)
	require.Len(t, result.Items, 1)
	assert.Equal(t, models.RunStatusSuccess, result.Items[0].Status)

	missingResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/flows/missing/runs", nil))
	require.NoError(t, err)

	defer func() { _ = missingResp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
}

func TestAPIHandlers_TriggerFlow(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 100)
	seedFlow(t, service, services.CreateFlowParams{
		Slug:       "public-greeter",
		Title:      "Public greeter",
		Status:     "active",
		Definition: greetDefinition(),
	})
	seedFlow(t, service, services.CreateFlowParams{
		Slug:       "paused",
		Title:      "Paused",
		Definition: noopDefinition(),
	})

	t.Run("active flow runs", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/public/flows/public-greeter/trigger", web.RunFlowRequest{
			Input: map[string]any{"name": "Grace"},
		})

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result services.TriggerResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.True(t, result.Ok)
		assert.Equal(t, "Hello Grace", result.Output["greeting"])
		require.NotNil(t, result.RunID)
	})

	t.Run("inactive flow rejected", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/public/flows/paused/trigger", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var problem problemBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
		assert.Equal(t, "Flow is not active", problem.Detail)
	})

	t.Run("unknown slug", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/public/flows/missing/trigger", nil))
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var problem problemBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
		assert.Equal(t, "Flow not found", problem.Detail)
	})
}

func TestAPIHandlers_TriggerFlowRateLimited(t *testing.T) {
	t.Parallel()

	app, service := setupTestApp(t, 1)
	seedFlow(t, service, services.CreateFlowParams{
		Slug:       "popular",
		Title:      "Popular",
		Status:     "active",
		Definition: noopDefinition(),
	})

	first := httptest.NewRequest(http.MethodPost, "/api/public/flows/popular/trigger", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.7")

	resp, err := app.Test(first)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second := httptest.NewRequest(http.MethodPost, "/api/public/flows/popular/trigger", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	resp, err = app.Test(second)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var problem problemBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "rate_limited", problem.Type)
	assert.Equal(t, "Too many flow trigger requests. Please retry later.", problem.Detail)

	// A different caller has its own budget.
	other := httptest.NewRequest(http.MethodPost, "/api/public/flows/popular/trigger", nil)
	other.Header.Set("X-Forwarded-For", "198.51.100.1")

	otherResp, err := app.Test(other)
	require.NoError(t, err)
	require.NoError(t, otherResp.Body.Close())
	assert.Equal(t, http.StatusOK, otherResp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, 100)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Lode API is healthy", body["message"])
	assert.NotEmpty(t, body["timestamp"])
}
