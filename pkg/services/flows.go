package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lodecms/lode/pkg/eventbus"
	"github.com/lodecms/lode/pkg/flow"
	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/ratelimit"
	"github.com/lodecms/lode/pkg/slug"
)

// Flows exposes flow management and execution. All methods are safe for
// concurrent use.
type Flows struct {
	store   persistence.Store
	engine  *flow.Engine
	limiter ratelimit.Limiter
	bus     eventbus.EventPublisher
	logger  *slog.Logger
}

// NewFlows creates the flow service. The limiter guards the public trigger
// path; the bus receives run lifecycle events and may be nil when no
// subscriber exists.
func NewFlows(
	store persistence.Store,
	engine *flow.Engine,
	limiter ratelimit.Limiter,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *Flows {
	return &Flows{
		store:   store,
		engine:  engine,
		limiter: limiter,
		bus:     bus,
		logger:  logger.With("module", "flows_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Flows) HealthCheck(ctx context.Context) (string, bool) {
	if s.store == nil {
		return "Persistence layer not initialized", false
	}

	err := s.store.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateFlowParams carries the fields of a new flow. Zero values for Status
// and TriggerEvent take the documented defaults.
type CreateFlowParams struct {
	Slug         string
	Title        string
	Description  *string
	Status       string
	TriggerEvent string
	Definition   models.FlowDefinition
}

// Create normalizes and validates the params, then inserts the flow. A slug
// already in use surfaces as a conflict.
func (s *Flows) Create(ctx context.Context, params CreateFlowParams) (*models.Flow, error) {
	normalizedSlug, err := slug.Normalize(params.Slug)
	if err != nil {
		return nil, NewValidationError("CreateFlow", "invalid_slug", err.Error(), err)
	}

	title := truncate(strings.TrimSpace(params.Title), models.MaxFlowTitleLen)
	if title == "" {
		title = normalizedSlug
	}

	status := models.FlowStatusDraft
	if strings.TrimSpace(params.Status) != "" {
		status, err = normalizeStatus(params.Status)
		if err != nil {
			return nil, err
		}
	}

	triggerEvent := models.DefaultTriggerEvent
	if strings.TrimSpace(params.TriggerEvent) != "" {
		triggerEvent, err = normalizeTriggerEvent(params.TriggerEvent)
		if err != nil {
			return nil, err
		}
	}

	definition := params.Definition

	definition.Normalize()

	if err := definition.Validate(); err != nil {
		return nil, NewValidationError("CreateFlow", "invalid_definition", err.Error(), err)
	}

	existing, err := s.store.Flows().GetBySlug(ctx, normalizedSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check flow slug: %w", err)
	}

	if existing != nil {
		return nil, NewConflictError("CreateFlow", "slug_exists", "Flow slug already exists", persistence.ErrFlowSlugExists)
	}

	created := &models.Flow{
		Slug:         normalizedSlug,
		Title:        title,
		Description:  normalizeDescription(params.Description),
		Status:       status,
		TriggerEvent: triggerEvent,
		Definition:   definition,
	}

	err = s.store.Flows().Create(ctx, created)
	if err != nil {
		// The pre-check races with concurrent creates; the unique index is
		// the final arbiter.
		if persistence.IsFlowSlugExists(err) {
			return nil, NewConflictError("CreateFlow", "slug_exists", "Flow slug already exists", persistence.ErrFlowSlugExists)
		}

		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	s.logger.InfoContext(ctx, "flow created", "flow_id", created.ID, "slug", created.Slug)

	return created, nil
}

// Get retrieves a flow by its ID.
func (s *Flows) Get(ctx context.Context, id string) (*models.Flow, error) {
	found, err := s.store.Flows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, ErrFlowNotFound
	}

	return found, nil
}

// UpdateFlowParams carries a partial update. Nil fields are left untouched;
// a present empty description clears the stored one.
type UpdateFlowParams struct {
	Title        *string
	Description  *string
	Status       *string
	TriggerEvent *string
	Definition   *models.FlowDefinition
}

// Update applies the present fields to an existing flow. The definition is
// re-validated before it replaces the stored one.
func (s *Flows) Update(ctx context.Context, id string, params UpdateFlowParams) (*models.Flow, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		existing.Title = truncate(strings.TrimSpace(*params.Title), models.MaxFlowTitleLen)
	}

	if params.Description != nil {
		existing.Description = normalizeDescription(params.Description)
	}

	if params.Status != nil {
		status, err := normalizeStatus(*params.Status)
		if err != nil {
			return nil, err
		}

		existing.Status = status
	}

	if params.TriggerEvent != nil {
		triggerEvent, err := normalizeTriggerEvent(*params.TriggerEvent)
		if err != nil {
			return nil, err
		}

		existing.TriggerEvent = triggerEvent
	}

	if params.Definition != nil {
		definition := *params.Definition

		definition.Normalize()

		if err := definition.Validate(); err != nil {
			return nil, NewValidationError("UpdateFlow", "invalid_definition", err.Error(), err)
		}

		existing.Definition = definition
	}

	err = s.store.Flows().Update(ctx, existing)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return nil, ErrFlowNotFound
		}

		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	s.logger.InfoContext(ctx, "flow updated", "flow_id", existing.ID, "slug", existing.Slug)

	return existing, nil
}

// Delete removes a flow and its run history in one transaction.
func (s *Flows) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = uow.Flows().Delete(ctx, id)
	if err != nil {
		_ = uow.Rollback()

		return fmt.Errorf("failed to delete flow: %w", err)
	}

	err = uow.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit flow deletion: %w", err)
	}

	s.logger.InfoContext(ctx, "flow deleted", "flow_id", id, "slug", existing.Slug)

	return nil
}

// ListFlowsRequest contains options for listing flows. Out-of-range
// pagination values are clamped; unknown status and sort values fall back
// silently so a stale admin UI never breaks the listing.
type ListFlowsRequest struct {
	Limit  int
	Offset int
	Query  string
	Status string
	Sort   string
	Dir    string
}

// ListFlowsResponse contains one page of flows.
type ListFlowsResponse struct {
	Items  []*models.Flow `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// List retrieves flows with filtering, sorting, and pagination.
func (s *Flows) List(ctx context.Context, req ListFlowsRequest) (*ListFlowsResponse, error) {
	limit := clampLimit(req.Limit)

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	opts := persistence.ListFlowsOptions{
		Limit:  limit,
		Offset: offset,
		Query:  req.Query,
	}

	if statusValue := strings.ToLower(strings.TrimSpace(req.Status)); statusValue != "" {
		status := models.FlowStatus(statusValue)
		if models.ValidFlowStatus(status) {
			opts.Status = &status
		}
	}

	opts.SortBy = strings.ToLower(strings.TrimSpace(req.Sort))
	if opts.SortBy == "" {
		opts.SortBy = "updated_at"
	}

	opts.SortAsc = strings.ToLower(strings.TrimSpace(req.Dir)) == "asc"

	result, err := s.store.Flows().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return &ListFlowsResponse{
		Items:  result.Flows,
		Total:  result.Total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// ListRunsResponse contains one page of runs for a flow, newest first.
type ListRunsResponse struct {
	Items  []*models.FlowRun `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ListRuns retrieves the run history of a flow. The flow must exist.
func (s *Flows) ListRuns(ctx context.Context, flowID string, limit, offset int) (*ListRunsResponse, error) {
	_, err := s.Get(ctx, flowID)
	if err != nil {
		return nil, err
	}

	limit = clampLimit(limit)

	if offset < 0 {
		offset = 0
	}

	result, err := s.store.Runs().ListByFlow(ctx, flowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return &ListRunsResponse{
		Items:  result.Runs,
		Total:  result.Total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// maxPageSize caps both flow and run listings.
const maxPageSize = 200

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}

	if limit > maxPageSize {
		return maxPageSize
	}

	return limit
}

// truncate caps the value at maxLen characters, not bytes, so multibyte
// titles survive the cut.
func truncate(value string, maxLen int) string {
	runes := []rune(value)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}

	return value
}

func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}

	cleaned := truncate(strings.TrimSpace(*description), models.MaxFlowDescriptionLen)
	if cleaned == "" {
		return nil
	}

	return &cleaned
}

func normalizeStatus(value string) (models.FlowStatus, error) {
	status := models.FlowStatus(strings.ToLower(strings.TrimSpace(value)))
	if !models.ValidFlowStatus(status) {
		return "", NewValidationError("normalizeStatus", "invalid_status", ErrInvalidStatus.Error(), ErrInvalidStatus)
	}

	return status, nil
}

func normalizeTriggerEvent(value string) (string, error) {
	event := strings.ToLower(strings.TrimSpace(value))
	if event == "" {
		return "", NewValidationError("normalizeTriggerEvent", "trigger_event_required", ErrTriggerEventRequired.Error(), ErrTriggerEventRequired)
	}

	if len([]rune(event)) > models.MaxTriggerEventLen {
		return "", NewValidationError("normalizeTriggerEvent", "trigger_event_too_long", ErrTriggerEventTooLong.Error(), ErrTriggerEventTooLong)
	}

	return event, nil
}
