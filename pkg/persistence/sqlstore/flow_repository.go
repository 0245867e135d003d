package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/persistence"
)

// flowSortColumns maps sortable fields to ORDER BY expressions. Text columns
// sort case-insensitively, matching how the admin list displays them.
// Unknown sort keys fall back to updated_at rather than failing the request.
var flowSortColumns = map[string]string{
	"updated_at":    "updated_at",
	"created_at":    "created_at",
	"title":         "lower(title)",
	"slug":          "lower(slug)",
	"status":        "lower(status)",
	"trigger_event": "lower(trigger_event)",
	"id":            "id",
}

const flowColumns = "id, slug, title, description, status, trigger_event, definition_json, created_at, updated_at"

type flowRow struct {
	ID             string    `db:"id"`
	Slug           string    `db:"slug"`
	Title          string    `db:"title"`
	Description    *string   `db:"description"`
	Status         string    `db:"status"`
	TriggerEvent   string    `db:"trigger_event"`
	DefinitionJSON []byte    `db:"definition_json"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	q      querier
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository over a database handle or
// an open transaction.
func NewFlowRepository(q querier, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{q: q, logger: logger}
}

// Create inserts a new flow. A duplicate slug surfaces as ErrFlowSlugExists
// so callers can map it to a conflict.
func (r *FlowRepository) Create(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	definitionJSON, err := json.Marshal(flow.Definition)
	if err != nil {
		return fmt.Errorf("failed to marshal flow definition: %w", err)
	}

	query := r.q.Rebind(`
		INSERT INTO flows (` + flowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.q.ExecContext(ctx, query,
		flow.ID,
		flow.Slug,
		flow.Title,
		flow.Description,
		flow.Status,
		flow.TriggerEvent,
		definitionJSON,
		flow.CreatedAt,
		flow.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("flows.Create", flow.Slug, persistence.ErrFlowSlugExists)
		}

		return fmt.Errorf("failed to insert flow: %w", err)
	}

	return nil
}

// GetByID returns the flow with the given ID, or nil when it does not exist.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	return r.getWhere(ctx, "id = ?", id)
}

// GetBySlug returns the flow with the given slug, or nil when it does not
// exist. Callers are expected to normalize the slug first.
func (r *FlowRepository) GetBySlug(ctx context.Context, slug string) (*models.Flow, error) {
	return r.getWhere(ctx, "slug = ?", slug)
}

func (r *FlowRepository) getWhere(ctx context.Context, condition string, arg any) (*models.Flow, error) {
	var row flowRow

	query := r.q.Rebind("SELECT " + flowColumns + " FROM flows WHERE " + condition)

	err := r.q.GetContext(ctx, &row, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query flow: %w", err)
	}

	return r.toModel(ctx, &row), nil
}

// Update persists every mutable column of the flow and refreshes updated_at.
func (r *FlowRepository) Update(ctx context.Context, flow *models.Flow) error {
	flow.UpdatedAt = time.Now().UTC()

	definitionJSON, err := json.Marshal(flow.Definition)
	if err != nil {
		return fmt.Errorf("failed to marshal flow definition: %w", err)
	}

	query := r.q.Rebind(`
		UPDATE flows
		SET slug = ?, title = ?, description = ?, status = ?, trigger_event = ?, definition_json = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.q.ExecContext(ctx, query,
		flow.Slug,
		flow.Title,
		flow.Description,
		flow.Status,
		flow.TriggerEvent,
		definitionJSON,
		flow.UpdatedAt,
		flow.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("flows.Update", flow.Slug, persistence.ErrFlowSlugExists)
		}

		return fmt.Errorf("failed to update flow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewStoreError("flows.Update", flow.ID, persistence.ErrFlowNotFound)
	}

	return nil
}

// Delete removes a flow and its run history. Callers that need atomicity run
// it inside a unit of work. Deleting a missing flow is not an error.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM flow_runs WHERE flow_id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete flow runs: %w", err)
	}

	_, err = r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM flows WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	return nil
}

// List returns one page of flows plus the total count for the same filters.
func (r *FlowRepository) List(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.ListFlowsResult, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)

	search := strings.ToLower(strings.TrimSpace(opts.Query))
	if search != "" {
		where = append(where, "(lower(slug) LIKE ? OR lower(title) LIKE ? OR lower(description) LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	if opts.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*opts.Status))
	}

	condition := ""
	if len(where) > 0 {
		condition = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64

	err := r.q.GetContext(ctx, &total, r.q.Rebind("SELECT COUNT(*) FROM flows"+condition), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count flows: %w", err)
	}

	sortColumn, ok := flowSortColumns[opts.SortBy]
	if !ok {
		sortColumn = flowSortColumns["updated_at"]
	}

	direction := "DESC"
	if opts.SortAsc {
		direction = "ASC"
	}

	query := r.q.Rebind(fmt.Sprintf(
		"SELECT %s FROM flows%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?",
		flowColumns, condition, sortColumn, direction, direction,
	))

	rows := make([]flowRow, 0, opts.Limit)

	err = r.q.SelectContext(ctx, &rows, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	flows := make([]*models.Flow, 0, len(rows))
	for i := range rows {
		flows = append(flows, r.toModel(ctx, &rows[i]))
	}

	return &persistence.ListFlowsResult{Flows: flows, Total: total}, nil
}

// toModel converts a row to the domain model. A definition column that fails
// to parse is logged and replaced with an empty definition instead of making
// the whole flow unreadable.
func (r *FlowRepository) toModel(ctx context.Context, row *flowRow) *models.Flow {
	var definition models.FlowDefinition

	err := json.Unmarshal(row.DefinitionJSON, &definition)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to unmarshal flow definition, using empty definition",
			"flow_id", row.ID, "error", err)

		definition = models.FlowDefinition{Version: models.DefinitionVersion}
	}

	return &models.Flow{
		ID:           row.ID,
		Slug:         row.Slug,
		Title:        row.Title,
		Description:  row.Description,
		Status:       models.FlowStatus(row.Status),
		TriggerEvent: row.TriggerEvent,
		Definition:   definition,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
