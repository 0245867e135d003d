package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/persistence"
)

type runRow struct {
	ID         string    `db:"id"`
	FlowID     string    `db:"flow_id"`
	Status     string    `db:"status"`
	InputJSON  []byte    `db:"input_json"`
	OutputJSON []byte    `db:"output_json"`
	ErrorText  *string   `db:"error_text"`
	CreatedAt  time.Time `db:"created_at"`
}

// RunRepository handles flow run records. Runs are append-only.
type RunRepository struct {
	q      querier
	logger *slog.Logger
}

// NewRunRepository creates a new run repository over a database handle or an
// open transaction.
func NewRunRepository(q querier, logger *slog.Logger) *RunRepository {
	return &RunRepository{q: q, logger: logger}
}

// Create inserts a run record.
func (r *RunRepository) Create(ctx context.Context, run *models.FlowRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	inputJSON, err := json.Marshal(emptyIfNil(run.Input))
	if err != nil {
		return fmt.Errorf("failed to marshal run input: %w", err)
	}

	outputJSON, err := json.Marshal(emptyIfNil(run.Output))
	if err != nil {
		return fmt.Errorf("failed to marshal run output: %w", err)
	}

	query := r.q.Rebind(`
		INSERT INTO flow_runs (id, flow_id, status, input_json, output_json, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.q.ExecContext(ctx, query,
		run.ID,
		run.FlowID,
		run.Status,
		inputJSON,
		outputJSON,
		run.Error,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert flow run: %w", err)
	}

	return nil
}

// ListByFlow returns one page of runs for a flow, newest first, plus the
// total count.
func (r *RunRepository) ListByFlow(ctx context.Context, flowID string, limit, offset int) (*persistence.ListRunsResult, error) {
	var total int64

	countQuery := r.q.Rebind("SELECT COUNT(*) FROM flow_runs WHERE flow_id = ?")

	err := r.q.GetContext(ctx, &total, countQuery, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to count flow runs: %w", err)
	}

	query := r.q.Rebind(`
		SELECT id, flow_id, status, input_json, output_json, error_text, created_at
		FROM flow_runs
		WHERE flow_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)

	rows := make([]runRow, 0, limit)

	err = r.q.SelectContext(ctx, &rows, query, flowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow runs: %w", err)
	}

	runs := make([]*models.FlowRun, 0, len(rows))

	for i := range rows {
		run, err := r.toModel(&rows[i])
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	return &persistence.ListRunsResult{Runs: runs, Total: total}, nil
}

func (r *RunRepository) toModel(row *runRow) (*models.FlowRun, error) {
	run := &models.FlowRun{
		ID:        row.ID,
		FlowID:    row.FlowID,
		Status:    models.RunStatus(row.Status),
		Error:     row.ErrorText,
		CreatedAt: row.CreatedAt,
	}

	err := json.Unmarshal(row.InputJSON, &run.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run input: %w", err)
	}

	err = json.Unmarshal(row.OutputJSON, &run.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run output: %w", err)
	}

	return run, nil
}

// emptyIfNil keeps JSON columns as objects instead of the literal null.
func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
