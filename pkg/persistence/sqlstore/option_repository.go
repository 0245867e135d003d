package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lodecms/lode/pkg/models"
)

type optionRow struct {
	ID        string    `db:"id"`
	Key       string    `db:"opt_key"`
	ValueJSON []byte    `db:"value_json"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OptionRepository handles site-wide key/value options.
type OptionRepository struct {
	q      querier
	logger *slog.Logger
}

// NewOptionRepository creates a new option repository over a database handle
// or an open transaction.
func NewOptionRepository(q querier, logger *slog.Logger) *OptionRepository {
	return &OptionRepository{q: q, logger: logger}
}

// Get returns the option with the given key, or nil when it does not exist.
func (r *OptionRepository) Get(ctx context.Context, key string) (*models.Option, error) {
	var row optionRow

	query := r.q.Rebind(`
		SELECT id, opt_key, value_json, created_at, updated_at
		FROM options
		WHERE opt_key = ?
	`)

	err := r.q.GetContext(ctx, &row, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query option: %w", err)
	}

	option := &models.Option{
		ID:        row.ID,
		Key:       row.Key,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	err = json.Unmarshal(row.ValueJSON, &option.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal option value: %w", err)
	}

	return option, nil
}

// Upsert creates the option or overwrites its value. It reports whether a
// new row was created. Run inside a transaction when the result must be
// atomic with other writes.
func (r *OptionRepository) Upsert(ctx context.Context, key string, value any) (bool, error) {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal option value: %w", err)
	}

	now := time.Now().UTC()

	var existingID string

	err = r.q.GetContext(ctx, &existingID, r.q.Rebind("SELECT id FROM options WHERE opt_key = ?"), key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to query option: %w", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		id, err := uuid.NewV7()
		if err != nil {
			return false, fmt.Errorf("failed to generate option ID: %w", err)
		}

		insert := r.q.Rebind(`
			INSERT INTO options (id, opt_key, value_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`)

		_, err = r.q.ExecContext(ctx, insert, id.String(), key, valueJSON, now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert option: %w", err)
		}

		return true, nil
	}

	update := r.q.Rebind("UPDATE options SET value_json = ?, updated_at = ? WHERE id = ?")

	_, err = r.q.ExecContext(ctx, update, valueJSON, now, existingID)
	if err != nil {
		return false, fmt.Errorf("failed to update option: %w", err)
	}

	return false, nil
}
