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
	"github.com/lodecms/lode/pkg/persistence"
)

type contentTypeRow struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// ContentRepository covers the slice of the content subsystem that flow
// actions touch: resolving content types and inserting entries.
type ContentRepository struct {
	q      querier
	logger *slog.Logger
}

// NewContentRepository creates a new content repository over a database
// handle or an open transaction.
func NewContentRepository(q querier, logger *slog.Logger) *ContentRepository {
	return &ContentRepository{q: q, logger: logger}
}

// CreateType inserts a content type. Duplicate slugs surface as
// ErrUniqueViolation.
func (r *ContentRepository) CreateType(ctx context.Context, contentType *models.ContentType) error {
	if contentType.CreatedAt.IsZero() {
		contentType.CreatedAt = time.Now().UTC()
	}

	if contentType.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate content type ID: %w", err)
		}

		contentType.ID = id.String()
	}

	query := r.q.Rebind(`
		INSERT INTO content_types (id, slug, title, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	_, err := r.q.ExecContext(ctx, query,
		contentType.ID,
		contentType.Slug,
		contentType.Title,
		contentType.Description,
		contentType.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("content.CreateType", contentType.Slug, persistence.ErrUniqueViolation)
		}

		return fmt.Errorf("failed to insert content type: %w", err)
	}

	return nil
}

// TypeBySlug returns the content type with the given slug, or nil when it
// does not exist.
func (r *ContentRepository) TypeBySlug(ctx context.Context, slug string) (*models.ContentType, error) {
	var row contentTypeRow

	query := r.q.Rebind(`
		SELECT id, slug, title, description, created_at
		FROM content_types
		WHERE slug = ?
	`)

	err := r.q.GetContext(ctx, &row, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query content type: %w", err)
	}

	return &models.ContentType{
		ID:          row.ID,
		Slug:        row.Slug,
		Title:       row.Title,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// EntrySlugExists reports whether an entry with the slug already exists in
// the content type.
func (r *ContentRepository) EntrySlugExists(ctx context.Context, contentTypeID, slug string) (bool, error) {
	var count int64

	query := r.q.Rebind("SELECT COUNT(*) FROM content_entries WHERE content_type_id = ? AND slug = ?")

	err := r.q.GetContext(ctx, &count, query, contentTypeID, slug)
	if err != nil {
		return false, fmt.Errorf("failed to query entry slug: %w", err)
	}

	return count > 0, nil
}

// CreateEntry inserts a content entry. A slug collision inside the content
// type surfaces as ErrUniqueViolation; under concurrent writers the unique
// index is the final arbiter, not EntrySlugExists.
func (r *ContentRepository) CreateEntry(ctx context.Context, entry *models.ContentEntry) error {
	now := time.Now().UTC()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	entry.UpdatedAt = now

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate entry ID: %w", err)
		}

		entry.ID = id.String()
	}

	dataJSON, err := json.Marshal(emptyIfNil(entry.Data))
	if err != nil {
		return fmt.Errorf("failed to marshal entry data: %w", err)
	}

	query := r.q.Rebind(`
		INSERT INTO content_entries (id, content_type_id, title, slug, status, order_index, data_json, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.q.ExecContext(ctx, query,
		entry.ID,
		entry.ContentTypeID,
		entry.Title,
		entry.Slug,
		entry.Status,
		entry.OrderIndex,
		dataJSON,
		entry.PublishedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStoreError("content.CreateEntry", entry.Slug, persistence.ErrUniqueViolation)
		}

		return fmt.Errorf("failed to insert entry: %w", err)
	}

	return nil
}
