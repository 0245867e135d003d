// Package persistence provides the data storage abstraction for flows, runs,
// and the content records flows write to.
package persistence

import (
	"context"

	"github.com/lodecms/lode/pkg/models"
)

// Store is the root persistence handle. Repositories obtained from a Store
// auto-commit each operation; Begin returns a UnitOfWork whose repositories
// share one transaction.
type Store interface {
	Flows() FlowRepository
	Runs() RunRepository
	Options() OptionRepository
	Content() ContentRepository

	Begin(ctx context.Context) (UnitOfWork, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// UnitOfWork groups repository operations into a single transaction. A run's
// side effects and its audit record commit or roll back together through one
// of these.
type UnitOfWork interface {
	Flows() FlowRepository
	Runs() RunRepository
	Options() OptionRepository
	Content() ContentRepository

	Commit() error
	Rollback() error
}

// ListFlowsOptions filters, sorts, and paginates flow listings. Limit and
// offset arrive pre-clamped from the service layer.
type ListFlowsOptions struct {
	Limit  int
	Offset int

	// Query matches slug, title, or description, case-insensitively.
	Query string

	// Status filters to one lifecycle state when set.
	Status *models.FlowStatus

	// SortBy must be one of the allowed sort fields; SortAsc selects the
	// direction. The flow id always breaks ties.
	SortBy  string
	SortAsc bool
}

// ListFlowsResult carries one page of flows plus the unpaginated total.
type ListFlowsResult struct {
	Flows []*models.Flow
	Total int64
}

// ListRunsResult carries one page of runs plus the unpaginated total.
type ListRunsResult struct {
	Runs  []*models.FlowRun
	Total int64
}

// FlowRepository persists flow rows. Lookup methods return nil without error
// when no row matches.
type FlowRepository interface {
	Create(ctx context.Context, flow *models.Flow) error
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	GetBySlug(ctx context.Context, slug string) (*models.Flow, error)
	Update(ctx context.Context, flow *models.Flow) error
	// Delete removes the flow and its runs in the same statement batch.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListFlowsOptions) (*ListFlowsResult, error)
}

// RunRepository persists immutable flow run records.
type RunRepository interface {
	Create(ctx context.Context, run *models.FlowRun) error
	ListByFlow(ctx context.Context, flowID string, limit, offset int) (*ListRunsResult, error)
}

// OptionRepository accesses the shared site options table.
type OptionRepository interface {
	Get(ctx context.Context, key string) (*models.Option, error)
	// Upsert writes the value under key and reports whether a new row was
	// created.
	Upsert(ctx context.Context, key string, value any) (bool, error)
}

// ContentRepository covers the slice of the content subsystem flows write
// to: resolving content types and inserting entries.
type ContentRepository interface {
	CreateType(ctx context.Context, contentType *models.ContentType) error
	TypeBySlug(ctx context.Context, slug string) (*models.ContentType, error)
	EntrySlugExists(ctx context.Context, contentTypeID, slug string) (bool, error)
	CreateEntry(ctx context.Context, entry *models.ContentEntry) error
}
