// Package sqlstore implements persistence.Store for PostgreSQL and SQLite
// through a single sqlx code path. Queries are written with `?` placeholders
// and rebound per dialect, so the two drivers share every repository.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/persistence/sqlbase"
	_ "modernc.org/sqlite" // sqlite driver, cgo-free
)

// DriverPostgres and DriverSQLite are the supported sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc's driver name is unknown to sqlx; its native bindvar is `?`.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx, letting one
// repository implementation serve both auto-commit and transactional use.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Store implements persistence.Store over a pooled database handle.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger

	flows   *FlowRepository
	runs    *RunRepository
	options *OptionRepository
	content *ContentRepository
}

// NewStore opens the database, runs migrations, and returns a ready store.
// driverName selects the dialect: "postgres" or "sqlite".
func NewStore(ctx context.Context, logger *slog.Logger, driverName, dsn string) (*Store, error) {
	if driverName != DriverPostgres && driverName != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	database, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory sqlite database exists per connection; keep the pool at
	// one connection so every query sees the same schema.
	if driverName == DriverSQLite && (strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")) {
		database.SetMaxOpenConns(1)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:      database,
		logger:  logger,
		flows:   NewFlowRepository(database, logger),
		runs:    NewRunRepository(database, logger),
		options: NewOptionRepository(database, logger),
		content: NewContentRepository(database, logger),
	}, nil
}

func (s *Store) Flows() persistence.FlowRepository {
	return s.flows
}

func (s *Store) Runs() persistence.RunRepository {
	return s.runs
}

func (s *Store) Options() persistence.OptionRepository {
	return s.options
}

func (s *Store) Content() persistence.ContentRepository {
	return s.content
}

// Begin starts a transaction and returns a unit of work whose repositories
// all ride on it.
func (s *Store) Begin(ctx context.Context) (persistence.UnitOfWork, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &unitOfWork{
		tx:      tx,
		flows:   NewFlowRepository(tx, s.logger),
		runs:    NewRunRepository(tx, s.logger),
		options: NewOptionRepository(tx, s.logger),
		content: NewContentRepository(tx, s.logger),
	}, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

type unitOfWork struct {
	tx *sqlx.Tx

	flows   *FlowRepository
	runs    *RunRepository
	options *OptionRepository
	content *ContentRepository
}

func (u *unitOfWork) Flows() persistence.FlowRepository {
	return u.flows
}

func (u *unitOfWork) Runs() persistence.RunRepository {
	return u.runs
}

func (u *unitOfWork) Options() persistence.OptionRepository {
	return u.options
}

func (u *unitOfWork) Content() persistence.ContentRepository {
	return u.content
}

func (u *unitOfWork) Commit() error {
	err := u.tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (u *unitOfWork) Rollback() error {
	err := u.tx.Rollback()
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}
