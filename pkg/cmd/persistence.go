package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/persistence/sqlstore"
)

// NewStore opens the SQL store behind databaseURL and runs migrations.
// postgres:// URLs select the postgres driver; everything else is treated as
// a sqlite DSN, so a plain file path is enough for single-binary setups.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Store {
	driver, dsn := parseDatabaseURL(databaseURL)

	store, err := sqlstore.NewStore(ctx, logger, driver, dsn)
	if err != nil {
		panic(fmt.Errorf("failed to initialize store: %w", err))
	}

	return store
}

func parseDatabaseURL(databaseURL string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return sqlstore.DriverPostgres, databaseURL
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlstore.DriverSQLite, strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return sqlstore.DriverSQLite, databaseURL
	}
}
