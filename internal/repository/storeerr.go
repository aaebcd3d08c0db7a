package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kuyruklab/notify-engine/internal/domain"
)

// pgUndefinedTable is the Postgres error code raised when a relation is
// missing, which here means migrations have not been run.
const pgUndefinedTable = "42P01"

// classifyStoreError maps missing-table errors to ErrMigrationRequired so
// the coordinator can answer 503 instead of a generic 500.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", domain.ErrMigrationRequired, pgErr.Message)
	}
	if strings.Contains(err.Error(), "does not exist") {
		return fmt.Errorf("%w: %v", domain.ErrMigrationRequired, err)
	}

	return err
}
