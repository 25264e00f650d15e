package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/easeaico/lens-assistant/internal/types"
)

// undefinedTable means migrations have not been applied.
const undefinedTable = "42P01"

// classify wraps err with the matching sentinel from the error taxonomy.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", action, types.ErrNotFound)
	case isUnavailable(err):
		return fmt.Errorf("failed to %s: %w: %w", action, types.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exception, 57P0x is server shutdown.
		return strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "57P0") ||
			pgErr.Code == undefinedTable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
}

// validID reports whether id can be compared against a uuid column. Malformed
// ids are reported as not found instead of a Postgres cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
