package dbx

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Wrap marks err as a storage failure of op so that callers can match it
// with errors.Is(err, common.ErrStorageUnavailable).
func Wrap(op string, err error) error {
	return fmt.Errorf("db error: %s: %w: %w", op, common.ErrStorageUnavailable, err)
}

// IsUniqueViolation reports whether err comes from a unique constraint, for
// either the pgx or the SQLite driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
