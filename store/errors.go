package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// isNoRows reports whether err is the "no matching row" outcome of a
// SELECT, so adapters can distinguish "not found" from a real failure.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}
