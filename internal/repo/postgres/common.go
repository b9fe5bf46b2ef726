// Package postgres implements the repositories on a database/sql pool
// opened through the pgx stdlib driver. Identifiers, addresses and
// hashes are stored as fixed-width 0x-hex text so rows sort and compare
// the same way they render.
package postgres

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chainworks-labs/ipmeta/internal/repo"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	return err
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

// hexKey renders a fixed-width 0x-hex column value for any byte-array
// identifier type.
func hexKey(buf []byte) string {
	return "0x" + hex.EncodeToString(buf)
}
