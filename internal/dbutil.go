package internal

import (
	"context"
	"database/sql"
)

// querier is the subset of database/sql shared by *sql.DB, *sql.Conn and
// *sql.Tx, so query helpers can run standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
