package postgres

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB this package's repositories call through.
// Satisfied directly by *sql.DB, and by
// *circuitbreaker.DBCircuitBreaker, so production wiring can route every
// query through the breaker while tests keep using a bare *sql.DB (or
// sqlmock's stand-in).
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
