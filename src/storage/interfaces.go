package storage

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Execer executes SQL statements. Both *sql.DB and *sql.Tx satisfy it, so
// store functions run the same against the pool or inside a transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExecQuerier is for store functions that both read and write, like the
// session replace which checks prior state before rewriting rows.
type ExecQuerier interface {
	Execer
	sqlscan.Querier
}
