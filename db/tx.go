package db

import (
	"context"
	"database/sql"
)

// NewTx starts a transaction on the given DB. The returned *sql.Tx satisfies
// Querier, so the query helpers work the same inside and outside of it.
func NewTx(ctx context.Context, db DBer) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}
