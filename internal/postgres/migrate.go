package postgres

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema. Every statement uses IF NOT EXISTS.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, schema)
	return err
}
