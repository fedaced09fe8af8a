package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for i, stmt := range statements(schema) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: statement #%d: %w", i+1, err)
			}
		}
		return nil
	})
}

// statements splits a schema file on terminating semicolons.
func statements(sql string) []string {
	var out []string
	for _, part := range strings.Split(sql, ";\n") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, strings.TrimSuffix(stmt, ";"))
		}
	}
	return out
}
