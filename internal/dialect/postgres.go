package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Postgres implements Dialect for PostgreSQL connections via pgx's
// database/sql adapter.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) RandomExpr() string { return "random()" }

// QuoteIdentifier double-quotes an identifier, doubling any embedded quote.
func (Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Postgres) Placeholder(i int) string { return "$" + strconv.Itoa(i) }

// EstimateRowCount reads pg_class.reltuples, the planner's own row-count
// estimate refreshed by ANALYZE/autovacuum. This mirrors the fast path the
// original Python tool takes for psycopg2/pg8000 connections, avoiding a
// sequential scan on large tables.
func (p Postgres) EstimateRowCount(ctx context.Context, db *sql.DB, schema, table string) (int64, error) {
	var estimate float64
	err := db.QueryRowContext(ctx,
		`SELECT reltuples FROM pg_class
		 JOIN pg_namespace ON pg_namespace.oid = pg_class.relnamespace
		 WHERE pg_namespace.nspname = $1 AND pg_class.relname = $2`,
		schema, table,
	).Scan(&estimate)
	if err != nil {
		return 0, fmt.Errorf("postgres: estimate row count for %s.%s: %w", schema, table, err)
	}
	if estimate > 0 {
		return int64(estimate), nil
	}
	return p.ExactRowCount(ctx, db, schema, table)
}

func (p Postgres) ExactRowCount(ctx context.Context, db *sql.DB, schema, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", p.QuoteIdentifier(schema), p.QuoteIdentifier(table))
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: exact row count for %s.%s: %w", schema, table, err)
	}
	return count, nil
}
