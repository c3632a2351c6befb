// Package dialect isolates the SQL differences between the database
// engines the subsetter supports: random-row expressions, fast row-count
// paths, and identifier quoting.
package dialect

import (
	"context"
	"database/sql"
)

// Dialect abstracts the handful of SQL-generation decisions that differ
// between database engines. Each supported engine provides one
// implementation; the rest of the engine code is dialect-agnostic.
type Dialect interface {
	// Name identifies the dialect, e.g. "mysql" or "postgres".
	Name() string

	// RandomExpr returns the SQL expression used to order or filter rows
	// randomly (e.g. "RAND()" for MySQL, "random()" for PostgreSQL).
	RandomExpr() string

	// QuoteIdentifier quotes a table or column name for safe interpolation
	// into generated SQL.
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the i'th bound
	// argument (1-indexed), e.g. "?" for MySQL, "$1" for PostgreSQL.
	Placeholder(i int) string

	// EstimateRowCount returns a fast approximate row count for the given
	// table using catalog statistics where available, falling back to
	// SELECT COUNT(*) when the dialect has no cheaper path.
	EstimateRowCount(ctx context.Context, db *sql.DB, schema, table string) (int64, error)

	// ExactRowCount always executes SELECT COUNT(*), used for full-table
	// (fetch-all) tables where an approximation is not acceptable.
	ExactRowCount(ctx context.Context, db *sql.DB, schema, table string) (int64, error)
}

// For resolves the Dialect implementation registered under name.
func For(name string) (Dialect, error) {
	switch name {
	case "mysql", "":
		return MySQL{}, nil
	case "postgres":
		return Postgres{}, nil
	default:
		return nil, &UnsupportedError{Name: name}
	}
}

// UnsupportedError reports an unrecognized dialect name.
type UnsupportedError struct {
	Name string
}

func (e *UnsupportedError) Error() string {
	return "dialect: unsupported engine " + e.Name
}
