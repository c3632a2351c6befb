package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MySQL implements Dialect for MySQL/MariaDB connections.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) RandomExpr() string { return "RAND()" }

// QuoteIdentifier backtick-quotes an identifier, doubling any embedded
// backtick, the same convention as sqlutil.QuoteIdentifier.
func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(i int) string { return "?" }

// EstimateRowCount prefers information_schema.TABLES.TABLE_ROWS, which is an
// engine-maintained estimate (InnoDB samples it, MyISAM keeps it exact) and
// avoids a full table scan. It falls back to COUNT(*) whenever the estimate
// is NULL or zero, which can happen right after a bulk load before
// statistics refresh.
func (m MySQL) EstimateRowCount(ctx context.Context, db *sql.DB, schema, table string) (int64, error) {
	var estimate sql.NullInt64
	err := db.QueryRowContext(ctx,
		"SELECT TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?",
		schema, table,
	).Scan(&estimate)
	if err != nil {
		return 0, fmt.Errorf("mysql: estimate row count for %s.%s: %w", schema, table, err)
	}
	if estimate.Valid && estimate.Int64 > 0 {
		return estimate.Int64, nil
	}
	return m.ExactRowCount(ctx, db, schema, table)
}

func (m MySQL) ExactRowCount(ctx context.Context, db *sql.DB, schema, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", m.QuoteIdentifier(schema), m.QuoteIdentifier(table))
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("mysql: exact row count for %s.%s: %w", schema, table, err)
	}
	return count, nil
}
