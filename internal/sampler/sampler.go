// Package sampler produces the lazy, regenerating stream of randomly
// ordered source rows each table's scheduler loop draws from. The
// sequence is conceptually infinite: it re-queries whenever its
// in-memory buffer is exhausted.
package sampler

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	"github.com/relsubset/subsetter/internal/dialect"
	"github.com/relsubset/subsetter/internal/model"
)

// largeTableThreshold is the n_rows cutoff above which the sampler uses the
// probabilistic WHERE random() < p scan instead of ORDER BY random() LIMIT
// n, which degrades badly on large tables.
const largeTableThreshold = 1000

// Sampler streams randomly ordered rows from one source table, sized to
// approximately n (the table's desired row count).
type Sampler struct {
	db      *sql.DB
	dialect dialect.Dialect

	schema, table string
	columns       []string
	nRows         int64
	desired       int64

	buffer []*model.Row
	pos    int
}

// New creates a Sampler for one table. columns is the full column list to
// select (order is preserved on the resulting Row).
func New(db *sql.DB, d dialect.Dialect, schema, table string, columns []string, nRows, desired int64) *Sampler {
	return &Sampler{
		db:      db,
		dialect: d,
		schema:  schema,
		table:   table,
		columns: columns,
		nRows:   nRows,
		desired: desired,
	}
}

// Next returns the next row in the stream, regenerating the underlying
// query when the in-memory buffer is exhausted. Returns ok=false only if a
// regeneration query itself found zero rows (the source table is empty or
// became empty mid-run).
func (s *Sampler) Next(ctx context.Context) (*model.Row, bool, error) {
	if s.pos >= len(s.buffer) {
		if err := s.regenerate(ctx); err != nil {
			return nil, false, err
		}
		if len(s.buffer) == 0 {
			return nil, false, nil
		}
	}
	row := s.buffer[s.pos]
	s.pos++
	return row, true, nil
}

func (s *Sampler) regenerate(ctx context.Context) error {
	query, args := s.buildQuery()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sampler: query %s.%s: %w", s.schema, s.table, err)
	}
	defer rows.Close()

	batch, err := scanRows(rows, s.columns)
	if err != nil {
		return err
	}

	// The probabilistic path returns rows in arbitrary-but-not-random disk
	// order; shuffle in memory so no single run favors early pages.
	rand.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })

	s.buffer = batch
	s.pos = 0
	return nil
}

func (s *Sampler) buildQuery() (string, []any) {
	cols := make([]string, len(s.columns))
	for i, c := range s.columns {
		cols[i] = s.dialect.QuoteIdentifier(c)
	}
	table := fmt.Sprintf("%s.%s", s.dialect.QuoteIdentifier(s.schema), s.dialect.QuoteIdentifier(s.table))
	randExpr := s.dialect.RandomExpr()

	if s.nRows > largeTableThreshold {
		p := float64(s.desired) / float64(s.nRows)
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s < %s",
			strings.Join(cols, ", "), table, randExpr, s.dialect.Placeholder(1))
		return query, []any{p}
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %s",
		strings.Join(cols, ", "), table, randExpr, s.dialect.Placeholder(1))
	return query, []any{s.desired}
}

func scanRows(rows *sql.Rows, columns []string) ([]*model.Row, error) {
	var out []*model.Row
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sampler: scan row: %w", err)
		}

		row := model.NewRow()
		for i, c := range columns {
			row.Set(c, dest[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
