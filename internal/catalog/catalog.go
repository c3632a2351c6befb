// Package catalog introspects a source database's tables, primary keys,
// and foreign keys into the in-memory model.TableDescriptor representation
// the engine operates over.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relsubset/subsetter/internal/config"
	"github.com/relsubset/subsetter/internal/dialect"
	"github.com/relsubset/subsetter/internal/model"
	"github.com/relsubset/subsetter/internal/selection"
)

// ErrSchemaMismatch is returned when a foreign key refers to a table that
// was not found anywhere in the introspected model.
type ErrSchemaMismatch struct {
	Table, ReferredTable string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("catalog: %s references %s, which is not in the model", e.Table, e.ReferredTable)
}

// Introspector enumerates tables for one database connection and builds
// TableDescriptors, including the second pass that wires inverse ChildFKs.
type Introspector struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// New creates an Introspector bound to a connection and its dialect.
func New(db *sql.DB, d dialect.Dialect) *Introspector {
	return &Introspector{db: db, dialect: d}
}

// BuildModel enumerates every table in the given schemas filtered by the
// selection configuration, then wires foreign keys (real and pseudo) and
// their inverse child edges.
func (in *Introspector) BuildModel(ctx context.Context, schemas []string, sel config.SelectionConfig, constraints map[string][]config.Edge) (map[string]*model.TableDescriptor, error) {
	tables := make(map[string]*model.TableDescriptor)

	for _, schema := range schemas {
		names, err := in.listTables(ctx, schema)
		if err != nil {
			return nil, fmt.Errorf("catalog: list tables in %s: %w", schema, err)
		}
		for _, name := range names {
			if !matchesSelection(schema, name, sel) {
				continue
			}
			pk, err := in.primaryKey(ctx, schema, name)
			if err != nil {
				return nil, fmt.Errorf("catalog: primary key for %s.%s: %w", schema, name, err)
			}
			cols, err := in.allColumns(ctx, schema, name)
			if err != nil {
				return nil, fmt.Errorf("catalog: columns for %s.%s: %w", schema, name, err)
			}
			fks, err := in.foreignKeys(ctx, schema, name)
			if err != nil {
				return nil, fmt.Errorf("catalog: foreign keys for %s.%s: %w", schema, name, err)
			}

			desc := &model.TableDescriptor{
				Schema:  schema,
				Name:    name,
				PK:      pk,
				Columns: cols,
				FKs:     fks,
			}
			tables[desc.QualifiedName()] = desc
		}
	}

	attachConstraints(tables, constraints)

	if err := wireChildEdges(tables); err != nil {
		return nil, err
	}

	return tables, nil
}

// attachConstraints resolves user-declared pseudo-foreign-keys (config.Edge)
// onto their owning table, keyed by qualified or bare name.
func attachConstraints(tables map[string]*model.TableDescriptor, constraints map[string][]config.Edge) {
	for key, edges := range constraints {
		desc := lookup(tables, key)
		if desc == nil {
			continue
		}
		for _, e := range edges {
			desc.Constraints = append(desc.Constraints, model.ForeignKey{
				ReferredSchema:     e.ReferredSchema,
				ReferredTable:      e.ReferredTable,
				ReferredColumns:    e.ReferredColumns,
				ConstrainedColumns: e.ConstrainedColumns,
				Pseudo:             true,
			})
		}
	}
}

// wireChildEdges populates ChildFKs by mirroring every outgoing FK and
// Constraint edge onto its referred table. A referent missing from the
// model is a fatal schema mismatch for real FKs; pseudo edges are allowed
// to dangle (they're validated lazily, at admission time, against the
// source).
func wireChildEdges(tables map[string]*model.TableDescriptor) error {
	for _, t := range tables {
		for _, fk := range t.FKs {
			referred := lookup(tables, fmt.Sprintf("%s.%s", fk.ReferredSchema, fk.ReferredTable))
			if referred == nil {
				return &ErrSchemaMismatch{Table: t.QualifiedName(), ReferredTable: fk.ReferredTable}
			}
			referred.ChildFKs = append(referred.ChildFKs, model.ChildEdge{
				ConstrainedSchema:  t.Schema,
				ConstrainedTable:   t.Name,
				ReferredColumns:    fk.ReferredColumns,
				ConstrainedColumns: fk.ConstrainedColumns,
			})
		}
		for _, c := range t.Constraints {
			referred := lookup(tables, fmt.Sprintf("%s.%s", c.ReferredSchema, c.ReferredTable))
			if referred == nil {
				continue // pseudo edges may point at tables outside the selected set
			}
			referred.ChildFKs = append(referred.ChildFKs, model.ChildEdge{
				ConstrainedSchema:  t.Schema,
				ConstrainedTable:   t.Name,
				ReferredColumns:    c.ReferredColumns,
				ConstrainedColumns: c.ConstrainedColumns,
			})
		}
	}
	return nil
}

// lookup finds a descriptor by qualified ("schema.table") or bare name.
func lookup(tables map[string]*model.TableDescriptor, name string) *model.TableDescriptor {
	if d, ok := tables[name]; ok {
		return d
	}
	for _, d := range tables {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// matchesSelection applies the include/exclude glob filters against
// both the qualified and bare table name.
func matchesSelection(schema, name string, sel config.SelectionConfig) bool {
	return selection.IsIncluded(sel.Tables, sel.ExcludeTables, schema, name)
}

func (in *Introspector) listTables(ctx context.Context, schema string) ([]string, error) {
	var query string
	switch in.dialect.Name() {
	case "postgres":
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`
	default:
		query = `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`
	}

	rows, err := in.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (in *Introspector) primaryKey(ctx context.Context, schema, table string) ([]string, error) {
	var query string
	switch in.dialect.Name() {
	case "postgres":
		query = `SELECT a.attname FROM pg_index i
			JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
			JOIN pg_class c ON c.oid = i.indrelid
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE i.indisprimary AND n.nspname = $1 AND c.relname = $2
			ORDER BY array_position(i.indkey, a.attnum)`
	default:
		query = `SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY'
			ORDER BY ORDINAL_POSITION`
	}

	rows, err := in.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		pk = append(pk, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(pk) == 0 {
		return in.allColumns(ctx, schema, table)
	}
	return pk, nil
}

// allColumns is the fallback for tables with no declared primary key: every
// column becomes the composite key. Fragile for wide tables, but kept
// intentionally simple rather than adding a surrogate-key scheme.
func (in *Introspector) allColumns(ctx context.Context, schema, table string) ([]string, error) {
	var query string
	switch in.dialect.Name() {
	case "postgres":
		query = `SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`
	default:
		query = `SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
	}

	rows, err := in.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (in *Introspector) foreignKeys(ctx context.Context, schema, table string) ([]model.ForeignKey, error) {
	var query string
	switch in.dialect.Name() {
	case "postgres":
		query = `SELECT kcu.column_name, ccu.table_schema, ccu.table_name, ccu.column_name, tc.constraint_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name
			WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1 AND tc.table_name = $2
			ORDER BY tc.constraint_name, kcu.ordinal_position`
	default:
		query = `SELECT COLUMN_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME, CONSTRAINT_NAME
			FROM information_schema.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
			ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`
	}

	rows, err := in.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byConstraint := make(map[string]*model.ForeignKey)
	var order []string
	for rows.Next() {
		var col, refSchema, refTable, refCol, constraintName string
		if err := rows.Scan(&col, &refSchema, &refTable, &refCol, &constraintName); err != nil {
			return nil, err
		}
		fk, ok := byConstraint[constraintName]
		if !ok {
			fk = &model.ForeignKey{ReferredSchema: refSchema, ReferredTable: refTable}
			byConstraint[constraintName] = fk
			order = append(order, constraintName)
		}
		fk.ConstrainedColumns = append(fk.ConstrainedColumns, col)
		fk.ReferredColumns = append(fk.ReferredColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks := make([]model.ForeignKey, 0, len(order))
	for _, name := range order {
		fks = append(fks, *byConstraint[name])
	}
	return fks, nil
}

// schemaList normalizes the user-supplied schema list, always including
// "default" (the connection's own schema/database).
func schemaList(cfg *config.Config, side *config.DatabaseConfig) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	add(side.Database)
	for _, s := range cfg.Selection.Schemas {
		add(s)
	}
	return out
}

// SchemasFor is the exported entry point orchestrators use to compute the
// schema list for a connection before calling BuildModel.
func SchemasFor(cfg *config.Config, side *config.DatabaseConfig) []string {
	return schemaList(cfg, side)
}
