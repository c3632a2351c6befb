// Package model holds the in-memory schema representation the engine
// operates over: table descriptors, foreign-key edges in both directions,
// and the row value type they exchange.
package model

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// ForeignKey is an outgoing edge from a table to a parent it references,
// either a real database foreign key or a user-declared pseudo-FK
// (Constraint). ReferredColumns and ConstrainedColumns are ordered and must
// have equal length.
type ForeignKey struct {
	ReferredSchema     string
	ReferredTable      string
	ReferredColumns    []string
	ConstrainedColumns []string
	// Pseudo reports whether this edge came from user configuration rather
	// than the catalog. Pseudo edges are not guaranteed to resolve in the
	// source and are skipped silently when they don't.
	Pseudo bool
}

// ChildEdge is the mirror of a ForeignKey, attached to the referred table
// during the model's second construction pass. It lets the admission
// engine walk from an admitted parent row to its candidate children.
type ChildEdge struct {
	ConstrainedSchema  string
	ConstrainedTable   string
	ReferredColumns    []string
	ConstrainedColumns []string
}

// TableDescriptor is the engine's view of one table, shared by the source
// and target sides (the target side additionally tracks queue/buffer state
// in target.Table).
type TableDescriptor struct {
	Schema string
	Name   string

	// PK holds the ordered primary-key column names. If the catalog
	// reported no primary key, every column is used as a composite key;
	// this is preserved even though it produces unwieldy tuples for wide
	// tables with no declared key.
	PK []string

	// Columns holds every column of the table, in catalog order. The
	// sampler selects this full list; PK/FK columns are a subset of it.
	Columns []string

	FKs         []ForeignKey
	ChildFKs    []ChildEdge
	Constraints []ForeignKey

	// NRows is the approximate (or, for full-table copies, exact) source
	// row count, set during row-count estimation.
	NRows int64
}

// QualifiedName returns "schema.name", the form selection patterns and
// error messages use.
func (t *TableDescriptor) QualifiedName() string {
	return fmt.Sprintf("%s.%s", t.Schema, t.Name)
}

// Row is an ordered mapping from column name to value, preserving column
// order as returned by the source driver. Value types are opaque to the
// model; coerce (pk.go, called by ComputePK) turns list/array values into a
// hashable form when a row value becomes part of a primary-key tuple.
type Row struct {
	values *orderedmap.OrderedMap[string, any]
}

// NewRow creates an empty Row.
func NewRow() *Row {
	return &Row{values: orderedmap.NewOrderedMap[string, any]()}
}

// Set assigns a column value, appending the column if new.
func (r *Row) Set(column string, value any) {
	r.values.Set(column, value)
}

// Get returns a column's value and whether it was present.
func (r *Row) Get(column string) (any, bool) {
	return r.values.Get(column)
}

// Columns returns the row's column names in insertion order.
func (r *Row) Columns() []string {
	cols := make([]string, 0, r.values.Len())
	for el := r.values.Front(); el != nil; el = el.Next() {
		cols = append(cols, el.Key)
	}
	return cols
}

// Len returns the number of columns in the row.
func (r *Row) Len() int {
	return r.values.Len()
}

// AllNil reports whether every named column is NULL (nil) in this row,
// which is how the admission engine recognizes a null-safe foreign key.
func (r *Row) AllNil(columns []string) bool {
	for _, c := range columns {
		v, ok := r.Get(c)
		if ok && v != nil {
			return false
		}
	}
	return true
}
