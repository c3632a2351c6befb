package model

import (
	"fmt"
	"strings"
)

// PKTuple is the hashable key used to track a row's identity in a target
// table's pending/done sets. It is built by taking, in pk-column order,
// each column value of the row and coercing it to a comparable Go value.
type PKTuple string

// ComputePK builds the PK tuple for row using the given ordered primary-key
// column list. List/array-typed values are coerced recursively so the
// result is always hashable, matching the "lists must be converted to
// tuples" rule for composite and JSON-backed keys.
//
// Each part is encoded as its length followed by its stringified value, so
// a composite key's column boundaries can never shift: ("ab","c") and
// ("a","bc") stringify to "2:ab|1:c|" and "1:a|2:bc|" respectively, which
// are distinct, whereas plain concatenation would collide on "abc".
func ComputePK(row *Row, pk []string) PKTuple {
	var b strings.Builder
	for _, col := range pk {
		v, _ := row.Get(col)
		s := fmt.Sprint(coerce(v))
		fmt.Fprintf(&b, "%d:%s|", len(s), s)
	}
	return PKTuple(b.String())
}

// coerce recursively converts slice-shaped values into a hashable
// representation. Scalars pass through unchanged.
func coerce(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = coerce(e)
		}
		return fmt.Sprint(out...)
	case []byte:
		return string(val)
	default:
		return val
	}
}
