// Package selection applies the include/exclude/full-table glob filters
// that decide which tables the engine manages and how.
package selection

import "path/filepath"

// Matches reports whether pattern matches either the qualified
// ("schema.name") or bare table name, using shell-glob semantics.
func Matches(pattern, schema, name string) bool {
	qualified := schema + "." + name
	if ok, _ := filepath.Match(pattern, qualified); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, name); ok {
		return true
	}
	return false
}

// MatchesAny reports whether any pattern in patterns matches the table.
func MatchesAny(patterns []string, schema, name string) bool {
	for _, p := range patterns {
		if Matches(p, schema, name) {
			return true
		}
	}
	return false
}

// IsFullTable reports whether the table matches one of the configured
// full-table (exact-copy) patterns.
func IsFullTable(fullTables []string, schema, name string) bool {
	return MatchesAny(fullTables, schema, name)
}

// IsIncluded applies the positive/negative selection rule: included if the
// include set is empty or matches, AND not matched by the exclude set.
func IsIncluded(include, exclude []string, schema, name string) bool {
	included := len(include) == 0 || MatchesAny(include, schema, name)
	if !included {
		return false
	}
	return !MatchesAny(exclude, schema, name)
}
