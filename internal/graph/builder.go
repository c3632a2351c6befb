package graph

import (
	"strings"

	"github.com/relsubset/subsetter/internal/model"
)

// NewSchemaGraph creates an empty graph with no distinguished root, suitable
// for the foreign-key graph over a whole schema model rather than a single
// archiving job's relation tree.
func NewSchemaGraph() *Graph {
	return &Graph{
		Nodes:        make(map[string]*Node),
		Children:     make(map[string][]string),
		Parents:      make(map[string][]string),
		pkColumns:    make(map[string]string),
		edgeMetadata: make(map[Edge]*EdgeMeta),
	}
}

// BuildFromModel builds a Graph over a schema model: one node per table,
// one edge per foreign key or constraint, directed referred-table ->
// referencing-table (the copy order the admission engine depends on). A
// table with no incoming edges (no parent it depends on) is marked a root.
//
// The schema graph can legitimately contain cycles (admission does not
// detect them either); BuildFromModel does not call
// Validate, leaving cycle detection to the caller that wants it (the
// validate command surfaces HasCycle as a warning, not a build failure).
func BuildFromModel(tables map[string]*model.TableDescriptor) *Graph {
	g := NewSchemaGraph()

	for name, t := range tables {
		g.AddNode(name, &Node{Name: name})
		g.SetPK(name, strings.Join(t.PK, ","))
	}

	for name, t := range tables {
		for _, fk := range t.FKs {
			addModelEdge(g, fk, name)
		}
		for _, c := range t.Constraints {
			addModelEdge(g, c, name)
		}
	}

	for name, node := range g.Nodes {
		node.IsRoot = len(g.Parents[name]) == 0
	}

	return g
}

func addModelEdge(g *Graph, fk model.ForeignKey, childName string) {
	parentName := fk.ReferredSchema + "." + fk.ReferredTable
	if !g.HasNode(parentName) {
		// The referent fell outside the selected table set; still record
		// it as a node so the dangling reference stays in the graph.
		g.AddNode(parentName, &Node{Name: parentName})
	}
	g.AddEdgeWithMeta(parentName, childName,
		strings.Join(fk.ConstrainedColumns, ","), strings.Join(fk.ReferredColumns, ","), dependencyType(fk))
}

// dependencyType labels an edge "constraint" for user-declared pseudo-FKs
// and "1-N" for real foreign keys.
func dependencyType(fk model.ForeignKey) string {
	if fk.Pseudo {
		return "constraint"
	}
	return "1-N"
}
