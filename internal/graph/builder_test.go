package graph

import (
	"testing"

	"github.com/relsubset/subsetter/internal/model"
)

func tbl(schema, name string, pk []string, fks ...model.ForeignKey) *model.TableDescriptor {
	return &model.TableDescriptor{Schema: schema, Name: name, PK: pk, FKs: fks}
}

func fk(referredSchema, referredTable string, constrained, referred []string) model.ForeignKey {
	return model.ForeignKey{
		ReferredSchema:     referredSchema,
		ReferredTable:      referredTable,
		ReferredColumns:    referred,
		ConstrainedColumns: constrained,
	}
}

func TestNewSchemaGraph_Empty(t *testing.T) {
	g := NewSchemaGraph()
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
	if g.EdgeCount() != 0 {
		t.Errorf("expected no edges, got %d", g.EdgeCount())
	}
}

func TestBuildFromModel_SingleRelation(t *testing.T) {
	tables := map[string]*model.TableDescriptor{
		"public.users": tbl("public", "users", []string{"id"}),
		"public.orders": tbl("public", "orders", []string{"id"},
			fk("public", "users", []string{"user_id"}, []string{"id"})),
	}

	g := BuildFromModel(tables)

	if !g.HasNode("public.users") {
		t.Error("expected node public.users")
	}
	if !g.HasNode("public.orders") {
		t.Error("expected node public.orders")
	}

	children := g.GetChildren("public.users")
	if len(children) != 1 || children[0] != "public.orders" {
		t.Errorf("expected users->orders edge, got %v", children)
	}

	meta := g.GetEdgeMeta("public.users", "public.orders")
	if meta == nil {
		t.Fatal("expected edge metadata")
	}
	if meta.ForeignKey != "user_id" {
		t.Errorf("expected ForeignKey user_id, got %q", meta.ForeignKey)
	}
	if meta.ReferenceKey != "id" {
		t.Errorf("expected ReferenceKey id, got %q", meta.ReferenceKey)
	}
	if meta.DependencyType != "1-N" {
		t.Errorf("expected DependencyType 1-N, got %q", meta.DependencyType)
	}
}

func TestBuildFromModel_MultipleChildren(t *testing.T) {
	tables := map[string]*model.TableDescriptor{
		"public.users": tbl("public", "users", []string{"id"}),
		"public.orders": tbl("public", "orders", []string{"id"},
			fk("public", "users", []string{"user_id"}, []string{"id"})),
		"public.profiles": tbl("public", "profiles", []string{"id"},
			fk("public", "users", []string{"user_id"}, []string{"id"})),
		"public.sessions": tbl("public", "sessions", []string{"id"},
			fk("public", "users", []string{"user_id"}, []string{"id"})),
	}

	g := BuildFromModel(tables)

	if g.NodeCount() != 4 {
		t.Errorf("expected 4 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}

	children := g.GetChildren("public.users")
	if len(children) != 3 {
		t.Errorf("expected 3 children for users, got %d: %v", len(children), children)
	}
}

func TestBuildFromModel_IsRoot(t *testing.T) {
	tables := map[string]*model.TableDescriptor{
		"public.users": tbl("public", "users", []string{"id"}),
		"public.orders": tbl("public", "orders", []string{"id"},
			fk("public", "users", []string{"user_id"}, []string{"id"})),
	}

	g := BuildFromModel(tables)

	usersNode := g.GetNode("public.users")
	if usersNode == nil {
		t.Fatal("users node is nil")
	}
	if !usersNode.IsRoot {
		t.Error("expected users to be marked root (no parents)")
	}

	ordersNode := g.GetNode("public.orders")
	if ordersNode == nil {
		t.Fatal("orders node is nil")
	}
	if ordersNode.IsRoot {
		t.Error("expected orders to not be root (has a parent)")
	}
}

func TestBuildFromModel_DanglingReference(t *testing.T) {
	// orders references a table not present in the selected set; BuildFromModel
	// should still record it as a node so the dangling reference stays in the graph.
	tables := map[string]*model.TableDescriptor{
		"public.orders": tbl("public", "orders", []string{"id"},
			fk("public", "users", []string{"user_id"}, []string{"id"})),
	}

	g := BuildFromModel(tables)

	if !g.HasNode("public.users") {
		t.Error("expected dangling referent public.users to be recorded as a node")
	}
	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes (orders + dangling users), got %d", g.NodeCount())
	}
}

func TestBuildFromModel_PseudoConstraintDependencyType(t *testing.T) {
	pseudo := fk("public", "users", []string{"created_by"}, []string{"id"})
	pseudo.Pseudo = true

	tables := map[string]*model.TableDescriptor{
		"public.users": tbl("public", "users", []string{"id"}),
		"public.audit_log": {
			Schema:      "public",
			Name:        "audit_log",
			PK:          []string{"id"},
			Constraints: []model.ForeignKey{pseudo},
		},
	}

	g := BuildFromModel(tables)

	meta := g.GetEdgeMeta("public.users", "public.audit_log")
	if meta == nil {
		t.Fatal("expected edge metadata for pseudo constraint")
	}
	if meta.DependencyType != "constraint" {
		t.Errorf("expected DependencyType constraint, got %q", meta.DependencyType)
	}
}

func TestBuildFromModel_SetsPK(t *testing.T) {
	tables := map[string]*model.TableDescriptor{
		"public.order_items": tbl("public", "order_items", []string{"order_id", "line_no"}),
	}

	g := BuildFromModel(tables)

	if pk := g.GetPK("public.order_items"); pk != "order_id,line_no" {
		t.Errorf("expected joined composite PK, got %q", pk)
	}
}

func TestBuildFromModel_NoTables(t *testing.T) {
	g := BuildFromModel(map[string]*model.TableDescriptor{})
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestBuildFromModel_SelfReference(t *testing.T) {
	tables := map[string]*model.TableDescriptor{
		"public.categories": tbl("public", "categories", []string{"id"},
			fk("public", "categories", []string{"parent_id"}, []string{"id"})),
	}

	g := BuildFromModel(tables)

	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node for self-referencing table, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 self-edge, got %d", g.EdgeCount())
	}
	if !g.HasCycle() {
		t.Error("expected a self-reference to be detected as a cycle")
	}
}
