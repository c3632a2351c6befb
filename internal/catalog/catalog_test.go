package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/relsubset/subsetter/internal/config"
	"github.com/relsubset/subsetter/internal/dialect"
)

func TestBuildModel_WiresForeignKeysAndChildEdges(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT TABLE_NAME FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("users").AddRow("orders"))

	// users: primary key, columns, no FKs
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.COLUMNS").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id").AddRow("name"))
	mock.ExpectQuery("SELECT COLUMN_NAME, REFERENCED_TABLE_SCHEMA").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME"}))

	// orders: primary key, columns, one FK to users
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("app", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.COLUMNS").
		WithArgs("app", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id").AddRow("user_id"))
	mock.ExpectQuery("SELECT COLUMN_NAME, REFERENCED_TABLE_SCHEMA").
		WithArgs("app", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME"}).
			AddRow("user_id", "app", "users", "id", "fk_orders_users"))

	in := New(db, dialect.MySQL{})
	tables, err := in.BuildModel(context.Background(), []string{"app"}, config.SelectionConfig{}, nil)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	users := tables["app.users"]
	orders := tables["app.orders"]
	if users == nil || orders == nil {
		t.Fatal("expected both users and orders in the model")
	}
	if len(orders.FKs) != 1 || orders.FKs[0].ReferredTable != "users" {
		t.Fatalf("expected orders to have one FK to users, got %+v", orders.FKs)
	}
	if len(users.ChildFKs) != 1 || users.ChildFKs[0].ConstrainedTable != "orders" {
		t.Fatalf("expected users to have a mirrored ChildFK from orders, got %+v", users.ChildFKs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBuildModel_DanglingRealFKIsSchemaMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT TABLE_NAME FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("orders"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("app", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.COLUMNS").
		WithArgs("app", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id").AddRow("user_id"))
	mock.ExpectQuery("SELECT COLUMN_NAME, REFERENCED_TABLE_SCHEMA").
		WithArgs("app", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME"}).
			AddRow("user_id", "app", "users", "id", "fk_orders_users"))

	in := New(db, dialect.MySQL{})
	_, err = in.BuildModel(context.Background(), []string{"app"}, config.SelectionConfig{}, nil)
	if err == nil {
		t.Fatal("expected a schema mismatch error when an FK's referred table is missing from the model")
	}
	if _, ok := err.(*ErrSchemaMismatch); !ok {
		t.Fatalf("expected *ErrSchemaMismatch, got %T", err)
	}
}

func TestBuildModel_PseudoEdgeAllowedToDangle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT TABLE_NAME FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("audit_log"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("app", "audit_log").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.COLUMNS").
		WithArgs("app", "audit_log").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id").AddRow("created_by"))
	mock.ExpectQuery("SELECT COLUMN_NAME, REFERENCED_TABLE_SCHEMA").
		WithArgs("app", "audit_log").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME"}))

	constraints := map[string][]config.Edge{
		"audit_log": {{
			ReferredSchema: "app", ReferredTable: "users",
			ReferredColumns: []string{"id"}, ConstrainedColumns: []string{"created_by"},
		}},
	}

	in := New(db, dialect.MySQL{})
	tables, err := in.BuildModel(context.Background(), []string{"app"}, config.SelectionConfig{}, constraints)
	if err != nil {
		t.Fatalf("BuildModel should tolerate a dangling pseudo-edge, got: %v", err)
	}
	audit := tables["app.audit_log"]
	if len(audit.Constraints) != 1 || !audit.Constraints[0].Pseudo {
		t.Fatalf("expected audit_log to carry one pseudo constraint, got %+v", audit.Constraints)
	}
}

func TestBuildModel_SelectionFilterExcludesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT TABLE_NAME FROM information_schema.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("users").AddRow("secrets"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.COLUMNS").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("SELECT COLUMN_NAME, REFERENCED_TABLE_SCHEMA").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME"}))

	in := New(db, dialect.MySQL{})
	tables, err := in.BuildModel(context.Background(), []string{"app"}, config.SelectionConfig{ExcludeTables: []string{"secrets"}}, nil)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	if _, ok := tables["app.secrets"]; ok {
		t.Error("expected secrets to be excluded from the model")
	}
	if _, ok := tables["app.users"]; !ok {
		t.Error("expected users to remain in the model")
	}
}

func TestSchemasFor_IncludesDatabaseAndConfiguredSchemas(t *testing.T) {
	cfg := &config.Config{Selection: config.SelectionConfig{Schemas: []string{"reporting", "app"}}}
	side := &config.DatabaseConfig{Database: "app"}

	schemas := SchemasFor(cfg, side)
	if len(schemas) != 2 {
		t.Fatalf("expected deduplicated [app reporting], got %v", schemas)
	}
	if schemas[0] != "app" || schemas[1] != "reporting" {
		t.Errorf("expected the connection's own database first, got %v", schemas)
	}
}
