package table

import (
	"context"
	"testing"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

func TestPlanner_AddColumn(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	def := "widget"
	if err := eng.AddColumn(ctx, "product", "name", "text", &def); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}

	schema, err := eng.ListColumns(ctx, "product")
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	col, ok := schema.Column("name")
	if !ok {
		t.Fatalf("name column missing, got %v", schema.ColumnNames())
	}
	if col.Type != types.TypeText {
		t.Errorf("type mismatch: got %s, want TEXT", col.Type)
	}
	if !col.Nullable {
		t.Error("added columns must be nullable")
	}
	if col.Default == nil || *col.Default != "widget" {
		t.Errorf("default mismatch: got %v, want widget", col.Default)
	}
}

func TestPlanner_AddColumnExistingRowsReadDefault(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", nil, "tester")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	def := "uncategorized"
	if err := eng.AddColumn(ctx, "product", "category", "TEXT", &def); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}

	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	got := record.Fields["category"].Canonical()
	if got == nil || *got != "uncategorized" {
		t.Errorf("existing row should read the new default, got %v", got)
	}
}

func TestPlanner_AddColumnRejectsDuplicate(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "name", "TEXT", nil); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}
	err := eng.AddColumn(ctx, "product", "name", "TEXT", nil)
	if !errors.HasCode(err, errors.CodeColumnExists) {
		t.Errorf("expected COLUMN_EXISTS, got %v", err)
	}
}

func TestPlanner_AddColumnRejectsUnknownType(t *testing.T) {
	eng := newTestEngine(t)

	err := eng.AddColumn(context.Background(), "product", "name", "VARCHAR(40)", nil)
	if !errors.HasCode(err, errors.CodeTypeInvalid) {
		t.Errorf("expected TYPE_INVALID, got %v", err)
	}
}

func TestPlanner_AddColumnSanitizesNames(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "unit price!", "REAL", nil); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}

	schema, err := eng.ListColumns(ctx, "product")
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	if _, ok := schema.Column("unit_price_"); !ok {
		t.Errorf("expected sanitized column unit_price_, got %v", schema.ColumnNames())
	}
}

func TestPlanner_DropColumnPreservesOthers(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "name", "TEXT", nil); err != nil {
		t.Fatalf("failed to add name: %v", err)
	}
	if err := eng.AddColumn(ctx, "product", "stock", "INTEGER", nil); err != nil {
		t.Fatalf("failed to add stock: %v", err)
	}

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name":  types.TextValue("widget"),
		"stock": types.IntValue(7),
	}, "tester")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	if err := eng.DropColumn(ctx, "product", "stock"); err != nil {
		t.Fatalf("failed to drop column: %v", err)
	}

	schema, err := eng.ListColumns(ctx, "product")
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	if _, ok := schema.Column("stock"); ok {
		t.Error("stock column should be gone")
	}

	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record after drop: %v", err)
	}
	name := record.Fields["name"].Canonical()
	if name == nil || *name != "widget" {
		t.Errorf("surviving column lost its value: got %v", name)
	}
}

func TestPlanner_DropColumnRejectsPrimaryKey(t *testing.T) {
	eng := newTestEngine(t)

	err := eng.DropColumn(context.Background(), "product", "id")
	if !errors.HasCode(err, errors.CodePrimaryKeyImmutable) {
		t.Errorf("expected PRIMARY_KEY_IMMUTABLE, got %v", err)
	}
}

func TestPlanner_DropColumnRejectsMissing(t *testing.T) {
	eng := newTestEngine(t)

	err := eng.DropColumn(context.Background(), "product", "nope")
	if !errors.HasCode(err, errors.CodeColumnNotFound) {
		t.Errorf("expected COLUMN_NOT_FOUND, got %v", err)
	}
}

func TestPlanner_ModifyColumnRetypeKeepsData(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "stock", "TEXT", nil); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}
	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"stock": types.TextValue("42"),
	}, "tester")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	// Same name, new type: the by-name copy keeps the value.
	if err := eng.ModifyColumn(ctx, "product", "stock", "", "INTEGER", nil); err != nil {
		t.Fatalf("failed to modify column: %v", err)
	}

	schema, err := eng.ListColumns(ctx, "product")
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	col, ok := schema.Column("stock")
	if !ok {
		t.Fatalf("stock column missing after modify, got %v", schema.ColumnNames())
	}
	if col.Type != types.TypeInteger {
		t.Errorf("type mismatch: got %s, want INTEGER", col.Type)
	}

	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	got := record.Fields["stock"].Canonical()
	if got == nil || *got != "42" {
		t.Errorf("value lost on retype: got %v", got)
	}
}

func TestPlanner_ModifyColumnRenameDropsData(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "name", "TEXT", nil); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}
	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name": types.TextValue("widget"),
	}, "tester")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	// Rename copies only the by-name intersection, so the new name is empty.
	if err := eng.ModifyColumn(ctx, "product", "name", "title", "TEXT", nil); err != nil {
		t.Fatalf("failed to rename column: %v", err)
	}

	schema, err := eng.ListColumns(ctx, "product")
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	if _, ok := schema.Column("name"); ok {
		t.Error("old column name should be gone")
	}
	if _, ok := schema.Column("title"); !ok {
		t.Fatalf("new column name missing, got %v", schema.ColumnNames())
	}

	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if !record.Fields["title"].IsNull() {
		t.Errorf("renamed column should start empty, got %v", record.Fields["title"].Canonical())
	}
}

func TestPlanner_ModifyColumnRejectsRenameCollision(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "name", "TEXT", nil); err != nil {
		t.Fatalf("failed to add name: %v", err)
	}
	if err := eng.AddColumn(ctx, "product", "title", "TEXT", nil); err != nil {
		t.Fatalf("failed to add title: %v", err)
	}

	err := eng.ModifyColumn(ctx, "product", "name", "title", "TEXT", nil)
	if !errors.HasCode(err, errors.CodeColumnExists) {
		t.Errorf("expected COLUMN_EXISTS, got %v", err)
	}
}

func TestPlanner_RebuildFailureLeavesTableIntact(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "name", "TEXT", nil); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}
	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name": types.TextValue("widget"),
	}, "tester")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	// Occupy the shadow table name so the rebuild fails mid-flight.
	if err := eng.ExecRaw(ctx, "tester", `CREATE TABLE "product__rebuild" (x INTEGER)`); err != nil {
		t.Fatalf("failed to plant shadow table: %v", err)
	}

	err = eng.DropColumn(ctx, "product", "name")
	if err == nil {
		t.Fatal("expected rebuild to fail")
	}
	if errors.GetCategory(err) != errors.ErrCategoryMigration {
		t.Errorf("expected a migration error, got %v", err)
	}

	// The failed rebuild rolled back: schema and data are untouched.
	schema, err := eng.ListColumns(ctx, "product")
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	if _, ok := schema.Column("name"); !ok {
		t.Errorf("column lost by failed rebuild, got %v", schema.ColumnNames())
	}
	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record after failed rebuild: %v", err)
	}
	name := record.Fields["name"].Canonical()
	if name == nil || *name != "widget" {
		t.Errorf("data lost by failed rebuild: got %v", name)
	}
}
