package table

import (
	"context"
	"testing"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

// newProductEngine extends the base fixture with the columns most record
// tests need.
func newProductEngine(t *testing.T) *Engine {
	t.Helper()
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddColumn(ctx, "product", "name", "TEXT", nil); err != nil {
		t.Fatalf("failed to add name: %v", err)
	}
	if err := eng.AddColumn(ctx, "product", "stock", "INTEGER", nil); err != nil {
		t.Fatalf("failed to add stock: %v", err)
	}
	if err := eng.AddColumn(ctx, "product", "price_cents", "INTEGER", nil); err != nil {
		t.Fatalf("failed to add price_cents: %v", err)
	}
	return eng
}

func canonical(t *testing.T, record *types.Record, field string) string {
	t.Helper()
	c := record.Fields[field].Canonical()
	if c == nil {
		t.Fatalf("field %s is NULL", field)
	}
	return *c
}

func TestRecords_CreateAndGet(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name":  types.TextValue("widget"),
		"stock": types.IntValue(5),
	}, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero record id")
	}

	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if record.ID != id {
		t.Errorf("id mismatch: got %d, want %d", record.ID, id)
	}
	if got := canonical(t, record, "name"); got != "widget" {
		t.Errorf("name mismatch: got %s, want widget", got)
	}
	if got := canonical(t, record, "stock"); got != "5" {
		t.Errorf("stock mismatch: got %s, want 5", got)
	}
	if !record.Fields["price_cents"].IsNull() {
		t.Errorf("unset column should be NULL, got %v", record.Fields["price_cents"].Canonical())
	}
}

func TestRecords_CreateLogsSuppliedFields(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name":  types.TextValue("widget"),
		"stock": types.IntValue(5),
	}, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	entries, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one entry per supplied field, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.OldValue != nil {
			t.Errorf("creation entries carry a nil old value, got %v for %s", *entry.OldValue, entry.FieldName)
		}
		if entry.ChangedBy != "alice" {
			t.Errorf("changed_by mismatch: got %s, want alice", entry.ChangedBy)
		}
	}
	if entries[0].ChangedAt != entries[1].ChangedAt {
		t.Error("entries from one call should share a timestamp")
	}
}

func TestRecords_CreateZeroFillsRequiredColumns(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	// Required columns without defaults only enter through the raw escape
	// hatch; creation backfills them instead of failing the INSERT.
	if err := eng.ExecRaw(ctx, "operator", `ALTER TABLE "product" ADD COLUMN sku TEXT NOT NULL DEFAULT ''`); err != nil {
		t.Fatalf("failed to add sku: %v", err)
	}
	if err := eng.ExecRaw(ctx, "operator", `CREATE TABLE "bare" (id INTEGER PRIMARY KEY AUTOINCREMENT, qty INTEGER NOT NULL)`); err != nil {
		t.Fatalf("failed to create bare table: %v", err)
	}

	id, err := eng.CreateRecord(ctx, "bare", nil, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}
	record, err := eng.GetRecord(ctx, "bare", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got := canonical(t, record, "qty"); got != "0" {
		t.Errorf("required integer should zero-fill, got %s", got)
	}

	// Backfilled columns were not supplied, so they are not logged.
	entries, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("backfill must not emit ledger entries, got %d", len(entries))
	}
}

func TestRecords_CreateRejectsUnknownField(t *testing.T) {
	eng := newProductEngine(t)

	_, err := eng.CreateRecord(context.Background(), "product", map[string]types.Value{
		"nope": types.TextValue("x"),
	}, "alice")
	if !errors.HasCode(err, errors.CodeColumnNotFound) {
		t.Errorf("expected COLUMN_NOT_FOUND, got %v", err)
	}
}

func TestRecords_GetMissing(t *testing.T) {
	eng := newProductEngine(t)

	_, err := eng.GetRecord(context.Background(), "product", 999)
	if !errors.HasCode(err, errors.CodeRecordNotFound) {
		t.Errorf("expected RECORD_NOT_FOUND, got %v", err)
	}
}

func TestRecords_UpdateLogsOnlyChangedFields(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name":  types.TextValue("widget"),
		"stock": types.IntValue(5),
	}, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	// stock is written with the same value; only name actually changes.
	err = eng.UpdateRecord(ctx, "product", id, map[string]types.Value{
		"name":  types.TextValue("gadget"),
		"stock": types.IntValue(5),
	}, "bob")
	if err != nil {
		t.Fatalf("failed to update record: %v", err)
	}

	entries, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 2 creation entries + 1 update entry, got %d", len(entries))
	}
	last := entries[2]
	if last.FieldName != "name" {
		t.Errorf("logged field mismatch: got %s, want name", last.FieldName)
	}
	if last.OldValue == nil || *last.OldValue != "widget" {
		t.Errorf("old value mismatch: got %v, want widget", last.OldValue)
	}
	if last.NewValue == nil || *last.NewValue != "gadget" {
		t.Errorf("new value mismatch: got %v, want gadget", last.NewValue)
	}
	if last.ChangedBy != "bob" {
		t.Errorf("changed_by mismatch: got %s, want bob", last.ChangedBy)
	}
}

func TestRecords_UpdateRejectsPrimaryKey(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", nil, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	err = eng.UpdateRecord(ctx, "product", id, map[string]types.Value{
		"id": types.IntValue(99),
	}, "alice")
	if !errors.HasCode(err, errors.CodePrimaryKeyImmutable) {
		t.Errorf("expected PRIMARY_KEY_IMMUTABLE, got %v", err)
	}
}

func TestRecords_UpdateMissingRecord(t *testing.T) {
	eng := newProductEngine(t)

	err := eng.UpdateRecord(context.Background(), "product", 999, map[string]types.Value{
		"name": types.TextValue("x"),
	}, "alice")
	if !errors.HasCode(err, errors.CodeRecordNotFound) {
		t.Errorf("expected RECORD_NOT_FOUND, got %v", err)
	}
}

func TestRecords_UpdateNullRoundTrip(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name": types.TextValue(""),
	}, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	// Empty string and NULL are distinct values; the transition is a change.
	if err := eng.UpdateRecord(ctx, "product", id, map[string]types.Value{
		"name": types.NullValue(),
	}, "alice"); err != nil {
		t.Fatalf("failed to update record: %v", err)
	}

	entries, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	last := entries[1]
	if last.OldValue == nil || *last.OldValue != "" {
		t.Errorf("old value should be the empty string, got %v", last.OldValue)
	}
	if last.NewValue != nil {
		t.Errorf("new value should be NULL, got %v", *last.NewValue)
	}
}

func TestRecords_DeleteIsUnversioned(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"name": types.TextValue("widget"),
	}, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	before, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}

	if err := eng.DeleteRecord(ctx, "product", id); err != nil {
		t.Fatalf("failed to delete record: %v", err)
	}
	if _, err := eng.GetRecord(ctx, "product", id); !errors.HasCode(err, errors.CodeRecordNotFound) {
		t.Errorf("expected RECORD_NOT_FOUND after delete, got %v", err)
	}

	after, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("deletion must not touch the ledger: %d entries before, %d after", len(before), len(after))
	}
}

func TestRecords_DeleteMissing(t *testing.T) {
	eng := newProductEngine(t)

	err := eng.DeleteRecord(context.Background(), "product", 999)
	if !errors.HasCode(err, errors.CodeRecordNotFound) {
		t.Errorf("expected RECORD_NOT_FOUND, got %v", err)
	}
}

func TestRecords_ListFilterMatchesTextColumns(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	for _, name := range []string{"red widget", "blue widget", "gizmo"} {
		if _, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
			"name": types.TextValue(name),
		}, "alice"); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	records, err := eng.ListRecords(ctx, "product", "widget", 10)
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(records))
	}
	// Listing is primary key descending: newest first.
	if got := canonical(t, &records[0], "name"); got != "blue widget" {
		t.Errorf("order mismatch: got %s first, want blue widget", got)
	}

	all, err := eng.ListRecords(ctx, "product", "", 10)
	if err != nil {
		t.Fatalf("failed to list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records, got %d", len(all))
	}

	capped, err := eng.ListRecords(ctx, "product", "", 2)
	if err != nil {
		t.Fatalf("failed to list capped: %v", err)
	}
	if len(capped) != 2 {
		t.Errorf("limit not applied: got %d records", len(capped))
	}
}

func TestRecords_IntegerCoercion(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"stock": types.TextValue(" 12 "),
	}, "alice")
	if err != nil {
		t.Fatalf("numeric string should coerce: %v", err)
	}
	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got := canonical(t, record, "stock"); got != "12" {
		t.Errorf("coerced value mismatch: got %s, want 12", got)
	}

	_, err = eng.CreateRecord(ctx, "product", map[string]types.Value{
		"stock": types.TextValue("many"),
	}, "alice")
	if !errors.HasCode(err, errors.CodeTypeCoercionError) {
		t.Errorf("expected TYPE_COERCION_ERROR, got %v", err)
	}

	_, err = eng.CreateRecord(ctx, "product", map[string]types.Value{
		"stock": types.RealValue(1.5),
	}, "alice")
	if !errors.HasCode(err, errors.CodeTypeCoercionError) {
		t.Errorf("expected TYPE_COERCION_ERROR for fractional input, got %v", err)
	}
}

func TestRecords_MoneyColumnStoresCents(t *testing.T) {
	eng := newProductEngine(t)
	ctx := context.Background()

	id, err := eng.CreateRecord(ctx, "product", map[string]types.Value{
		"price_cents": types.TextValue("12.50"),
	}, "alice")
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	record, err := eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got := canonical(t, record, "price_cents"); got != "1250" {
		t.Errorf("stored cents mismatch: got %s, want 1250", got)
	}

	// Whole integers are whole currency units, floats round to cents.
	if err := eng.UpdateRecord(ctx, "product", id, map[string]types.Value{
		"price_cents": types.IntValue(20),
	}, "alice"); err != nil {
		t.Fatalf("failed to update with integer amount: %v", err)
	}
	record, err = eng.GetRecord(ctx, "product", id)
	if err != nil {
		t.Fatalf("failed to get record: %v", err)
	}
	if got := canonical(t, record, "price_cents"); got != "2000" {
		t.Errorf("integer amount mismatch: got %s, want 2000", got)
	}

	entries, err := eng.ListVersions(ctx, &id, 10, "id", "asc")
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	last := entries[len(entries)-1]
	if last.OldValue == nil || *last.OldValue != "1250" {
		t.Errorf("ledger old value mismatch: got %v, want 1250", last.OldValue)
	}
	if last.NewValue == nil || *last.NewValue != "2000" {
		t.Errorf("ledger new value mismatch: got %v, want 2000", last.NewValue)
	}
}
