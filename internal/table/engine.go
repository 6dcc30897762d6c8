package table

import (
	"context"

	"github.com/driftdb/driftdb/pkg/types"
)

// Engine bundles the table components behind the operation set consumed by
// external callers (HTTP API, snapshot tooling, tests).
type Engine struct {
	store    *Store
	planner  *Planner
	records  *Records
	ledger   *Ledger
	rollback *RollbackExecutor
}

// NewEngine opens the database at dbPath and wires up all components.
func NewEngine(dbPath string) (*Engine, error) {
	store, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	ledger := NewLedger(store)
	records := NewRecords(store, ledger)
	return &Engine{
		store:    store,
		planner:  NewPlanner(store),
		records:  records,
		ledger:   ledger,
		rollback: NewRollbackExecutor(store, records, ledger),
	}, nil
}

// Store exposes the underlying store for snapshot tooling.
func (e *Engine) Store() *Store { return e.store }

// EnsureTable creates the data table if absent.
func (e *Engine) EnsureTable(ctx context.Context, table string) error {
	return e.store.EnsureTable(ctx, table)
}

// ListColumns reads the live schema.
func (e *Engine) ListColumns(ctx context.Context, table string) (*types.TableSchema, error) {
	return e.store.ListColumns(ctx, table)
}

// DefinitionSQL returns the raw CREATE TABLE text for display only.
func (e *Engine) DefinitionSQL(ctx context.Context, table string) (*string, error) {
	return e.store.DefinitionSQL(ctx, table)
}

// AddColumn appends a column via the additive fast path.
func (e *Engine) AddColumn(ctx context.Context, table, name, colType string, defaultValue *string) error {
	return e.planner.AddColumn(ctx, table, name, colType, defaultValue)
}

// DropColumn removes a column through a rebuild.
func (e *Engine) DropColumn(ctx context.Context, table, name string) error {
	return e.planner.DropColumn(ctx, table, name)
}

// ModifyColumn renames and/or retypes a column through a rebuild.
func (e *Engine) ModifyColumn(ctx context.Context, table, oldName, newName, newType string, newDefault *string) error {
	return e.planner.ModifyColumn(ctx, table, oldName, newName, newType, newDefault)
}

// ExecRaw runs a privileged operator-issued statement.
func (e *Engine) ExecRaw(ctx context.Context, actor, stmt string) error {
	return e.store.ExecRaw(ctx, actor, stmt)
}

// CreateRecord inserts a row and logs the supplied fields.
func (e *Engine) CreateRecord(ctx context.Context, table string, values map[string]types.Value, actor string) (int64, error) {
	return e.records.Create(ctx, table, values, actor)
}

// GetRecord reads one row against the current schema.
func (e *Engine) GetRecord(ctx context.Context, table string, id int64) (*types.Record, error) {
	return e.records.Get(ctx, table, id)
}

// ListRecords lists rows, optionally filtered by substring over text columns.
func (e *Engine) ListRecords(ctx context.Context, table, filter string, limit int) ([]types.Record, error) {
	return e.records.List(ctx, table, filter, limit)
}

// UpdateRecord applies field changes and logs each differing field.
func (e *Engine) UpdateRecord(ctx context.Context, table string, id int64, values map[string]types.Value, actor string) error {
	return e.records.Update(ctx, table, id, values, actor)
}

// DeleteRecord removes a row. Deletion is not versioned.
func (e *Engine) DeleteRecord(ctx context.Context, table string, id int64) error {
	return e.records.Delete(ctx, table, id)
}

// ListVersions lists ledger entries.
func (e *Engine) ListVersions(ctx context.Context, recordID *int64, limit int, sortField, order string) ([]types.VersionEntry, error) {
	return e.ledger.List(ctx, recordID, limit, sortField, order)
}

// GetVersion retrieves a single ledger entry, or nil when absent.
func (e *Engine) GetVersion(ctx context.Context, id uint64) (*types.VersionEntry, error) {
	return e.ledger.GetByID(ctx, id)
}

// Rollback applies a ledger entry's old value and logs the inversion.
func (e *Engine) Rollback(ctx context.Context, table string, versionID uint64, actor string) (*RollbackResult, error) {
	return e.rollback.Rollback(ctx, table, versionID, actor)
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}
