package table

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

// RollbackState tracks a rollback request through its lifecycle:
// Requested -> Validated -> Applied -> Logged, or Requested -> Rejected.
type RollbackState string

const (
	RollbackRequested RollbackState = "requested"
	RollbackValidated RollbackState = "validated"
	RollbackApplied   RollbackState = "applied"
	RollbackLogged    RollbackState = "logged"
	RollbackRejected  RollbackState = "rejected"
)

// RollbackResult reports the terminal state of a rollback and the ledger
// entry it targeted.
type RollbackResult struct {
	State RollbackState       `json:"state"`
	Entry *types.VersionEntry `json:"entry,omitempty"`
}

// RollbackExecutor inverts a ledger entry against the current schema and
// records the inversion as a new forward entry. History stays append-only,
// so every rollback is itself rollback-able.
type RollbackExecutor struct {
	store   *Store
	records *Records
	ledger  *Ledger
}

// NewRollbackExecutor creates a rollback executor.
func NewRollbackExecutor(store *Store, records *Records, ledger *Ledger) *RollbackExecutor {
	return &RollbackExecutor{store: store, records: records, ledger: ledger}
}

// Rollback applies versionID's old value to the live record. Validation and
// application run in one transaction, so a rejected rollback mutates
// nothing.
func (e *RollbackExecutor) Rollback(ctx context.Context, tableName string, versionID uint64, actor string) (*RollbackResult, error) {
	table := SanitizeIdentifier(tableName)
	result := &RollbackResult{State: RollbackRequested}

	err := e.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		entry, err := e.ledger.getByIDTx(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if entry == nil {
			result.State = RollbackRejected
			return errors.NewRollbackError(errors.CodeVersionNotFound,
				fmt.Sprintf("version %d not found", versionID))
		}
		result.Entry = entry

		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return err
		}
		if _, exists := schema.Column(entry.FieldName); !exists {
			result.State = RollbackRejected
			return errors.NewRollbackError(errors.CodeFieldNoLongerExists,
				fmt.Sprintf("field %s no longer exists in the current schema", entry.FieldName))
		}
		result.State = RollbackValidated

		before, err := e.records.setFieldTx(ctx, tx, schema, entry.RecordID, entry.FieldName, entry.OldValue)
		if err != nil {
			return err
		}
		result.State = RollbackApplied

		if !types.CanonicalEqual(before, entry.NewValue) {
			log.Printf("[WARN] table: rolling back version %d over a later change to %s on record %d",
				versionID, entry.FieldName, entry.RecordID)
		}

		// The inversion is a forward change: old is the entry's new value,
		// new is the entry's old value.
		inversion := []types.FieldDiff{{
			Field: entry.FieldName,
			Old:   entry.NewValue,
			New:   entry.OldValue,
		}}
		if err := e.ledger.recordTx(ctx, tx, entry.RecordID, inversion, actor); err != nil {
			return err
		}
		result.State = RollbackLogged
		return nil
	})
	if err != nil {
		if result.State != RollbackRejected {
			result.State = RollbackRejected
		}
		return result, err
	}

	return result, nil
}
