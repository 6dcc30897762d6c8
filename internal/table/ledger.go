package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

// changedAtLayout is the timestamp format written to the ledger. The
// fractional second is zero-padded to full width so the TEXT column's
// lexicographic order matches chronological order; RFC3339Nano trims
// trailing zeros, which would sort "...00.5Z" after "...00.51Z".
const changedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ledger is the append-only store of per-field change events. Entries are
// never mutated or deleted; rollback appends a forward entry instead.
type Ledger struct {
	store *Store
}

// NewLedger creates a ledger over the given store.
func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store}
}

// sortFields whitelists the ledger attributes a listing may sort by.
// Anything else is rejected before it can reach SQL text.
var sortFields = map[string]string{
	"id":         "id",
	"record_id":  "record_id",
	"field_name": "field_name",
	"changed_at": "changed_at",
	"changed_by": "changed_by",
}

// Record appends one entry per diff in its own transaction. No-op on empty
// input. All entries of one call share a timestamp; ids are assigned by the
// database and strictly increasing.
func (l *Ledger) Record(ctx context.Context, recordID int64, diffs []types.FieldDiff, actor string) error {
	if len(diffs) == 0 {
		return nil
	}
	return l.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		return l.recordTx(ctx, tx, recordID, diffs, actor)
	})
}

// recordTx appends entries inside the caller's transaction, so a record
// write and its ledger entries commit or abort together.
func (l *Ledger) recordTx(ctx context.Context, tx *sql.Tx, recordID int64, diffs []types.FieldDiff, actor string) error {
	if len(diffs) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(changedAtLayout)
	for _, diff := range diffs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO field_versions (record_id, field_name, old_value, new_value, changed_at, changed_by)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			recordID, diff.Field, diff.Old, diff.New, now, actor,
		)
		if err != nil {
			return fmt.Errorf("table: failed to insert version entry: %w", err)
		}
	}
	return nil
}

// List returns ledger entries, optionally filtered by record, sorted by one
// of the entry's own attributes, and truncated to limit. An unbounded
// listing is not supported: callers must always supply a positive limit.
func (l *Ledger) List(ctx context.Context, recordID *int64, limit int, sortField, order string) ([]types.VersionEntry, error) {
	if limit <= 0 {
		return nil, errors.NewLedgerError(errors.CodeLimitRequired, "a positive limit is required")
	}

	column, ok := sortFields[sortField]
	if !ok {
		return nil, errors.NewLedgerError(errors.CodeSortFieldInvalid,
			fmt.Sprintf("cannot sort by %q", sortField))
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}

	query := `SELECT id, record_id, field_name, old_value, new_value, changed_at, changed_by
		FROM field_versions`
	var args []interface{}
	if recordID != nil {
		query += " WHERE record_id = ?"
		args = append(args, *recordID)
	}
	orderBy := fmt.Sprintf("%s %s", column, direction)
	if column != "id" {
		// Entries written in one batch share a timestamp; id breaks ties
		// deterministically.
		orderBy = fmt.Sprintf("%s, id %s", orderBy, direction)
	}
	query += " ORDER BY " + orderBy + " LIMIT ?"
	args = append(args, limit)

	rows, err := l.store.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("table: failed to query version entries: %w", err)
	}
	defer rows.Close()

	var entries []types.VersionEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table: error iterating version entries: %w", err)
	}

	return entries, nil
}

// GetByID retrieves a single ledger entry, or nil when absent.
func (l *Ledger) GetByID(ctx context.Context, id uint64) (*types.VersionEntry, error) {
	row := l.store.readDB.QueryRowContext(ctx,
		`SELECT id, record_id, field_name, old_value, new_value, changed_at, changed_by
		 FROM field_versions WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// getByIDTx reads an entry on the write connection inside a transaction,
// used by the rollback executor so validation and application share a view.
func (l *Ledger) getByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*types.VersionEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, record_id, field_name, old_value, new_value, changed_at, changed_by
		 FROM field_versions WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s rowScanner) (*types.VersionEntry, error) {
	var (
		entry     types.VersionEntry
		changedAt string
	)
	err := s.Scan(&entry.ID, &entry.RecordID, &entry.FieldName,
		&entry.OldValue, &entry.NewValue, &changedAt, &entry.ChangedBy)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("table: failed to scan version entry: %w", err)
	}

	// RFC3339Nano accepts any fraction width, covering both the fixed-width
	// layout and rows written before trailing zeros were kept.
	ts, err := time.Parse(time.RFC3339Nano, changedAt)
	if err != nil {
		return nil, fmt.Errorf("table: failed to parse changed_at %q: %w", changedAt, err)
	}
	entry.ChangedAt = ts
	return &entry, nil
}
