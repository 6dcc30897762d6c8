package table

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

// Records is the schema-driven record accessor. The column set is read from
// the live database at call time, never compiled in, and a row write and its
// ledger entries always commit in one transaction.
type Records struct {
	store  *Store
	ledger *Ledger
}

// NewRecords creates a record accessor over the given store and ledger.
func NewRecords(store *Store, ledger *Ledger) *Records {
	return &Records{store: store, ledger: ledger}
}

// Create inserts a row. Columns absent from values are backfilled: a
// required column without a default gets its type-appropriate zero value;
// everything else is left to the column default or NULL. One ledger entry
// is emitted per supplied field, with a nil old value.
func (r *Records) Create(ctx context.Context, tableName string, values map[string]types.Value, actor string) (int64, error) {
	table := SanitizeIdentifier(tableName)

	var recordID int64
	err := r.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return err
		}
		if len(schema.Columns) == 0 {
			return errors.NewRecordError(errors.CodeRecordNotFound,
				fmt.Sprintf("table %s does not exist", table))
		}
		if err := checkKnownFields(schema, values); err != nil {
			return err
		}

		var (
			cols    []string
			params  []interface{}
			diffs   []types.FieldDiff
			binders []string
		)
		for _, col := range schema.Columns {
			if col.PrimaryKey {
				continue
			}
			if raw, supplied := values[col.Name]; supplied {
				v, err := coerceValue(col, raw)
				if err != nil {
					return err
				}
				cols = append(cols, quoteIdent(col.Name))
				params = append(params, v.Driver())
				binders = append(binders, "?")
				diffs = append(diffs, types.FieldDiff{Field: col.Name, Old: nil, New: v.Canonical()})
				continue
			}
			if !col.Nullable && col.Default == nil {
				zero := col.Type.ZeroValue()
				cols = append(cols, quoteIdent(col.Name))
				params = append(params, zero.Driver())
				binders = append(binders, "?")
			}
			// Otherwise the column default (or NULL) applies.
		}

		var insertSQL string
		if len(cols) == 0 {
			insertSQL = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(table))
		} else {
			insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				quoteIdent(table), strings.Join(cols, ", "), strings.Join(binders, ", "))
		}

		result, err := tx.ExecContext(ctx, insertSQL, params...)
		if err != nil {
			return fmt.Errorf("table: failed to insert record: %w", err)
		}
		recordID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("table: failed to read inserted record id: %w", err)
		}

		return r.ledger.recordTx(ctx, tx, recordID, diffs, actor)
	})
	if err != nil {
		return 0, err
	}
	return recordID, nil
}

// Get reads one row against the current schema.
func (r *Records) Get(ctx context.Context, tableName string, id int64) (*types.Record, error) {
	table := SanitizeIdentifier(tableName)

	schema, err := r.store.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	pk, err := schema.PrimaryKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectList(schema), quoteIdent(table), quoteIdent(pk.Name))
	rows, err := r.store.readDB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("table: failed to query record %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("table: failed to read record %d: %w", id, err)
		}
		return nil, errors.NewRecordError(errors.CodeRecordNotFound,
			fmt.Sprintf("record %d not found", id))
	}
	record, err := scanRecord(rows, schema, pk.Name)
	if err != nil {
		return nil, err
	}
	return record, rows.Err()
}

// List returns rows ordered by primary key descending. A non-empty filter
// restricts results to rows where any TEXT column contains the substring,
// always through parameter binding.
func (r *Records) List(ctx context.Context, tableName, filter string, limit int) ([]types.Record, error) {
	if limit <= 0 {
		return nil, errors.NewRecordError(errors.CodeLimitRequired, "a positive limit is required")
	}
	table := SanitizeIdentifier(tableName)

	schema, err := r.store.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(schema.Columns) == 0 {
		return nil, nil
	}
	pk, err := schema.PrimaryKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectList(schema), quoteIdent(table))
	var args []interface{}
	if filter != "" {
		var clauses []string
		for _, col := range schema.Columns {
			if col.Type == types.TypeText {
				clauses = append(clauses, quoteIdent(col.Name)+" LIKE ?")
				args = append(args, "%"+filter+"%")
			}
		}
		if len(clauses) > 0 {
			query += " WHERE " + strings.Join(clauses, " OR ")
		}
	}
	query += fmt.Sprintf(" ORDER BY %s DESC LIMIT ?", quoteIdent(pk.Name))
	args = append(args, limit)

	rows, err := r.store.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("table: failed to list records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		record, err := scanRecord(rows, schema, pk.Name)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table: error iterating records: %w", err)
	}
	return records, nil
}

// Update applies the supplied fields in one statement and emits a ledger
// entry for exactly those fields whose canonical string form changed.
func (r *Records) Update(ctx context.Context, tableName string, id int64, values map[string]types.Value, actor string) error {
	if len(values) == 0 {
		return nil
	}
	table := SanitizeIdentifier(tableName)

	return r.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return err
		}
		if err := checkKnownFields(schema, values); err != nil {
			return err
		}
		pk, err := schema.PrimaryKey()
		if err != nil {
			return err
		}

		current, err := readRowTx(ctx, tx, table, schema, pk.Name, id)
		if err != nil {
			return err
		}

		var (
			sets   []string
			params []interface{}
			diffs  []types.FieldDiff
		)
		// Iterate schema order so generated SQL and ledger order are stable.
		for _, col := range schema.Columns {
			raw, supplied := values[col.Name]
			if !supplied {
				continue
			}
			if col.PrimaryKey {
				return errors.NewSchemaError(errors.CodePrimaryKeyImmutable,
					fmt.Sprintf("column %s is the primary key and cannot be updated", col.Name))
			}

			v, err := coerceValue(col, raw)
			if err != nil {
				return err
			}
			sets = append(sets, quoteIdent(col.Name)+" = ?")
			params = append(params, v.Driver())

			oldCanonical := current.Fields[col.Name].Canonical()
			newCanonical := v.Canonical()
			if !types.CanonicalEqual(oldCanonical, newCanonical) {
				diffs = append(diffs, types.FieldDiff{Field: col.Name, Old: oldCanonical, New: newCanonical})
			}
		}

		updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			quoteIdent(table), strings.Join(sets, ", "), quoteIdent(pk.Name))
		params = append(params, id)
		if _, err := tx.ExecContext(ctx, updateSQL, params...); err != nil {
			return fmt.Errorf("table: failed to update record %d: %w", id, err)
		}

		return r.ledger.recordTx(ctx, tx, id, diffs, actor)
	})
}

// Delete removes a row. Deletion is not versioned: no ledger entries are
// emitted, a deliberate scope boundary inherited from the source behavior.
func (r *Records) Delete(ctx context.Context, tableName string, id int64) error {
	table := SanitizeIdentifier(tableName)

	return r.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return err
		}
		pk, err := schema.PrimaryKey()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(pk.Name)), id)
		if err != nil {
			return fmt.Errorf("table: failed to delete record %d: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("table: failed to read delete result: %w", err)
		}
		if affected == 0 {
			return errors.NewRecordError(errors.CodeRecordNotFound,
				fmt.Sprintf("record %d not found", id))
		}
		return nil
	})
}

// setFieldTx sets one field to a canonical string value inside the caller's
// transaction, applying the same coercion as a normal update. Used by the
// rollback executor.
func (r *Records) setFieldTx(ctx context.Context, tx *sql.Tx, schema *types.TableSchema, id int64, field string, canonical *string) (*string, error) {
	col, ok := schema.Column(field)
	if !ok {
		return nil, errors.NewSchemaError(errors.CodeColumnNotFound,
			fmt.Sprintf("column %s not found", field))
	}
	pk, err := schema.PrimaryKey()
	if err != nil {
		return nil, err
	}

	current, err := readRowTx(ctx, tx, schema.Table, schema, pk.Name, id)
	if err != nil {
		return nil, err
	}
	before := current.Fields[field].Canonical()

	v, err := coerceCanonical(col, canonical)
	if err != nil {
		return nil, err
	}

	updateSQL := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		quoteIdent(schema.Table), quoteIdent(field), quoteIdent(pk.Name))
	if _, err := tx.ExecContext(ctx, updateSQL, v.Driver(), id); err != nil {
		return nil, fmt.Errorf("table: failed to set field %s on record %d: %w", field, id, err)
	}
	return before, nil
}

// readRowTx reads one full row inside a transaction.
func readRowTx(ctx context.Context, tx *sql.Tx, table string, schema *types.TableSchema, pkName string, id int64) (*types.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectList(schema), quoteIdent(table), quoteIdent(pkName))
	rows, err := tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("table: failed to read record %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("table: failed to read record %d: %w", id, err)
		}
		return nil, errors.NewRecordError(errors.CodeRecordNotFound,
			fmt.Sprintf("record %d not found", id))
	}
	record, err := scanRecord(rows, schema, pkName)
	if err != nil {
		return nil, err
	}
	return record, rows.Err()
}

// scanRecord scans the current row into a Record keyed by column name.
func scanRecord(rows *sql.Rows, schema *types.TableSchema, pkName string) (*types.Record, error) {
	raw := make([]interface{}, len(schema.Columns))
	ptrs := make([]interface{}, len(schema.Columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("table: failed to scan record: %w", err)
	}

	record := &types.Record{Fields: make(map[string]types.Value, len(schema.Columns))}
	for i, col := range schema.Columns {
		v, err := types.FromDriver(raw[i])
		if err != nil {
			return nil, fmt.Errorf("table: column %s: %w", col.Name, err)
		}
		record.Fields[col.Name] = v
		if col.Name == pkName && !v.IsNull() {
			record.ID = v.Int()
		}
	}
	return record, nil
}

// selectList builds an explicit column list in schema order, so scan targets
// line up even if SELECT * ordering ever diverges from PRAGMA ordering.
func selectList(schema *types.TableSchema) string {
	cols := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = quoteIdent(col.Name)
	}
	return strings.Join(cols, ", ")
}

// checkKnownFields rejects values that name a column absent from the
// current schema.
func checkKnownFields(schema *types.TableSchema, values map[string]types.Value) error {
	for name := range values {
		if _, ok := schema.Column(name); !ok {
			return errors.NewSchemaError(errors.CodeColumnNotFound,
				fmt.Sprintf("column %s not found", name))
		}
	}
	return nil
}

// coerceValue converts an input value for storage in the given column.
// Integer columns require integral input; monetary cents columns accept a
// decimal amount; non-numeric columns accept any text.
func coerceValue(col types.ColumnDescriptor, v types.Value) (types.Value, error) {
	if v.IsNull() {
		return v, nil
	}

	switch col.Type {
	case types.TypeInteger:
		if IsMoneyColumn(col.Name) {
			return coerceMoney(col.Name, v)
		}
		return coerceInteger(col.Name, v)
	case types.TypeReal:
		return coerceReal(col.Name, v)
	case types.TypeText:
		if c := v.Canonical(); c != nil {
			return types.TextValue(*c), nil
		}
		return v, nil
	default: // BLOB accepts anything as-is
		return v, nil
	}
}

func coerceInteger(name string, v types.Value) (types.Value, error) {
	switch raw := v.Driver().(type) {
	case int64:
		return v, nil
	case float64:
		if raw == math.Trunc(raw) {
			return types.IntValue(int64(raw)), nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return types.IntValue(n), nil
		}
	}
	return types.Value{}, errors.NewRecordError(errors.CodeTypeCoercionError,
		fmt.Sprintf("value for integer column %s does not parse as an integer", name))
}

func coerceMoney(name string, v types.Value) (types.Value, error) {
	switch raw := v.Driver().(type) {
	case int64:
		return types.IntValue(raw * 100), nil
	case float64:
		return types.IntValue(int64(math.Round(raw * 100))), nil
	case string:
		cents, err := ParseCents(raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.IntValue(cents), nil
	}
	return types.Value{}, errors.NewRecordError(errors.CodeTypeCoercionError,
		fmt.Sprintf("value for monetary column %s is not a decimal amount", name))
}

// coerceCanonical converts a ledger canonical string back into a storable
// value. Monetary columns are restored verbatim: the ledger already holds
// the stored cents form, so the decimal-amount transform must not run again.
func coerceCanonical(col types.ColumnDescriptor, canonical *string) (types.Value, error) {
	if canonical == nil {
		return types.NullValue(), nil
	}

	switch col.Type {
	case types.TypeInteger:
		return coerceInteger(col.Name, types.TextValue(*canonical))
	case types.TypeReal:
		return coerceReal(col.Name, types.TextValue(*canonical))
	case types.TypeBlob:
		if b, err := hex.DecodeString(*canonical); err == nil {
			return types.BlobValue(b), nil
		}
		return types.TextValue(*canonical), nil
	default:
		return types.TextValue(*canonical), nil
	}
}

func coerceReal(name string, v types.Value) (types.Value, error) {
	switch raw := v.Driver().(type) {
	case int64:
		return types.RealValue(float64(raw)), nil
	case float64:
		return v, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return types.RealValue(f), nil
		}
	}
	return types.Value{}, errors.NewRecordError(errors.CodeTypeCoercionError,
		fmt.Sprintf("value for real column %s does not parse as a number", name))
}
