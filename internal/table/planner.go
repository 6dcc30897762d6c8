package table

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

// Planner decides, for each requested schema change, whether the additive
// fast path suffices or a full table rebuild is required, and executes the
// chosen plan atomically.
type Planner struct {
	store *Store
}

// NewPlanner creates a planner over the given store.
func NewPlanner(store *Store) *Planner {
	return &Planner{store: store}
}

// AddColumn appends a nullable column with an optional default. This is the
// additive fast path: it never touches existing data, and all existing rows
// read the default (or NULL) for the new column.
func (p *Planner) AddColumn(ctx context.Context, tableName, name, colType string, defaultValue *string) error {
	table := SanitizeIdentifier(tableName)
	column := SanitizeIdentifier(name)

	ct, ok := types.ParseColumnType(colType)
	if !ok {
		return errors.NewSchemaError(errors.CodeTypeInvalid,
			fmt.Sprintf("column type %q is not one of INTEGER, REAL, TEXT, BLOB", colType))
	}

	return p.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return errors.NewMigrationError("failed to read current schema", err)
		}
		if _, exists := schema.Column(column); exists {
			return errors.NewSchemaError(errors.CodeColumnExists,
				fmt.Sprintf("column %s already exists", column))
		}

		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(column), ct)
		if defaultValue != nil {
			// DDL cannot carry bound parameters; the literal is quote-escaped.
			ddl += " DEFAULT " + quoteLiteral(*defaultValue)
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return errors.NewMigrationError(fmt.Sprintf("failed to add column %s", column), err)
		}

		log.Printf("table: added column %s %s to %s", column, ct, table)
		return nil
	})
}

// DropColumn removes a column. SQLite offers no safe in-place removal for
// the general case, so this always goes through a rebuild. Data for the
// dropped column is lost from the live table; the ledger retains only what
// was previously recorded for it.
func (p *Planner) DropColumn(ctx context.Context, tableName, name string) error {
	table := SanitizeIdentifier(tableName)
	column := SanitizeIdentifier(name)

	return p.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return errors.NewMigrationError("failed to read current schema", err)
		}

		col, exists := schema.Column(column)
		if !exists {
			return errors.NewSchemaError(errors.CodeColumnNotFound,
				fmt.Sprintf("column %s not found", column))
		}
		if col.PrimaryKey {
			return errors.NewSchemaError(errors.CodePrimaryKeyImmutable,
				fmt.Sprintf("column %s is the primary key and cannot be dropped", column))
		}

		target := &types.TableSchema{Table: table}
		for _, c := range schema.Columns {
			if c.Name != column {
				target.Columns = append(target.Columns, c)
			}
		}

		if err := rebuild(ctx, tx, schema, target); err != nil {
			return err
		}
		log.Printf("table: dropped column %s from %s", column, table)
		return nil
	})
}

// ModifyColumn renames and/or retypes a column through a rebuild. A renamed
// column's data does not survive: the rebuilder copies the by-name
// intersection of old and target schemas, so the new name starts empty.
func (p *Planner) ModifyColumn(ctx context.Context, tableName, oldName, newName, newType string, newDefault *string) error {
	table := SanitizeIdentifier(tableName)
	oldColumn := SanitizeIdentifier(oldName)
	newColumn := oldColumn
	if newName != "" {
		newColumn = SanitizeIdentifier(newName)
	}

	ct, ok := types.ParseColumnType(newType)
	if !ok {
		return errors.NewSchemaError(errors.CodeTypeInvalid,
			fmt.Sprintf("column type %q is not one of INTEGER, REAL, TEXT, BLOB", newType))
	}

	return p.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		schema, err := listColumns(ctx, tx, table)
		if err != nil {
			return errors.NewMigrationError("failed to read current schema", err)
		}

		col, exists := schema.Column(oldColumn)
		if !exists {
			return errors.NewSchemaError(errors.CodeColumnNotFound,
				fmt.Sprintf("column %s not found", oldColumn))
		}
		if col.PrimaryKey {
			return errors.NewSchemaError(errors.CodePrimaryKeyImmutable,
				fmt.Sprintf("column %s is the primary key and cannot be modified", oldColumn))
		}
		if newColumn != oldColumn {
			if _, taken := schema.Column(newColumn); taken {
				return errors.NewSchemaError(errors.CodeColumnExists,
					fmt.Sprintf("column %s already exists", newColumn))
			}
		}

		target := &types.TableSchema{Table: table}
		for _, c := range schema.Columns {
			if c.Name == oldColumn {
				c.Name = newColumn
				c.Type = ct
				c.Default = newDefault
				c.Nullable = true
			}
			target.Columns = append(target.Columns, c)
		}

		if err := rebuild(ctx, tx, schema, target); err != nil {
			return err
		}
		log.Printf("table: modified column %s -> %s %s on %s", oldColumn, newColumn, ct, table)
		return nil
	})
}
