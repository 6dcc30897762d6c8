package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/pkg/types"
)

// rebuildSuffix derives the shadow table name during a rebuild.
const rebuildSuffix = "__rebuild"

// rebuild replaces the physical layout of a table inside the caller's
// transaction:
//
//  1. create a shadow table with the target schema
//  2. bulk-copy the by-name intersection of old and target columns
//  3. drop the old table and rename the shadow into its place
//
// SQLite DDL is transactional, so a failure at any step rolls the whole
// transaction back and the original table is untouched. Concurrent readers
// see the pre-rebuild table in full or the post-rebuild table in full,
// never an intermediate state.
func rebuild(ctx context.Context, tx *sql.Tx, current, target *types.TableSchema) error {
	shadow := current.Table + rebuildSuffix

	if _, err := tx.ExecContext(ctx, createTableDDL(shadow, target)); err != nil {
		return errors.NewMigrationError("failed to create shadow table", err)
	}

	// Single bulk copy of the surviving columns, not per-row loops.
	common := target.Intersect(current)
	if len(common) > 0 {
		quoted := make([]string, len(common))
		for i, name := range common {
			quoted[i] = quoteIdent(name)
		}
		cols := strings.Join(quoted, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			quoteIdent(shadow), cols, cols, quoteIdent(current.Table))
		if _, err := tx.ExecContext(ctx, copySQL); err != nil {
			return errors.NewMigrationError("failed to copy rows into shadow table", err)
		}
	}

	// Irreversible step, only reached once create and copy have succeeded.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", quoteIdent(current.Table))); err != nil {
		return errors.NewMigrationError("failed to drop old table", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
		quoteIdent(shadow), quoteIdent(current.Table))); err != nil {
		return errors.NewMigrationError("failed to rename shadow table", err)
	}

	return nil
}

// createTableDDL builds the CREATE TABLE statement for the target schema.
// All identifiers are sanitized before they reach this point; default
// literals are quote-escaped because DDL cannot carry bound parameters.
func createTableDDL(name string, schema *types.TableSchema) string {
	defs := make([]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		def := quoteIdent(col.Name) + " " + string(col.Type)
		if col.PrimaryKey {
			def += " PRIMARY KEY AUTOINCREMENT"
		} else if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != nil {
			def += " DEFAULT " + quoteLiteral(*col.Default)
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
}
