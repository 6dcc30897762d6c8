// Package table implements the mutable-schema table engine: runtime column
// management, schema-driven record access, the append-only field-version
// ledger, and rollback. All persistence is a single SQLite database.
package table

import "fmt"

// Schema contains the SQL definitions for the fixed (non-drifting) parts of
// the database. The data table itself is created with only a primary key and
// evolves at runtime through the planner and rebuilder.

// CreateFieldVersionsTableSQL creates the ledger table. Its column layout is
// a compatibility contract for external reporting tools and must not change.
const CreateFieldVersionsTableSQL = `
CREATE TABLE IF NOT EXISTS field_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id INTEGER NOT NULL,
    field_name TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    changed_at TEXT NOT NULL,
    changed_by TEXT NOT NULL
)`

// CreateFieldVersionsIndexesSQL creates indexes for the common ledger
// lookups: per-record history and time-ordered listing.
var CreateFieldVersionsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_field_versions_record ON field_versions(record_id)`,
	`CREATE INDEX IF NOT EXISTS idx_field_versions_changed_at ON field_versions(changed_at)`,
}

// AllSchemaSQL returns all SQL statements needed to initialize the fixed
// portion of the database.
func AllSchemaSQL() []string {
	statements := []string{
		CreateFieldVersionsTableSQL,
	}
	statements = append(statements, CreateFieldVersionsIndexesSQL...)
	return statements
}

// createDataTableSQL returns the DDL for a fresh data table holding nothing
// but its integer primary key. The name must already be sanitized.
func createDataTableSQL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT)`, quoteIdent(tableName))
}
