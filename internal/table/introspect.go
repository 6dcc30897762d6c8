package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/driftdb/driftdb/pkg/types"
)

// queryer is satisfied by *sql.DB and *sql.Tx so introspection can run both
// standalone and inside a rebuild transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ListColumns reads the live physical schema of the table. It queries the
// database fresh on every call; results must never be cached across calls
// that straddle a schema mutation.
func (s *Store) ListColumns(ctx context.Context, tableName string) (*types.TableSchema, error) {
	return listColumns(ctx, s.readDB, SanitizeIdentifier(tableName))
}

// listColumns runs PRAGMA table_info against q. The table name must already
// be sanitized.
func listColumns(ctx context.Context, q queryer, tableName string) (*types.TableSchema, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, fmt.Errorf("table: failed to read table info for %s: %w", tableName, err)
	}
	defer rows.Close()

	schema := &types.TableSchema{Table: tableName}
	for rows.Next() {
		var (
			cid     int
			name    string
			rawType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &rawType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("table: failed to scan column info: %w", err)
		}

		col := types.ColumnDescriptor{
			Ordinal:    cid,
			Name:       name,
			Type:       columnTypeFromDDL(rawType),
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
		}
		if dflt.Valid {
			v := unquoteDefault(dflt.String)
			col.Default = &v
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table: error iterating column info: %w", err)
	}

	return schema, nil
}

// DefinitionSQL returns the raw CREATE TABLE statement for display and audit
// only. It is never parsed back. Returns nil when the table does not exist.
func (s *Store) DefinitionSQL(ctx context.Context, tableName string) (*string, error) {
	var ddl sql.NullString
	err := s.readDB.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?",
		SanitizeIdentifier(tableName),
	).Scan(&ddl)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("table: failed to read table definition: %w", err)
	}
	if !ddl.Valid {
		return nil, nil
	}
	return &ddl.String, nil
}

// columnTypeFromDDL maps a declared column type to one of the four canonical
// kinds. All DDL in this system is generated from canonical types, so
// anything unrecognized (legacy hand-written DDL via the raw escape hatch)
// falls back to TEXT affinity.
func columnTypeFromDDL(raw string) types.ColumnType {
	if t, ok := types.ParseColumnType(raw); ok {
		return t
	}
	return types.TypeText
}

// unquoteDefault strips the SQL quoting PRAGMA table_info reports around
// text default literals, so '12.50' round-trips as 12.50.
func unquoteDefault(raw string) string {
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return strings.ReplaceAll(raw[1:len(raw)-1], "''", "'")
	}
	return raw
}
