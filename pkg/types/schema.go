// Package types provides core data types for DriftDB.
package types

import (
	"fmt"
	"strings"
)

// ColumnType is one of the four canonical SQLite storage types.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
	TypeBlob    ColumnType = "BLOB"
)

// ParseColumnType normalizes a user-supplied type name to a canonical
// ColumnType. It accepts any case and returns false for anything outside
// the four canonical kinds.
func ParseColumnType(s string) (ColumnType, bool) {
	switch ColumnType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeInteger:
		return TypeInteger, true
	case TypeReal:
		return TypeReal, true
	case TypeText:
		return TypeText, true
	case TypeBlob:
		return TypeBlob, true
	default:
		return "", false
	}
}

// ZeroValue returns the value used to backfill a required column that has
// no default: 0 for INTEGER, "" for TEXT, NULL otherwise.
func (t ColumnType) ZeroValue() Value {
	switch t {
	case TypeInteger:
		return IntValue(0)
	case TypeText:
		return TextValue("")
	default:
		return NullValue()
	}
}

// ColumnDescriptor is the schema metadata for one column.
type ColumnDescriptor struct {
	// Ordinal is the zero-based position of the column in the table
	Ordinal int `json:"ordinal"`

	// Name is the sanitized column identifier
	Name string `json:"name"`

	// Type is the canonical SQLite storage type
	Type ColumnType `json:"type"`

	// Nullable indicates whether the column can contain NULL values
	Nullable bool `json:"nullable"`

	// Default is the column default literal, nil when absent
	Default *string `json:"default,omitempty"`

	// PrimaryKey indicates whether this column is the primary key
	PrimaryKey bool `json:"primary_key"`
}

// TableSchema is the ordered column set of one logical table, read fresh
// from the live database before every operation.
type TableSchema struct {
	Table   string             `json:"table"`
	Columns []ColumnDescriptor `json:"columns"`
}

// Column returns the descriptor for name, or false when absent.
func (s *TableSchema) Column(name string) (ColumnDescriptor, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDescriptor{}, false
}

// PrimaryKey returns the primary-key column descriptor.
// Every table managed by DriftDB has exactly one.
func (s *TableSchema) PrimaryKey() (ColumnDescriptor, error) {
	for _, col := range s.Columns {
		if col.PrimaryKey {
			return col, nil
		}
	}
	return ColumnDescriptor{}, fmt.Errorf("types: table %s has no primary key column", s.Table)
}

// ColumnNames returns the column names in ordinal order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Intersect returns the names present in both schemas, by name not
// position, preserving the receiver's ordering. Used by the rebuilder to
// decide which values survive a schema change.
func (s *TableSchema) Intersect(other *TableSchema) []string {
	present := make(map[string]bool, len(other.Columns))
	for _, col := range other.Columns {
		present[col.Name] = true
	}

	var common []string
	for _, col := range s.Columns {
		if present[col.Name] {
			common = append(common, col.Name)
		}
	}
	return common
}
