package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Value is a dynamically-typed cell value. Rows are read against whatever
// schema the table has at call time, so values carry their own kind rather
// than relying on a compiled struct.
type Value struct {
	kind  valueKind
	intV  int64
	realV float64
	textV string
	blobV []byte
}

type valueKind int

const (
	kindNull valueKind = iota
	kindInt
	kindReal
	kindText
	kindBlob
)

// NullValue returns the NULL value.
func NullValue() Value { return Value{kind: kindNull} }

// IntValue returns an INTEGER value.
func IntValue(v int64) Value { return Value{kind: kindInt, intV: v} }

// RealValue returns a REAL value.
func RealValue(v float64) Value { return Value{kind: kindReal, realV: v} }

// TextValue returns a TEXT value.
func TextValue(v string) Value { return Value{kind: kindText, textV: v} }

// BlobValue returns a BLOB value.
func BlobValue(v []byte) Value { return Value{kind: kindBlob, blobV: v} }

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Int returns the INTEGER payload; valid only when the value is an integer.
func (v Value) Int() int64 { return v.intV }

// Driver returns the value in the form expected by database/sql parameter
// binding. NULL maps to a nil interface.
func (v Value) Driver() interface{} {
	switch v.kind {
	case kindInt:
		return v.intV
	case kindReal:
		return v.realV
	case kindText:
		return v.textV
	case kindBlob:
		return v.blobV
	default:
		return nil
	}
}

// Canonical returns the canonical string form used for diff comparison and
// ledger storage. The returned pointer is nil for NULL, distinguishing
// absence from the empty string.
func (v Value) Canonical() *string {
	switch v.kind {
	case kindNull:
		return nil
	case kindInt:
		s := strconv.FormatInt(v.intV, 10)
		return &s
	case kindReal:
		s := strconv.FormatFloat(v.realV, 'g', -1, 64)
		return &s
	case kindText:
		s := v.textV
		return &s
	case kindBlob:
		s := hex.EncodeToString(v.blobV)
		return &s
	}
	return nil
}

// FromDriver converts a value scanned from database/sql into a Value.
func FromDriver(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(), nil
	case int64:
		return IntValue(v), nil
	case float64:
		return RealValue(v), nil
	case string:
		return TextValue(v), nil
	case []byte:
		b := make([]byte, len(v))
		copy(b, v)
		return BlobValue(b), nil
	case bool:
		if v {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	default:
		return Value{}, fmt.Errorf("types: unsupported driver value %T", raw)
	}
}

// CanonicalEqual reports whether two canonical strings are equal, treating
// nil (NULL) as equal only to nil.
func CanonicalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Record is one row keyed by column name, read against the current schema.
type Record struct {
	ID     int64            `json:"id"`
	Fields map[string]Value `json:"-"`
}
