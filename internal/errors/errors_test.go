package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestDriftErrorFormatting(t *testing.T) {
	err := NewSchemaError(CodeColumnNotFound, "column price not found")
	msg := err.Error()
	if !strings.Contains(msg, "SCHEMA") || !strings.Contains(msg, CodeColumnNotFound) {
		t.Errorf("message missing category or code: %s", msg)
	}

	wrapped := NewMigrationError("rebuild failed", fmt.Errorf("disk full"))
	if !strings.Contains(wrapped.Error(), "disk full") {
		t.Errorf("cause missing from message: %s", wrapped.Error())
	}
}

func TestUnwrapAndCodeExtraction(t *testing.T) {
	cause := fmt.Errorf("io failure")
	err := NewStorageError(CodeUploadFailed, "upload failed", cause)

	if !stderrors.Is(err, cause) {
		t.Error("Is should reach the cause through Unwrap")
	}

	// Extraction works through further wrapping too.
	outer := fmt.Errorf("snapshot: %w", err)
	if GetCategory(outer) != ErrCategoryStorage {
		t.Errorf("category mismatch: got %s", GetCategory(outer))
	}
	if GetCode(outer) != CodeUploadFailed {
		t.Errorf("code mismatch: got %s", GetCode(outer))
	}
	if !HasCode(outer, CodeUploadFailed) {
		t.Error("HasCode should match through wrapping")
	}
	if HasCode(outer, CodeObjectNotFound) {
		t.Error("HasCode should not match a different code")
	}
}

func TestNonDriftError(t *testing.T) {
	err := fmt.Errorf("plain")
	if GetCategory(err) != "" || GetCode(err) != "" {
		t.Error("plain errors carry no category or code")
	}
}

func TestIsMatchesCategoryAndCode(t *testing.T) {
	a := NewRecordError(CodeRecordNotFound, "record 1 not found")
	b := NewRecordError(CodeRecordNotFound, "record 2 not found")
	c := NewRecordError(CodeTypeCoercionError, "bad value")

	if !stderrors.Is(a, b) {
		t.Error("same category and code should match regardless of message")
	}
	if stderrors.Is(a, c) {
		t.Error("different codes should not match")
	}
}

func TestWithDetails(t *testing.T) {
	base := NewLedgerError(CodeLimitRequired, "a positive limit is required")
	detailed := base.WithDetails(map[string]interface{}{"limit": 0})

	if base.Details != nil {
		t.Error("WithDetails must not mutate the original")
	}
	if detailed.Details["limit"] != 0 {
		t.Errorf("details mismatch: %+v", detailed.Details)
	}
}
