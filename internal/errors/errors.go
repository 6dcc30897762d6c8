// Package errors provides structured error types for DriftDB.
// All errors include a category, code, message, and cause for consistent
// handling across components; nothing is silently swallowed or retried.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategorySchema    ErrorCategory = "SCHEMA"
	ErrCategoryMigration ErrorCategory = "MIGRATION"
	ErrCategoryRecord    ErrorCategory = "RECORD"
	ErrCategoryLedger    ErrorCategory = "LEDGER"
	ErrCategoryRollback  ErrorCategory = "ROLLBACK"
	ErrCategoryStorage   ErrorCategory = "STORAGE"
	ErrCategoryInternal  ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Schema codes
	CodeIdentifierInvalid   = "IDENTIFIER_INVALID"
	CodeColumnNotFound      = "COLUMN_NOT_FOUND"
	CodeColumnExists        = "COLUMN_EXISTS"
	CodeTypeInvalid         = "TYPE_INVALID"
	CodePrimaryKeyImmutable = "PRIMARY_KEY_IMMUTABLE"

	// Migration codes
	CodeMigrationFailure = "MIGRATION_FAILURE"

	// Record codes
	CodeRecordNotFound    = "RECORD_NOT_FOUND"
	CodeTypeCoercionError = "TYPE_COERCION_ERROR"

	// Ledger codes
	CodeVersionNotFound  = "VERSION_NOT_FOUND"
	CodeLimitRequired    = "LIMIT_REQUIRED"
	CodeSortFieldInvalid = "SORT_FIELD_INVALID"

	// Rollback codes
	CodeFieldNoLongerExists = "FIELD_NO_LONGER_EXISTS"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// DriftError is the structured error type used throughout the system.
type DriftError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *DriftError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DriftError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *DriftError) Is(target error) bool {
	var t *DriftError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new DriftError.
func New(category ErrorCategory, code, message string) *DriftError {
	return &DriftError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new DriftError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *DriftError {
	return &DriftError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DriftError) WithDetails(details map[string]interface{}) *DriftError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a DriftError.
func GetCategory(err error) ErrorCategory {
	var de *DriftError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a DriftError.
func GetCode(err error) string {
	var de *DriftError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Convenience constructors for common errors.

func NewSchemaError(code, message string) *DriftError {
	return New(ErrCategorySchema, code, message)
}

func NewMigrationError(message string, cause error) *DriftError {
	return Wrap(ErrCategoryMigration, CodeMigrationFailure, message, cause)
}

func NewRecordError(code, message string) *DriftError {
	return New(ErrCategoryRecord, code, message)
}

func NewLedgerError(code, message string) *DriftError {
	return New(ErrCategoryLedger, code, message)
}

func NewRollbackError(code, message string) *DriftError {
	return New(ErrCategoryRollback, code, message)
}

func NewStorageError(code, message string, cause error) *DriftError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *DriftError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
