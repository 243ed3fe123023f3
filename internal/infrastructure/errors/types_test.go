package errors

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeUnknown, "UNKNOWN"},
		{ErrCodeNotFound, "NOT_FOUND"},
		{ErrCodeDuplicate, "DUPLICATE"},
		{ErrCodeConstraint, "CONSTRAINT"},
		{ErrCodeConnection, "CONNECTION"},
		{ErrCodeTransaction, "TRANSACTION"},
		{ErrCodeTimeout, "TIMEOUT"},
		{ErrCodeValidation, "VALIDATION"},
		{ErrCodeBusy, "BUSY"},
		{ErrCodeSchema, "SCHEMA"},
		{ErrorCode(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.expected {
			t.Errorf("ErrorCode(%d).String() = %q, expected %q", tt.code, got, tt.expected)
		}
	}
}

func TestStorageErrorMessage(t *testing.T) {
	err := NewStorageErrorWithContext("Upsert", errors.New("disk I/O error"), ErrCodeConnection, map[string]string{
		"package": "com.netflix.ninja",
		"date":    "2026-08-31",
	})

	msg := err.Error()
	if !strings.Contains(msg, "disk I/O error") {
		t.Errorf("Expected underlying message in %q", msg)
	}
	if !strings.Contains(msg, "op=Upsert") {
		t.Errorf("Expected operation in %q", msg)
	}
	if !strings.Contains(msg, "code=CONNECTION") {
		t.Errorf("Expected code in %q", msg)
	}
	if !strings.Contains(msg, "package=com.netflix.ninja") {
		t.Errorf("Expected context in %q", msg)
	}

	// Context keys appear in deterministic order.
	if msg != err.Error() {
		t.Error("Expected stable error message")
	}
}

func TestStorageErrorNil(t *testing.T) {
	var err *StorageError

	if err.Error() != "storage error" {
		t.Errorf("Nil error message = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("Nil error should unwrap to nil")
	}
	if err.IsRetryable() {
		t.Error("Nil error should not be retryable")
	}
	if err.GetCode() != "UNKNOWN" {
		t.Errorf("Nil error code = %q", err.GetCode())
	}
	if err.GetContext() == nil {
		t.Error("Nil error context should be an empty map, not nil")
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	underlying := sql.ErrNoRows
	err := NewStorageError("GetForDate", underlying, ErrCodeNotFound)

	if !errors.Is(err, sql.ErrNoRows) {
		t.Error("Expected errors.Is to find the underlying error")
	}

	var storeErr *StorageError
	if !errors.As(err, &storeErr) {
		t.Fatal("Expected errors.As to find the StorageError")
	}
	if storeErr.Code != ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND code, got %s", storeErr.Code)
	}
}

func TestStorageErrorIsMatchesCode(t *testing.T) {
	a := NewStorageError("Upsert", errors.New("locked"), ErrCodeBusy)
	b := NewStorageError("Query", errors.New("other"), ErrCodeBusy)
	c := NewStorageError("Query", errors.New("other"), ErrCodeTimeout)

	if !errors.Is(a, b) {
		t.Error("Expected errors with the same code to match")
	}
	if errors.Is(a, c) {
		t.Error("Expected errors with different codes not to match")
	}
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeConnection, true},
		{ErrCodeTimeout, true},
		{ErrCodeTransaction, true},
		{ErrCodeBusy, true},
		{ErrCodeNotFound, false},
		{ErrCodeDuplicate, false},
		{ErrCodeValidation, false},
		{ErrCodeCorruption, false},
		{ErrCodeSchema, false},
		{ErrCodeDiskSpace, false},
	}

	for _, tt := range tests {
		err := NewStorageError("op", errors.New("x"), tt.code)
		if err.IsRetryable() != tt.retryable {
			t.Errorf("Code %s: expected retryable=%v", tt.code, tt.retryable)
		}
	}
}

func TestCodePredicates(t *testing.T) {
	notFound := HandleNotFound("GetForDate", "usage_record", "com.netflix.ninja@2026-08-31")
	if !IsNotFound(notFound) {
		t.Error("Expected IsNotFound to match")
	}
	if IsConstraint(notFound) {
		t.Error("Expected IsConstraint not to match a not-found error")
	}

	constraint := NewStorageError("InsertCategory", errors.New("NOT NULL constraint failed"), ErrCodeConstraint)
	duplicate := NewStorageError("InsertCategory", errors.New("UNIQUE constraint failed"), ErrCodeDuplicate)
	if !IsConstraint(constraint) {
		t.Error("Expected IsConstraint to match a constraint error")
	}
	if !IsConstraint(duplicate) {
		t.Error("Expected IsConstraint to match a unique violation")
	}

	validation := HandleValidationError("Upsert", "packageName", "", "must not be empty")
	if !IsValidation(validation) {
		t.Error("Expected IsValidation to match")
	}

	corruption := NewStorageError("Query", errors.New("malformed"), ErrCodeCorruption)
	schema := NewStorageError("Query", errors.New("no such table"), ErrCodeSchema)
	if !IsFatal(corruption) || !IsFatal(schema) {
		t.Error("Expected corruption and schema errors to be fatal")
	}
	if IsFatal(notFound) {
		t.Error("Expected not-found error not to be fatal")
	}

	if IsNotFound(errors.New("plain")) {
		t.Error("Expected plain errors not to match any code")
	}
}

func TestNewStorageErrorWithContextClonesMap(t *testing.T) {
	contextMap := map[string]string{"key": "value"}
	err := NewStorageErrorWithContext("op", errors.New("x"), ErrCodeUnknown, contextMap)

	contextMap["key"] = "mutated"
	if err.GetContext()["key"] != "value" {
		t.Error("Expected the error to hold its own copy of the context map")
	}
}
