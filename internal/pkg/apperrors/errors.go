package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks across the typed errors below.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrStore              = errors.New("store failure")
	ErrPartialConsistency = errors.New("partial consistency")
	ErrConflict           = errors.New("concurrent update")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrUnavailable        = errors.New("feature unavailable")
)

const (
	CodeValidation         = "COOP_LEDGER_VALIDATION_FAILED"
	CodeNotFound           = "COOP_LEDGER_NOT_FOUND"
	CodeStore              = "COOP_LEDGER_STORE_FAILURE"
	CodePartialConsistency = "COOP_LEDGER_PARTIAL_CONSISTENCY"
	CodeConflict           = "COOP_LEDGER_CONCURRENT_UPDATE"
	CodeDuplicateRequest   = "COOP_LEDGER_DUPLICATE_REQUEST"
	CodeUnavailable        = "COOP_LEDGER_FEATURE_DISABLED"
	CodeInternal           = "COOP_LEDGER_INTERNAL_ERROR"
)

type CustomError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e CustomError) Error() string {
	return e.Message
}
func (e CustomError) ErrorCode() string {
	return e.Code
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError names every missing or invalid input field.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns nil when no field errors were collected.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) ErrorCode() string    { return CodeValidation }

type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) ErrorCode() string    { return CodeNotFound }

// StoreError wraps a database failure on a CRUD or subscribe operation.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error        { return e.Err }
func (e *StoreError) Is(target error) bool { return target == ErrStore }
func (e *StoreError) ErrorCode() string    { return CodeStore }

// PartialConsistencyError reports a member update whose transaction record
// did not reach its final state, or the reverse.
type PartialConsistencyError struct {
	TransactionID string
	MemberID      string
	Stage         string
	Err           error
}

func (e *PartialConsistencyError) Error() string {
	return fmt.Sprintf("ledger diverged at %s (member %s, transaction %s): %v",
		e.Stage, e.MemberID, e.TransactionID, e.Err)
}

func (e *PartialConsistencyError) Unwrap() error        { return e.Err }
func (e *PartialConsistencyError) Is(target error) bool { return target == ErrPartialConsistency }
func (e *PartialConsistencyError) ErrorCode() string    { return CodePartialConsistency }

// ConflictError means the record changed between read and write.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q was modified concurrently", e.Entity, e.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
func (e *ConflictError) ErrorCode() string    { return CodeConflict }

type DuplicateRequestError struct {
	Key string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("request with idempotency key %q was already processed", e.Key)
}

func (e *DuplicateRequestError) Is(target error) bool { return target == ErrDuplicateRequest }
func (e *DuplicateRequestError) ErrorCode() string    { return CodeDuplicateRequest }

// UnavailableError reports a feature whose backing service is not configured.
type UnavailableError struct {
	Feature string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s is not enabled", e.Feature)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }
func (e *UnavailableError) ErrorCode() string    { return CodeUnavailable }

// Code returns the stable error code of the first coded error in the chain.
func Code(err error) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return CodeInternal
}
