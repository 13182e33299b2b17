package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure for translation at the HTTP boundary.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindUnavailable
	KindValidation
)

// Error is the structured error every service boundary understands.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing order/table/employee/item/dish/bill.
func NotFound(resource string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: fmt.Sprintf("%s: %v", resource, id),
	}
}

// Conflict reports a business-rule violation: occupied table, wrong-state
// transition, duplicate bill.
func Conflict(message, details string) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

// Unavailable reports a failed or short-circuited downstream call, naming the
// collaborator and operation.
func Unavailable(service, operation string, err error) *Error {
	return &Error{
		Kind:    KindUnavailable,
		Message: fmt.Sprintf("%s is currently unavailable", service),
		Details: fmt.Sprintf("service: %s, operation: %s", service, operation),
		Err:     err,
	}
}

// Validation reports a rejected input field.
func Validation(field string, value any, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Details: fmt.Sprintf("field: %s, rejected value: %v", field, value),
	}
}

// StatusCode maps a Kind to its HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
