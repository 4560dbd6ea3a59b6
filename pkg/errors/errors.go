package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")
	ErrInternal   = errors.New("internal server error")
	ErrValidation = errors.New("validation error")

	// Ledger and movement workflow errors. A failed call leaves all state
	// exactly as it was, so callers can always retry with corrected input.
	ErrInvalidTransition   = errors.New("invalid movement transition")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidLossQuantity = errors.New("invalid loss quantity")
	ErrDuplicateLineItem   = errors.New("duplicate line item")
	ErrEmptyMovement       = errors.New("empty movement")
	ErrInvalidRoute        = errors.New("invalid route")
	ErrLocationInUse       = errors.New("location in use")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Workflow error constructors

// InvalidTransition signals a movement state machine violation, e.g. a
// second approve call on an already-approved movement.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Err:        ErrInvalidTransition,
		Code:       "INVALID_TRANSITION",
		Message:    fmt.Sprintf("cannot transition movement from %s to %s", from, to),
		StatusCode: http.StatusConflict,
	}
}

// InsufficientStock signals that a debit would take a stock entry below zero.
func InsufficientStock(locationID, itemID string, have, want int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("insufficient stock for item %s at location %s: have %d, need %d", itemID, locationID, have, want),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"location_id": locationID,
			"item_id":     itemID,
		},
	}
}

func InvalidLossQuantity(itemID, reason string) *AppError {
	return &AppError{
		Err:        ErrInvalidLossQuantity,
		Code:       "INVALID_LOSS_QUANTITY",
		Message:    fmt.Sprintf("invalid loss quantity for item %s: %s", itemID, reason),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func DuplicateLineItem(itemID string) *AppError {
	return &AppError{
		Err:        ErrDuplicateLineItem,
		Code:       "DUPLICATE_LINE_ITEM",
		Message:    fmt.Sprintf("item %s appears more than once in the movement", itemID),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func EmptyMovement() *AppError {
	return &AppError{
		Err:        ErrEmptyMovement,
		Code:       "EMPTY_MOVEMENT",
		Message:    "a movement must contain at least one line item",
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func InvalidRoute(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidRoute,
		Code:       "INVALID_ROUTE",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func LocationInUse(locationID string) *AppError {
	return &AppError{
		Err:        ErrLocationInUse,
		Code:       "LOCATION_IN_USE",
		Message:    fmt.Sprintf("location %s still holds stock and cannot be removed", locationID),
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
