// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidOrder         = errors.New("invalid order parameters")
	ErrQuoteUnavailable     = errors.New("quote unavailable")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrTimeout              = errors.New("operation timed out")
	ErrPersistence          = errors.New("persistence failure")
	ErrConfigInvalid        = errors.New("invalid configuration")
)

// OrderError represents an error related to an order operation.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Err     error
}

func (e *OrderError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("order error [%s] %s %s: %v", e.OrderID, e.Action, e.Symbol, e.Err)
	}
	return fmt.Sprintf("order error %s %s: %v", e.Action, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Symbol:  symbol,
		Action:  action,
		Err:     err,
	}
}

// QuoteError represents a failure to obtain a price for a symbol.
// It always matches ErrQuoteUnavailable, and additionally matches the
// underlying cause (ErrSymbolNotFound, ErrTimeout, ErrRateLimited).
type QuoteError struct {
	Symbol string
	Source string
	Err    error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote error [%s] %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

// Is lets QuoteError match ErrQuoteUnavailable regardless of cause.
func (e *QuoteError) Is(target error) bool {
	return target == ErrQuoteUnavailable
}

// NewQuoteError creates a new QuoteError.
func NewQuoteError(source, symbol string, err error) *QuoteError {
	return &QuoteError{
		Symbol: symbol,
		Source: source,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Is lets ValidationError match ErrInvalidOrder in errors.Is chains.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOrder
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// PersistenceError represents a storage failure. The in-memory state is
// already mutated when this surfaces; callers must not roll it back.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets PersistenceError match ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(operation string, err error) *PersistenceError {
	return &PersistenceError{
		Operation: operation,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
