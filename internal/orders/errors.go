package orders

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRequest    = errors.New("invalid order request")
	ErrItemNotFound      = errors.New("poster not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("order not found")
	ErrUnknownUser       = errors.New("user not found")
	ErrPersistence       = errors.New("persistence failure")
)

type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string        { return e.Reason }
func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

// PriceMismatchError is returned when a line's unit price does not match the
// catalog price read inside the transaction.
type PriceMismatchError struct {
	PosterID int64
	Title    string
	Declared decimal.Decimal
	Current  decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price of %q changed: declared %s, current %s", e.Title, e.Declared.StringFixed(2), e.Current.StringFixed(2))
}
func (e *PriceMismatchError) Is(target error) bool { return target == ErrInvalidRequest }

type TotalMismatchError struct {
	Declared decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("declared total %s does not match items total %s", e.Declared.StringFixed(2), e.Computed.StringFixed(2))
}
func (e *TotalMismatchError) Is(target error) bool { return target == ErrInvalidRequest }

type ItemNotFoundError struct {
	PosterID int64
}

func (e *ItemNotFoundError) Error() string        { return fmt.Sprintf("poster %d not found", e.PosterID) }
func (e *ItemNotFoundError) Is(target error) bool { return target == ErrItemNotFound }

type InsufficientStockError struct {
	PosterID  int64
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %q (available: %d, requested: %d)", e.Title, e.Available, e.Requested)
}
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// PersistenceError wraps a storage failure. It matches both ErrPersistence and
// the underlying driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string   { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func persist(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// classify leaves domain errors alone and wraps anything else, such as a
// failed BEGIN or COMMIT, as a persistence failure.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrPersistence):
		return err
	default:
		return &PersistenceError{Op: "transaction", Err: err}
	}
}
