package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrContention        = errors.New("contention")
	ErrStorage           = errors.New("storage failure")
)

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound || target == ErrNotFound
}

type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidInputError rejects a request field. Err is set when the store,
// not the service, refused the value.
type InvalidInputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ContentionError reports a lock wait timeout, a deadlock or a rejected
// conditional write. The whole operation may be retried.
type ContentionError struct {
	Op  string
	Err error
}

func (e *ContentionError) Error() string {
	if e.Err == nil {
		return e.Op + ": contention"
	}
	return fmt.Sprintf("%s: contention: %v", e.Op, e.Err)
}

func (e *ContentionError) Unwrap() error { return e.Err }

func (e *ContentionError) Is(target error) bool {
	return target == ErrContention
}

// StorageError wraps a store failure unrelated to business rules.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// IsRetryable reports whether err is safe to retry as a whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}
