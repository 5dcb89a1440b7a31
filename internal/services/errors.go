package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid           = errors.New("invalid input")
	ErrBadCreds          = errors.New("invalid email or password")
	ErrInactive          = errors.New("account is disabled")
	ErrEmailTaken        = errors.New("email already registered")
	ErrRateLimited       = errors.New("too many requests, try again later")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrForbidden         = errors.New("forbidden")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateItem     = errors.New("product already in outfit")
)

// InsufficientStockError names the first cart line that cannot be filled.
type InsufficientStockError struct {
	VariantID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
