package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrParse           = errors.New("materials list could not be parsed")
	ErrSupplierLookup  = errors.New("supplier lookup failed")
	ErrInvalidQuantity = errors.New("invalid item quantity")
)

// ParseError is returned when no items can be extracted from the input
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse materials list: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// SupplierLookupError describes one failed (item, supplier) lookup. It is
// logged by the matcher and never returned to callers of Match.
type SupplierLookupError struct {
	Supplier string
	Item     string
	Err      error
}

func (e *SupplierLookupError) Error() string {
	return fmt.Sprintf("supplier %s lookup for %q: %v", e.Supplier, e.Item, e.Err)
}

func (e *SupplierLookupError) Unwrap() []error {
	return []error{ErrSupplierLookup, e.Err}
}

// InvalidQuantityError is returned by the assembler for a non-positive
// quantity, which means an upstream stage produced a bad item.
type InvalidQuantityError struct {
	Item     string
	Quantity decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("item %q has invalid quantity %s", e.Item, e.Quantity.String())
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }
