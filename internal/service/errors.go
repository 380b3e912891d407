package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrVariantInactive = errors.New("variant is inactive")
	ErrCartNotFound    = errors.New("cart not found")

	ErrEmptyCart       = errors.New("cart is empty")
	ErrAddressRequired = errors.New("shipping address required")
	ErrQuantityInvalid = errors.New("quantity must be > 0")

	ErrNotCancellable    = errors.New("order is not cancellable")
	ErrInvalidTransition = errors.New("invalid order status transition")

	ErrInventoryNotFound    = errors.New("inventory not found")
	ErrReservedExceedsStock = errors.New("new stock is below reserved quantity")
	ErrStockInvalid         = errors.New("stock must be >= 0")

	ErrVariantInvalid    = errors.New("sku and a non-negative price are required")
	ErrSKUAlreadyExists  = errors.New("sku already exists")
	ErrCodeAlreadyExists = errors.New("discount code already exists")
	ErrPercentageInvalid = errors.New("percentage must be between 1 and 100")
)

// InsufficientStockError reports which SKU blocked a reservation and how
// much was actually available, so the caller can show an actionable message.
type InsufficientStockError struct {
	VariantID uuid.UUID
	SKU       string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.SKU, e.Requested, e.Available)
}

// Discount rejection reasons. These are expected business conditions,
// reported as values rather than opaque failures.
const (
	DiscountReasonNotFound     = "not_found"
	DiscountReasonInactive     = "inactive"
	DiscountReasonOutOfWindow  = "out_of_window"
	DiscountReasonExhausted    = "exhausted"
	DiscountReasonBelowMinimum = "below_minimum"
)

type DiscountError struct {
	Code   string
	Reason string
}

func (e *DiscountError) Error() string {
	return fmt.Sprintf("discount code %s rejected: %s", e.Code, e.Reason)
}
