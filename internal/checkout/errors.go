package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrBadQuantity     = errors.New("quantity must be >= 1")
	ErrMissingCustomer = errors.New("customer id is required")
	ErrMissingAddress  = errors.New("shipping address is required")
	ErrBadPayment      = errors.New("unknown payment method")
)

// ProductNotFoundError reports which cart line referenced a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// InsufficientStockError reports the offending product and the shortfall so
// the storefront can render it next to the cart line.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Shortfall() int { return e.Requested - e.Available }
