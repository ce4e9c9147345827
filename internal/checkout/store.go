package checkout

import (
	"context"
	"errors"

	"github.com/quangdm/go-storefront.git/internal/orders"
)

// ErrConflict is the retry signal for a serialization failure inside the
// store. Reservations are safe to retry in isolation, so the coordinator
// retries the single operation, never the whole checkout.
var ErrConflict = errors.New("storage conflict")

// ReserveResult reports one conditional decrement. Available is only
// meaningful when the product exists and the decrement did not apply.
type ReserveResult struct {
	Found      bool
	Applied    bool
	Available  int
	PriceCents int
	SupplierID string
}

// Store is the catalog boundary the coordinator needs: a single conditional
// atomic decrement and its compensating increment. Implementations must make
// ReserveStock atomic with respect to concurrent callers; the coordinator
// holds no in-process locks across these calls.
type Store interface {
	ReserveStock(ctx context.Context, productID string, qty int) (ReserveResult, error)
	ReleaseStock(ctx context.Context, productID string, qty int) error
}

// OrderStore persists the committed order exactly once.
type OrderStore interface {
	Insert(ctx context.Context, o orders.Order) error
}
