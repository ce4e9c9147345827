package checkout

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quangdm/go-storefront.git/internal/metrics"
	"github.com/quangdm/go-storefront.git/internal/orders"
)

// maxConflictRetries bounds how often a single reservation is re-issued after
// the store reports a serialization conflict.
const maxConflictRetries = 3

type CartItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Cart is the whole client-held cart handed over at submit time. Nothing in
// it is trusted until Validate has run.
type Cart struct {
	CustomerID      string
	Items           []CartItem
	ShippingAddress string
	PaymentMethod   string
}

func (c Cart) Validate() error {
	switch {
	case c.CustomerID == "":
		return ErrMissingCustomer
	case len(c.Items) == 0:
		return ErrEmptyCart
	case c.ShippingAddress == "":
		return ErrMissingAddress
	case !orders.ValidPaymentMethod(c.PaymentMethod):
		return ErrBadPayment
	}
	for _, it := range c.Items {
		if it.Qty < 1 || it.ProductID == "" {
			return ErrBadQuantity
		}
	}
	return nil
}

// Coordinator turns a cart into a committed order while keeping every
// product's stock non-negative under concurrent checkouts. It relies entirely
// on the store's conditional decrement; there are no in-process locks, so any
// number of API instances can run against the same database.
type Coordinator struct {
	Store   Store
	Orders  OrderStore
	Metrics *metrics.Checkout // optional
}

// PlaceOrder reserves stock item by item and commits the order. On any
// failure the reservations taken so far are released and no order row exists:
// the catalog ends up exactly as it was before the attempt.
func (co *Coordinator) PlaceOrder(ctx context.Context, cart Cart) (orders.Order, error) {
	started := time.Now()
	o, err := co.placeOrder(ctx, cart)
	co.observe(started, err)
	return o, err
}

func (co *Coordinator) placeOrder(ctx context.Context, cart Cart) (orders.Order, error) {
	if err := cart.Validate(); err != nil {
		return orders.Order{}, err
	}

	// Merge duplicate lines and fix a deterministic processing order, so two
	// carts touching the same products always reserve in the same sequence.
	lines := normalize(cart.Items)

	reserved := make([]CartItem, 0, len(lines))
	items := make([]orders.LineItem, 0, len(lines))
	total := 0

	for _, it := range lines {
		res, err := co.reserve(ctx, it.ProductID, it.Qty)
		if err != nil {
			co.release(ctx, reserved)
			return orders.Order{}, err
		}
		if !res.Found {
			co.release(ctx, reserved)
			return orders.Order{}, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if !res.Applied {
			co.release(ctx, reserved)
			return orders.Order{}, &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Qty,
				Available: res.Available,
			}
		}
		reserved = append(reserved, it)
		items = append(items, orders.LineItem{
			ProductID:  it.ProductID,
			SupplierID: res.SupplierID,
			Qty:        it.Qty,
			PriceCents: res.PriceCents,
		})
		total += it.Qty * res.PriceCents
	}

	o := orders.Order{
		ID:              uuid.NewString(),
		CustomerID:      cart.CustomerID,
		Status:          orders.StatusPlaced,
		TotalCents:      total,
		ShippingAddress: cart.ShippingAddress,
		PaymentMethod:   cart.PaymentMethod,
		Paid:            false,
		Items:           items,
		CreatedAt:       time.Now().UTC(),
	}
	if err := co.Orders.Insert(ctx, o); err != nil {
		co.release(ctx, reserved)
		return orders.Order{}, err
	}
	return o, nil
}

// reserve issues the conditional decrement, retrying only on ErrConflict.
// Nothing has been written for this line until the decrement applies, so the
// retry is safe in isolation.
func (co *Coordinator) reserve(ctx context.Context, productID string, qty int) (ReserveResult, error) {
	var res ReserveResult
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		res, err = co.Store.ReserveStock(ctx, productID, qty)
		if err == nil || !errors.Is(err, ErrConflict) {
			return res, err
		}
		if co.Metrics != nil {
			co.Metrics.Retries.Inc()
		}
	}
	return res, err
}

// release compensates in reverse reservation order. Release uses a background
// context: once stock is taken it must go back even if the request context is
// already cancelled.
func (co *Coordinator) release(ctx context.Context, reserved []CartItem) {
	rctx := context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		it := reserved[i]
		var err error
		for attempt := 0; attempt < maxConflictRetries; attempt++ {
			if err = co.Store.ReleaseStock(rctx, it.ProductID, it.Qty); !errors.Is(err, ErrConflict) {
				break
			}
		}
		if err != nil {
			// stock stays reserved with no order to show for it; leave an
			// operator trail instead of losing the units silently
			log.Printf("stock release failed: product=%s qty=%d: %v", it.ProductID, it.Qty, err)
		}
	}
}

func normalize(in []CartItem) []CartItem {
	byID := make(map[string]int, len(in))
	for _, it := range in {
		byID[it.ProductID] += it.Qty
	}
	out := make([]CartItem, 0, len(byID))
	for id, qty := range byID {
		out = append(out, CartItem{ProductID: id, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (co *Coordinator) observe(started time.Time, err error) {
	if co.Metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.As(err, new(*InsufficientStockError)):
		outcome = "insufficient_stock"
	case errors.As(err, new(*ProductNotFoundError)):
		outcome = "product_not_found"
	default:
		outcome = "error"
	}
	co.Metrics.Attempts.WithLabelValues(outcome).Inc()
	co.Metrics.Duration.Observe(float64(time.Since(started).Milliseconds()))
}
