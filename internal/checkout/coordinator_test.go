package checkout

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangdm/go-storefront.git/internal/orders"
)

type memProduct struct {
	stock      int
	priceCents int
	supplierID string
}

// memStore implements Store and OrderStore with the same atomicity contract
// the database gives us: each ReserveStock call is one indivisible
// check-and-decrement.
type memStore struct {
	mu         sync.Mutex
	products   map[string]*memProduct
	orders     []orders.Order
	insertErr  error
	releaseErr error
	conflicts  int // ReserveStock fails with ErrConflict this many times first
}

func newMemStore(products map[string]*memProduct) *memStore {
	return &memStore{products: products}
}

func (s *memStore) ReserveStock(_ context.Context, productID string, qty int) (ReserveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts > 0 {
		s.conflicts--
		return ReserveResult{}, ErrConflict
	}
	p, ok := s.products[productID]
	if !ok {
		return ReserveResult{}, nil
	}
	res := ReserveResult{Found: true, PriceCents: p.priceCents, SupplierID: p.supplierID}
	if p.stock < qty {
		res.Available = p.stock
		return res, nil
	}
	p.stock -= qty
	res.Applied = true
	return res, nil
}

func (s *memStore) ReleaseStock(_ context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return s.releaseErr
	}
	p, ok := s.products[productID]
	if !ok {
		return errors.New("release of unknown product")
	}
	p.stock += qty
	return nil
}

func (s *memStore) Insert(_ context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.orders = append(s.orders, o)
	return nil
}

func (s *memStore) stockOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func cartWith(items ...CartItem) Cart {
	return Cart{
		CustomerID:      "cust-1",
		Items:           items,
		ShippingAddress: "12 Ly Thuong Kiet, Hanoi",
		PaymentMethod:   orders.PaymentCOD,
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 10, priceCents: 1000, supplierID: "sup-1"},
		"p2": {stock: 4, priceCents: 500, supplierID: "sup-2"},
	})
	co := &Coordinator{Store: store, Orders: store}

	o, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "p2", Qty: 1},
		CartItem{ProductID: "p1", Qty: 2},
	))
	require.NoError(t, err)

	assert.Equal(t, orders.StatusPlaced, o.Status)
	assert.Equal(t, 2*1000+1*500, o.TotalCents)
	assert.False(t, o.Paid)
	assert.Equal(t, 8, store.stockOf("p1"))
	assert.Equal(t, 3, store.stockOf("p2"))
	assert.Equal(t, 1, store.orderCount())

	// deterministic line order: ascending product id
	require.Len(t, o.Items, 2)
	assert.Equal(t, "p1", o.Items[0].ProductID)
	assert.Equal(t, "p2", o.Items[1].ProductID)
	assert.Equal(t, "sup-1", o.Items[0].SupplierID)
}

func TestPlaceOrderProductNotFound(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 10, priceCents: 1000},
	})
	co := &Coordinator{Store: store, Orders: store}

	_, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "p1", Qty: 1},
		CartItem{ProductID: "vanished", Qty: 1},
	))
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "vanished", notFound.ProductID)

	// the p1 reservation was compensated, nothing committed
	assert.Equal(t, 10, store.stockOf("p1"))
	assert.Equal(t, 0, store.orderCount())
}

func TestPlaceOrderInsufficientStockKeepsCatalogIntact(t *testing.T) {
	// cart [(p1 qty 2), (p2 qty 1)] with p2 out of stock: whole checkout
	// fails and p1 keeps its 10 units
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 10, priceCents: 1000},
		"p2": {stock: 0, priceCents: 500},
	})
	co := &Coordinator{Store: store, Orders: store}

	_, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "p1", Qty: 2},
		CartItem{ProductID: "p2", Qty: 1},
	))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Requested)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, 1, stockErr.Shortfall())

	assert.Equal(t, 10, store.stockOf("p1"))
	assert.Equal(t, 0, store.orderCount())
}

func TestPlaceOrderExactRemainingStock(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 1, priceCents: 700},
	})
	co := &Coordinator{Store: store, Orders: store}

	o, err := co.PlaceOrder(context.Background(), cartWith(CartItem{ProductID: "p1", Qty: 1}))
	require.NoError(t, err)
	assert.Equal(t, 700, o.TotalCents)
	assert.Equal(t, 0, store.stockOf("p1"))

	_, err = co.PlaceOrder(context.Background(), cartWith(CartItem{ProductID: "p1", Qty: 1}))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Shortfall())
}

func TestTwoConcurrentCheckoutsOneWins(t *testing.T) {
	// stock 5, two concurrent requests for 3: exactly one succeeds and the
	// final stock is 2
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 5, priceCents: 100},
	})
	co := &Coordinator{Store: store, Orders: store}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := co.PlaceOrder(context.Background(), cartWith(CartItem{ProductID: "p1", Qty: 3}))
			results <- err
		}()
	}
	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			var stockErr *InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
			assert.Equal(t, 1, stockErr.Shortfall())
			failures++
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, store.stockOf("p1"))
	assert.Equal(t, 1, store.orderCount())
}

func TestManyConcurrentCheckoutsSerializable(t *testing.T) {
	const initial = 100
	const workers = 50
	const qty = 3

	store := newMemStore(map[string]*memProduct{
		"p1": {stock: initial, priceCents: 100},
	})
	co := &Coordinator{Store: store, Orders: store}

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := co.PlaceOrder(context.Background(), cartWith(CartItem{ProductID: "p1", Qty: qty}))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorAs(t, err, new(*InsufficientStockError))
		}
	}

	final := store.stockOf("p1")
	assert.GreaterOrEqual(t, final, 0, "stock must never go negative")
	assert.Equal(t, initial-successes*qty, final,
		"final stock must equal initial minus the sum of successful reservations")
	assert.Equal(t, successes, store.orderCount())
}

func TestDuplicateCartLinesAreMerged(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 3, priceCents: 200},
	})
	co := &Coordinator{Store: store, Orders: store}

	o, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "p1", Qty: 1},
		CartItem{ProductID: "p1", Qty: 2},
	))
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Qty)
	assert.Equal(t, 600, o.TotalCents)
	assert.Equal(t, 0, store.stockOf("p1"))
}

func TestCartValidation(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 5, priceCents: 100},
	})
	co := &Coordinator{Store: store, Orders: store}

	cases := []struct {
		name string
		cart Cart
		want error
	}{
		{"empty cart", Cart{CustomerID: "c", ShippingAddress: "a", PaymentMethod: orders.PaymentCOD}, ErrEmptyCart},
		{"zero qty", cartWith(CartItem{ProductID: "p1", Qty: 0}), ErrBadQuantity},
		{"negative qty", cartWith(CartItem{ProductID: "p1", Qty: -2}), ErrBadQuantity},
		{"blank product id", cartWith(CartItem{Qty: 1}), ErrBadQuantity},
		{"no customer", Cart{Items: []CartItem{{ProductID: "p1", Qty: 1}}, ShippingAddress: "a", PaymentMethod: orders.PaymentCOD}, ErrMissingCustomer},
		{"no address", Cart{CustomerID: "c", Items: []CartItem{{ProductID: "p1", Qty: 1}}, PaymentMethod: orders.PaymentCOD}, ErrMissingAddress},
		{"bad payment", Cart{CustomerID: "c", Items: []CartItem{{ProductID: "p1", Qty: 1}}, ShippingAddress: "a", PaymentMethod: "BARTER"}, ErrBadPayment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := co.PlaceOrder(context.Background(), tc.cart)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, 5, store.stockOf("p1"), "validation failures must not touch stock")
		})
	}
}

func TestConflictIsRetriedPerReservation(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 5, priceCents: 100},
	})
	store.conflicts = 2 // first two attempts collide, third goes through
	co := &Coordinator{Store: store, Orders: store}

	o, err := co.PlaceOrder(context.Background(), cartWith(CartItem{ProductID: "p1", Qty: 1}))
	require.NoError(t, err)
	assert.Equal(t, 100, o.TotalCents)
	assert.Equal(t, 4, store.stockOf("p1"))
}

func TestConflictRetriesAreBounded(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 5, priceCents: 100},
	})
	store.conflicts = 10
	co := &Coordinator{Store: store, Orders: store}

	_, err := co.PlaceOrder(context.Background(), cartWith(CartItem{ProductID: "p1", Qty: 1}))
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 5, store.stockOf("p1"))
	assert.Equal(t, 0, store.orderCount())
}

func TestOrderInsertFailureReleasesReservations(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 5, priceCents: 100},
		"p2": {stock: 5, priceCents: 100},
	})
	store.insertErr = errors.New("orders table unavailable")
	co := &Coordinator{Store: store, Orders: store}

	_, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "p1", Qty: 2},
		CartItem{ProductID: "p2", Qty: 3},
	))
	require.Error(t, err)
	assert.Equal(t, 5, store.stockOf("p1"))
	assert.Equal(t, 5, store.stockOf("p2"))
	assert.Equal(t, 0, store.orderCount())
}

func TestFailedCompensationIsLogged(t *testing.T) {
	// a compensation that keeps failing must leave a trace naming the
	// stranded units, not vanish quietly
	store := newMemStore(map[string]*memProduct{
		"p1": {stock: 5, priceCents: 100},
	})
	store.releaseErr = errors.New("store offline")
	co := &Coordinator{Store: store, Orders: store}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	_, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "p1", Qty: 2},
		CartItem{ProductID: "vanished", Qty: 1},
	))
	require.ErrorAs(t, err, new(*ProductNotFoundError))

	assert.Contains(t, buf.String(), "stock release failed")
	assert.Contains(t, buf.String(), "product=p1 qty=2")
	assert.Contains(t, buf.String(), "store offline")
}

func TestTotalEqualsPriceSnapshotSum(t *testing.T) {
	store := newMemStore(map[string]*memProduct{
		"a": {stock: 10, priceCents: 1234},
		"b": {stock: 10, priceCents: 567},
	})
	co := &Coordinator{Store: store, Orders: store}

	o, err := co.PlaceOrder(context.Background(), cartWith(
		CartItem{ProductID: "a", Qty: 3},
		CartItem{ProductID: "b", Qty: 2},
	))
	require.NoError(t, err)

	sum := 0
	for _, it := range o.Items {
		sum += it.Qty * it.PriceCents
	}
	assert.Equal(t, sum, o.TotalCents)
	assert.Equal(t, 3*1234+2*567, o.TotalCents)
}
