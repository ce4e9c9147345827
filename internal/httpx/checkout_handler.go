package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/quangdm/go-storefront.git/internal/checkout"
	kafkax "github.com/quangdm/go-storefront.git/internal/kafka"
	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/users"
)

// IdempotencyHeader lets a client retry a checkout after a network failure
// without placing the order twice.
const IdempotencyHeader = "Idempotency-Key"

// OrderReader is the slice of the orders repo the checkout surface needs.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (orders.Order, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CheckoutHandler struct {
	Coordinator *checkout.Coordinator
	Orders      OrderReader
	Idem        IdemStore
	Cache       StatusCache
	Producer    Publisher
	Tokens      *users.TokenIssuer
	Service     string
}

type checkoutReq struct {
	Items           []checkout.CartItem `json:"items"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   string              `json:"payment_method"`
}

type checkoutResp struct {
	OrderID    string        `json:"order_id"`
	TotalCents int           `json:"total_cents"`
	Status     orders.Status `json:"status"`
	Idempotent bool          `json:"idempotent"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens))
		r.Post("/checkout", h.checkout)
	})
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Claim the idempotency key before reserving anything, so two concurrent
	// requests with the same key cannot both place orders. A replay of a
	// finished checkout returns the original order untouched; a key whose
	// first attempt is still running is rejected rather than duplicated.
	// When redis itself errors the checkout proceeds without replay
	// protection, matching the best-effort role of the cache.
	idemKey := r.Header.Get(IdempotencyHeader)
	claimed := false
	if idemKey != "" {
		ok, existing, err := h.Idem.Claim(ctx, idemKey)
		if err == nil && !ok {
			if existing == "" {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "CheckoutInProgress"})
				return
			}
			o, err := h.Orders.GetByID(ctx, existing)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, checkoutResp{OrderID: o.ID, TotalCents: o.TotalCents, Status: o.Status, Idempotent: true})
			return
		}
		claimed = err == nil && ok
	}

	o, err := h.Coordinator.PlaceOrder(ctx, checkout.Cart{
		CustomerID:      claims.Subject,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		if claimed {
			_ = h.Idem.Release(context.WithoutCancel(ctx), idemKey)
		}
		writeError(w, err)
		return
	}

	if claimed {
		_ = h.Idem.Complete(ctx, idemKey, o.ID)
	}
	h.Cache.PutStatus(ctx, o.ID, o.Status)

	items := make([]orders.ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemPrice{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
	}
	ev.Payload = kafkax.MustMarshal(orders.OrderPlacedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		TotalCents: o.TotalCents,
	})
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusCreated, checkoutResp{OrderID: o.ID, TotalCents: o.TotalCents, Status: o.Status})
}
