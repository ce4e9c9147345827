package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/quangdm/go-storefront.git/internal/kafka"
	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/redisx"
	"github.com/quangdm/go-storefront.git/internal/users"
)

type OrdersHandler struct {
	Repo     *orders.Repo
	Redis    *redis.Client
	Producer *kafkax.Producer
	Tokens   *users.TokenIssuer
	Workflow orders.Workflow
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens))
		r.With(RequireRole(users.RoleAdmin)).Get("/orders", h.listAll)
		r.Get("/orders/mine", h.listMine)
		r.Get("/orders/{id}", h.get)
		r.Get("/orders/{id}/status", h.getStatus)
		r.With(RequireRole(users.RoleSupplier, users.RoleAdmin)).Patch("/orders/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Repo.ListAll(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Repo.ListByCustomer(ctx, claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// customers only see their own orders
	if claims.Role == users.RoleCustomer && o.CustomerID != claims.Subject {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus serves from the redis cache first, falling back to the database.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Repo.GetStatus(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	b, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	from, err := h.Repo.UpdateStatus(ctx, orderID, req.Status, h.Workflow)
	if err != nil {
		writeError(w, err)
		return
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, req.Status), redisx.TTLStatusCache).Err()

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
	}
	ev.Payload = kafkax.MustMarshal(orders.StatusChangedPayload{OrderID: orderID, From: from, To: req.Status})
	h.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": req.Status})
}
