package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quangdm/go-storefront.git/internal/catalog"
	"github.com/quangdm/go-storefront.git/internal/checkout"
	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/users"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto distinguishable kinds so the UI can
// render "insufficient stock for X" apart from "item no longer exists".
func writeError(w http.ResponseWriter, err error) {
	var stockErr *checkout.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "InsufficientStock",
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
			"shortfall":  stockErr.Shortfall(),
		})
		return
	}
	var missingErr *checkout.ProductNotFoundError
	if errors.As(err, &missingErr) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":      "ProductNotFound",
			"product_id": missingErr.ProductID,
		})
		return
	}

	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "OrderNotFound"})
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ProductNotFound"})
	case errors.Is(err, users.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "UserNotFound"})
	case errors.Is(err, orders.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "InvalidStatus"})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "InvalidTransition"})
	case errors.Is(err, orders.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "StatusConflict"})
	case errors.Is(err, users.ErrBadCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	case errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrBadQuantity),
		errors.Is(err, checkout.ErrMissingAddress),
		errors.Is(err, checkout.ErrMissingCustomer),
		errors.Is(err, checkout.ErrBadPayment),
		errors.Is(err, catalog.ErrMissingName),
		errors.Is(err, catalog.ErrNegativePrice),
		errors.Is(err, catalog.ErrNegativeStock),
		errors.Is(err, catalog.ErrMissingSupplier),
		errors.Is(err, catalog.ErrBadStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
