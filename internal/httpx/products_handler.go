package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quangdm/go-storefront.git/internal/catalog"
	"github.com/quangdm/go-storefront.git/internal/users"
)

type ProductsHandler struct {
	Catalog *catalog.Repo
	Tokens  *users.TokenIssuer
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/products", h.list)
	r.Get("/products/search", h.search)
	r.Get("/products/by-category/{id}", h.byCategory)
	r.Get("/products/by-supplier/{id}", h.bySupplier)
	r.Get("/products/{id}", h.get)
	r.Get("/categories", h.categories)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens))
		r.With(RequireRole(users.RoleSupplier, users.RoleAdmin)).Post("/products", h.create)
		r.With(RequireRole(users.RoleSupplier, users.RoleAdmin)).Post("/products/{id}/restock", h.restock)
		r.With(RequireRole(users.RoleAdmin)).Patch("/products/{id}/status", h.setStatus)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// admins see pending/rejected listings too; the route stays public so the
	// token is optional here
	all := false
	if raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); raw != "" {
		if claims, err := h.Tokens.Verify(raw); err == nil && claims.Role == users.RoleAdmin {
			all = true
		}
	}
	ps, err := h.Catalog.List(ctx, all)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.SearchByName(ctx, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) byCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListByCategory(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) bySupplier(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListBySupplier(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cs, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	// suppliers create listings under their own id
	if claims, ok := ClaimsFrom(r.Context()); ok && claims.Role == users.RoleSupplier {
		in.SupplierID = claims.Subject
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Catalog.Create(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status catalog.ProductStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Catalog.SetStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Catalog.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	claims, _ := ClaimsFrom(r.Context())
	if !canRestock(claims, p) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	p, err = h.Catalog.AddStock(ctx, p.ID, req.Qty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// suppliers top up their own listings only; admins may restock anything
func canRestock(claims users.Claims, p catalog.Product) bool {
	if claims.Role == users.RoleAdmin {
		return true
	}
	return claims.Role == users.RoleSupplier && p.SupplierID == claims.Subject
}
