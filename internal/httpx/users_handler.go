package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quangdm/go-storefront.git/internal/users"
)

type UsersHandler struct {
	Users  *users.Repo
	Tokens *users.TokenIssuer
}

func (h *UsersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens))
		r.With(RequireRole(users.RoleAdmin)).Get("/users", h.list)
		r.With(RequireRole(users.RoleAdmin)).Delete("/users/{id}", h.remove)
		r.Get("/users/{id}", h.get)
		r.Patch("/users/{id}", h.update)
	})
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Users.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")
	// only admins may edit other accounts
	if claims.Role != users.RoleAdmin && claims.Subject != id {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	}

	var in users.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Update(ctx, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
