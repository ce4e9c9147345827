package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quangdm/go-storefront.git/internal/users"
)

type AuthHandler struct {
	Users  *users.Repo
	Tokens *users.TokenIssuer
}

type registerReq struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Phone    string     `json:"phone"`
	Address  string     `json:"address"`
	Role     users.Role `json:"role"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string     `json:"access_token"`
	User        users.User `json:"user"`
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens))
		r.Get("/auth/me", h.me)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	// admins are provisioned out of band, not self-registered
	role := req.Role
	if role == "" {
		role = users.RoleCustomer
	}
	if role != users.RoleCustomer && role != users.RoleSupplier {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, users.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		// same response as a bad password, no user enumeration
		writeError(w, users.ErrBadCredentials)
		return
	}
	if err := users.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeError(w, err)
		return
	}
	token, err := h.Tokens.Issue(u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResp{AccessToken: token, User: u})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
