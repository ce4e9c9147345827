package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/quangdm/go-storefront.git/internal/users"
)

type ctxKey int

const claimsKey ctxKey = 0

// Authenticate resolves the bearer token into claims and stores them on the
// request context. No token, no access.
func Authenticate(tokens *users.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func RequireRole(roles ...users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		})
	}
}

func ClaimsFrom(ctx context.Context) (users.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(users.Claims)
	return c, ok
}
