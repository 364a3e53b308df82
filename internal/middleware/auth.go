package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rookgm/chowline/internal/models"
)

type contextKey int

const (
	contextKeyStaff contextKey = iota
)

// TokenVerifier validates a token string and returns its payload
type TokenVerifier interface {
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// Auth guards staff routes with a bearer token
func Auth(tv TokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			payload, err := tv.VerifyToken(tokenString)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyStaff, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffFromContext extracts the authenticated staff payload
func StaffFromContext(ctx context.Context) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(contextKeyStaff).(*models.TokenPayload)
	return payload, ok
}
