package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	usertoken "github.com/tokenmarket/usertoken"
)

// RequestID adds a uuid to the request context under usertoken.RequestIDKey.
func RequestID() Adapter {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), usertoken.RequestIDKey, uuid.NewString())
			h.ServeHTTP(w, r.Clone(ctx))
		})
	}
}
