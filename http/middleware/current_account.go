package middleware

import (
	"context"
	"net/http"
	"strings"

	usertoken "github.com/tokenmarket/usertoken"
)

// The cookie the login flow stores the session credential in.
const AuthTokenCookie = "auth_token"

// A CredentialDecoder turns a session credential into the account embedded
// in it, or nil for anything tampered, expired, or malformed.
type CredentialDecoder func(credential string) *usertoken.UserTokenResponse

// CurrentAccount decodes the request's session credential, if any,
// and stashes the embedded account under usertoken.CurrentAccountKey.
//
// The credential is read from the auth_token cookie first,
// then the Authorization header, with or without a Bearer prefix.
// Requests without a decodable credential pass through anonymously;
// this middleware never rejects.
//
// If decode is nil, NoopAdapter returns and this middleware does nothing.
func CurrentAccount(decode CredentialDecoder) Adapter {
	if decode == nil {
		return NoopAdapter
	}

	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := credentialFromRequest(r)
			if credential == "" {
				handler.ServeHTTP(w, r)
				return
			}

			account := decode(credential)
			if account == nil {
				handler.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), usertoken.CurrentAccountKey, account)
			handler.ServeHTTP(w, r.Clone(ctx))
		})
	}
}

// AccountFromContext retrieves the account CurrentAccount stashed, if any.
func AccountFromContext(ctx context.Context) *usertoken.UserTokenResponse {
	account, _ := ctx.Value(usertoken.CurrentAccountKey).(*usertoken.UserTokenResponse)
	return account
}

func credentialFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AuthTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
