package middleware

import (
	"net/http"

	"github.com/ayush/expense-tracker/backend/internal/auth"
	"github.com/ayush/expense-tracker/backend/internal/httpio"
)

// TokenHeader carries the raw signed token; there is no "Bearer" prefix.
const TokenHeader = "x-auth-token"

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth is middleware that verifies the token header and injects the
// caller's principal into the request context (read it with
// auth.PrincipalFrom). Rejected requests never reach next.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				httpio.WriteMessage(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				httpio.WriteMessage(w, http.StatusUnauthorized, "Token is not valid")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), claims.User)))
		})
	}
}
