package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/fenestra-platform/fenestra/internal/api"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Middleware returns an HTTP middleware validating bearer tokens for the
// given principal class and storing the claims in the request context. With
// several principals, the first whose secret verifies the token wins.
func Middleware(v *Verifier, principals ...Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			var claims *Claims
			var err error
			for _, principal := range principals {
				claims, err = v.Validate(principal, parts[1])
				if err == nil {
					break
				}
			}
			if claims == nil || err != nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the verified claims from the request context, or nil.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}
