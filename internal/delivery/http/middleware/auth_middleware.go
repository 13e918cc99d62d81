package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"wound-analysis-service/pkg/identity"
	"wound-analysis-service/pkg/response"
)

type contextKey string

const (
	ClaimsKey       contextKey = "claims"
	ProfessionalKey contextKey = "professional"
)

// AuthMiddleware verifies the bearer credential issued by the external
// identity provider. Missing or expired credentials are 401 (the client
// should re-authenticate); credentials that fail verification for any
// other reason are 403.
type AuthMiddleware struct {
	verifier identity.Verifier
}

func NewAuthMiddleware(verifier identity.Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				response.Unauthorized(w, "Credential has expired")
				return
			}
			response.Forbidden(w, "Credential is invalid")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext extracts the verified identity claims from context
func GetClaimsFromContext(ctx context.Context) (*identity.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*identity.Claims)
	return claims, ok
}
