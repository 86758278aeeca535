package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Aaron-1990/line-routing/pkg/auth"
)

// requireAuth wraps a handler with authentication. Interactive users
// present a Bearer JWT, machine clients an X-API-Key header. When
// authentication is disabled the handler runs as-is.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled {
			next(w, r)
			return
		}

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				s.reg.AuthFailuresTotal.Inc()
				s.respondError(w, http.StatusUnauthorized, "Authorization header must use Bearer scheme")
				return
			}

			claims, err := s.jwtManager.ValidateToken(r.Context(), token)
			if err != nil {
				s.reg.AuthFailuresTotal.Inc()
				s.respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next(w, r.WithContext(ctx))
			return
		}

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if s.apiKeyStore == nil || !s.apiKeyStore.Verify(apiKey) {
				s.reg.AuthFailuresTotal.Inc()
				s.respondError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			// API keys act as planner-level machine identities.
			claims := &auth.Claims{Username: "api-key", Role: auth.RolePlanner}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next(w, r.WithContext(ctx))
			return
		}

		s.reg.AuthFailuresTotal.Inc()
		s.respondError(w, http.StatusUnauthorized, "Missing authentication (Bearer token or X-API-Key header required)")
	}
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// authorizeWrite rejects callers whose role cannot modify routings.
// Returns true when the request may proceed.
func (s *Server) authorizeWrite(w http.ResponseWriter, r *http.Request) bool {
	if !s.authEnabled {
		return true
	}

	claims := ClaimsFromContext(r.Context())
	if claims == nil || !auth.CanWrite(claims.Role) {
		s.respondError(w, http.StatusForbidden, "Insufficient permissions to modify routings")
		return false
	}
	return true
}
