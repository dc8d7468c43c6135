package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cagongu/blog-backend/internal/authz"
	"github.com/cagongu/blog-backend/internal/metrics"
	"github.com/cagongu/blog-backend/internal/token"
)

type principalKey struct{}

// Auth is the request-authentication boundary for protected routes. It
// verifies the bearer token with the strict decoder variant and attaches the
// principal to the request context for the policy layer.
type Auth struct {
	verifier *token.Verifier
	log      *zap.Logger
}

func NewAuth(verifier *token.Verifier, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{verifier: verifier, log: log}
}

func (m *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := m.verifier.VerifyRequest(raw)
		metrics.TokenVerifications.WithLabelValues(token.Outcome(err)).Inc()
		if err != nil {
			m.log.Debug("rejected bearer token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		principal := authz.Principal{Subject: claims.Subject, Scopes: claims.Scopes()}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after Authenticate. A verified principal without the
// admin role gets 403, never 401.
func (m *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !principal.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func PrincipalFromContext(ctx context.Context) (authz.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(authz.Principal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	raw := header[len(prefix):]
	if raw == "" {
		return "", false
	}
	return raw, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
