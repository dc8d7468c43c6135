package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cagongu/blog-backend/internal/metrics"
	"github.com/cagongu/blog-backend/internal/ratelimit"
)

// RateLimit is the admission boundary. It runs before authentication:
// a throttled client never reaches the verifier or the business layer.
type RateLimit struct {
	limiter *ratelimit.Limiter
	log     *zap.Logger
}

func NewRateLimit(limiter *ratelimit.Limiter, log *zap.Logger) *RateLimit {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimit{limiter: limiter, log: log}
}

func (m *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := clientIdentity(r)
		if !m.limiter.TryConsume(identity) {
			metrics.RateLimitedRequests.Inc()
			m.log.Warn("rate limit exceeded", zap.String("client", identity))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIdentity keys the bucket map: the first entry of X-Forwarded-For
// when present, otherwise the connection address without the port.
func clientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
