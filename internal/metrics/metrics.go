// Package metrics exposes the prometheus counters tracked by the
// authentication core. Counters register on the default registry and are
// served by the promhttp handler mounted on the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	TokenVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_verifications_total",
		Help: "Token verifications by outcome.",
	}, []string{"outcome"})

	RefreshRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refresh_rotations_total",
		Help: "Successful refresh-token rotations.",
	})

	RateLimitedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter.",
	})
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
