package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authweb", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authweb", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authweb", Name: "login_attempts_total", Help: "Login attempts by outcome (success, invalid, validation, network)."},
		[]string{"outcome"},
	)
	SessionRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authweb", Name: "session_refreshes_total", Help: "Session refreshes by outcome (success, failed, terminal)."},
		[]string{"outcome"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "authweb", Name: "upstream_request_duration_seconds", Help: "Latency of authentication API calls.", Buckets: prometheus.DefBuckets},
		[]string{"operation", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(SessionRefreshes)
	reg.MustRegister(UpstreamDuration)
}
