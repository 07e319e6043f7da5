package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcrm_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventcrm_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authorizationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcrm_authorization_decisions_total",
		Help: "Permission guard decisions by permission, department and result",
	}, []string{"permission", "department", "result"})

	ownershipDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcrm_ownership_denials_total",
		Help: "Entity-level denials after the guard passed",
	}, []string{"entity", "reason"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventcrm_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	contractsSigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventcrm_contracts_signed_total",
		Help: "Contracts transitioned from unsigned to signed",
	})

	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventcrm_store_operation_duration_seconds",
		Help:    "Duration of persistence operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "operation", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthorization records a guard decision. result is "allowed", "denied" or "unauthenticated".
func ObserveAuthorization(permission, department, result string) {
	if department == "" {
		department = "none"
	}
	authorizationDecisions.WithLabelValues(permission, department, result).Inc()
}

// ObserveOwnershipDenial counts an entity-level rejection.
func ObserveOwnershipDenial(entity, reason string) {
	ownershipDenials.WithLabelValues(entity, reason).Inc()
}

// ObserveLogin counts a login attempt with its result.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// IncrementContractsSigned counts a contract signature.
func IncrementContractsSigned() {
	contractsSigned.Inc()
}

// ObserveStoreOperation records the duration of a repository call.
func ObserveStoreOperation(entity, operation string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOperationDuration.WithLabelValues(entity, operation, result).Observe(duration.Seconds())
}
