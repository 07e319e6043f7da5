package handler

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/eventcrm/internal/observability/metrics"
	"github.com/aryan0dhankhar/eventcrm/internal/security/middleware"
	"github.com/aryan0dhankhar/eventcrm/internal/security/ratelimit"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

// Services are the entity services exposed over HTTP.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Clients   *service.ClientService
	Contracts *service.ContractService
	Events    *service.EventService
}

// RouterConfig carries the optional pieces of the HTTP surface.
type RouterConfig struct {
	Logger *slog.Logger
	// DevErrors exposes internal error detail in 5xx responses.
	DevErrors    bool
	LoginLimiter *ratelimit.Limiter
	Health       *HealthHandler
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the JSON API. Middleware order, outermost first:
// tracing, request ID, input sanitizing, bearer extraction, content type, metrics.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	rs := responder{logger: log, devErrors: cfg.DevErrors}

	authH := &authHandler{responder: rs, authService: svc.Auth}
	usersH := &usersHandler{responder: rs, users: svc.Users}
	clientsH := &clientsHandler{responder: rs, clients: svc.Clients}
	contractsH := &contractsHandler{responder: rs, contracts: svc.Contracts}
	eventsH := &eventsHandler{responder: rs, events: svc.Events}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", middleware.LoginRateLimit(cfg.LoginLimiter, log)(http.HandlerFunc(authH.login)))
	mux.HandleFunc("POST /api/auth/logout", authH.logout)
	mux.HandleFunc("GET /api/auth/me", authH.me)

	mux.HandleFunc("GET /api/users", usersH.list)
	mux.HandleFunc("POST /api/users", usersH.create)
	mux.HandleFunc("GET /api/users/{id}", usersH.get)
	mux.HandleFunc("PATCH /api/users/{id}", usersH.update)
	mux.HandleFunc("DELETE /api/users/{id}", usersH.delete)

	mux.HandleFunc("GET /api/clients", clientsH.list)
	mux.HandleFunc("POST /api/clients", clientsH.create)
	mux.HandleFunc("GET /api/clients/{id}", clientsH.get)
	mux.HandleFunc("PATCH /api/clients/{id}", clientsH.update)
	mux.HandleFunc("DELETE /api/clients/{id}", clientsH.delete)

	mux.HandleFunc("GET /api/contracts", contractsH.list)
	mux.HandleFunc("POST /api/contracts", contractsH.create)
	mux.HandleFunc("GET /api/contracts/{id}", contractsH.get)
	mux.HandleFunc("PATCH /api/contracts/{id}", contractsH.update)
	mux.HandleFunc("DELETE /api/contracts/{id}", contractsH.delete)

	mux.HandleFunc("GET /api/events", eventsH.list)
	mux.HandleFunc("POST /api/events", eventsH.create)
	mux.HandleFunc("GET /api/events/{id}", eventsH.get)
	mux.HandleFunc("PATCH /api/events/{id}", eventsH.update)
	mux.HandleFunc("PUT /api/events/{id}/support", eventsH.assignSupport)
	mux.HandleFunc("DELETE /api/events/{id}", eventsH.delete)

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler(nil, log)
	}
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	var h http.Handler = metrics.HTTPMetricsMiddleware(mux)
	h = middleware.ValidateJSONContentType(log)(h)
	h = middleware.BearerToken(log)(h)
	h = middleware.SanitizeInputs(log)(h)
	h = middleware.RequestID(log)(h)
	return otelhttp.NewHandler(h, "eventcrm-api")
}
