package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/eventcrm/internal/repository"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
	"github.com/aryan0dhankhar/eventcrm/internal/security/ratelimit"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
	"github.com/aryan0dhankhar/eventcrm/pkg/database"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type api struct {
	t       *testing.T
	handler http.Handler
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "198.51.100.7:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var out service.LoginResult
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// newAPI wires the router over sqlite-backed services with a bootstrapped
// management account plus one commercial and one support user.
func newAPI(t *testing.T, cfg RouterConfig) *api {
	t.Helper()
	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, &database.Config{URL: ":memory:"}, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	db := pool.GetDB()
	require.NoError(t, repository.EnsureSchema(ctx, db, pool.Dialect()))

	users := repository.NewUserRepository(db, quiet)
	departments := repository.NewDepartmentRepository(db, quiet)
	clients := repository.NewClientRepository(db, quiet)
	contracts := repository.NewContractRepository(db, quiet)
	events := repository.NewEventRepository(db, quiet)

	tokens, err := auth.NewTokenManager(auth.Options{Secret: "handler-test-secret"})
	require.NoError(t, err)
	revocations := auth.NewMemoryRevocationList()
	auditLog := audit.NewLogger(quiet)
	deps := service.Deps{
		Guard:  security.NewGuard(tokens, revocations, auditLog, quiet),
		Audit:  auditLog,
		Logger: quiet,
	}
	svc := Services{
		Auth:      service.NewAuthService(users, departments, tokens, revocations, deps),
		Users:     service.NewUserService(users, departments, deps),
		Clients:   service.NewClientService(clients, deps),
		Contracts: service.NewContractService(contracts, clients, deps),
		Events:    service.NewEventService(events, contracts, clients, users, deps),
	}
	_, err = svc.Auth.Bootstrap(ctx, service.BootstrapRequest{FullName: "Gina Gestion", Email: "gina@example.com", Password: "gina-pass"})
	require.NoError(t, err)

	if cfg.Logger == nil {
		cfg.Logger = quiet
	}
	a := &api{t: t, handler: NewRouter(svc, cfg)}

	gina := a.login("gina@example.com", "gina-pass")
	for _, u := range []CreateUserRequest{
		{FullName: "Carl Commercial", Email: "carl@example.com", Password: "carl-pass", Department: "commercial"},
		{FullName: "Cora Commercial", Email: "cora@example.com", Password: "cora-pass", Department: "commercial"},
		{FullName: "Sam Support", Email: "sam@example.com", Password: "sam-pass", Department: "support"},
	} {
		rec := a.do(http.MethodPost, "/api/users", gina, u)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return a
}

func TestLoginAndSession(t *testing.T) {
	a := newAPI(t, RouterConfig{})

	rec := a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "carl@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeBody[ErrorResponse](t, rec).Error)

	rec = a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ghost@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeBody[ErrorResponse](t, rec).Error)

	carl := a.login("carl@example.com", "carl-pass")
	me := decodeBody[UserResponse](t, a.do(http.MethodGet, "/api/auth/me", carl, nil))
	assert.Equal(t, "commercial", me.Department)
	assert.Equal(t, "carl@example.com", me.Email)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/clients", "not-a-token", nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/auth/logout", carl, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/auth/me", carl, nil).Code,
		"revoked token must be refused")
}

func TestLoginRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(6, time.Minute)
	defer limiter.Stop()
	// newAPI itself performs one login.
	a := newAPI(t, RouterConfig{LoginLimiter: limiter})

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "carl@example.com", Password: "bad"}).Code)
	}
	assert.Equal(t, []int{401, 401, 401, 401, 401, 429}, codes)
}

func TestClientOwnershipOverHTTP(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	carl := a.login("carl@example.com", "carl-pass")
	cora := a.login("cora@example.com", "cora-pass")
	sam := a.login("sam@example.com", "sam-pass")
	gina := a.login("gina@example.com", "gina-pass")

	rec := a.do(http.MethodPost, "/api/clients", carl, CreateClientRequest{FullName: "Acme", Email: "events@acme.io", CompanyName: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	client := decodeBody[ClientResponse](t, rec)
	me := decodeBody[UserResponse](t, a.do(http.MethodGet, "/api/auth/me", carl, nil))
	require.NotNil(t, client.SalesContactID)
	assert.Equal(t, me.ID, *client.SalesContactID)

	path := fmt.Sprintf("/api/clients/%d", client.ID)
	phone := "+33 1 23 45 67 89"
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, path, cora, UpdateClientRequest{Phone: &phone}).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, path, gina, UpdateClientRequest{Phone: &phone}).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/clients", sam, CreateClientRequest{FullName: "X", Email: "x@y.z"}).Code)

	rec = a.do(http.MethodPatch, path, carl, UpdateClientRequest{Phone: &phone})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, phone, decodeBody[ClientResponse](t, rec).Phone)

	for _, tok := range []string{carl, cora, sam, gina} {
		rec := a.do(http.MethodGet, "/api/clients", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]ClientResponse](t, rec), 1)
	}
	assert.Len(t, decodeBody[[]ClientResponse](t, a.do(http.MethodGet, "/api/clients?mine=true", cora, nil)), 0)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/clients?mine=maybe", carl, nil).Code)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, path, cora, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, path, carl, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, carl, nil).Code)
}

func TestContractAndEventLifecycle(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	carl := a.login("carl@example.com", "carl-pass")
	cora := a.login("cora@example.com", "cora-pass")
	sam := a.login("sam@example.com", "sam-pass")
	gina := a.login("gina@example.com", "gina-pass")

	client := decodeBody[ClientResponse](t, a.do(http.MethodPost, "/api/clients", carl, CreateClientRequest{FullName: "Acme", Email: "events@acme.io"}))

	// Commercial may not create contracts; management does.
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/contracts", carl, CreateContractRequest{ClientID: client.ID, Amount: 1000}).Code)
	rec := a.do(http.MethodPost, "/api/contracts", gina, CreateContractRequest{ClientID: client.ID, Amount: 1000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contract := decodeBody[ContractResponse](t, rec)
	assert.False(t, contract.Signed)
	assert.Equal(t, 1000.0, contract.RemainingAmount)
	assert.Equal(t, client.SalesContactID, contract.SalesContactID)

	cpath := fmt.Sprintf("/api/contracts/%d", contract.ID)
	signed := true
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, cpath, cora, UpdateContractRequest{Signed: &signed}).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, cpath, sam, UpdateContractRequest{Signed: &signed}).Code)
	rec = a.do(http.MethodPatch, cpath, carl, UpdateContractRequest{Signed: &signed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[ContractResponse](t, rec).Signed)

	unsigned := false
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, cpath, carl, UpdateContractRequest{Signed: &unsigned}).Code)
	assert.Len(t, decodeBody[[]ContractResponse](t, a.do(http.MethodGet, "/api/contracts?unsigned=true", sam, nil)), 0)
	assert.Len(t, decodeBody[[]ContractResponse](t, a.do(http.MethodGet, "/api/contracts?unpaid=true", sam, nil)), 1)

	start := time.Date(2027, 6, 1, 18, 0, 0, 0, time.UTC)
	newEvent := CreateEventRequest{ContractID: contract.ID, Name: "Summer gala", StartDate: start, EndDate: start.Add(6 * time.Hour), Location: "Paris", Attendees: 120}
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/events", cora, newEvent).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/events", sam, newEvent).Code)
	rec = a.do(http.MethodPost, "/api/events", carl, newEvent)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decodeBody[EventResponse](t, rec)
	assert.Equal(t, client.ID, event.ClientID)
	assert.Nil(t, event.SupportContactID)

	assert.Len(t, decodeBody[[]EventResponse](t, a.do(http.MethodGet, "/api/events?without_support=true", gina, nil)), 1)

	sams := decodeBody[[]UserResponse](t, a.do(http.MethodGet, "/api/users?department=support", gina, nil))
	require.Len(t, sams, 1)
	carlUser := decodeBody[UserResponse](t, a.do(http.MethodGet, "/api/auth/me", carl, nil))

	epath := fmt.Sprintf("/api/events/%d", event.ID)
	notes := "Vegan menu"
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, epath, sam, UpdateEventRequest{Notes: &notes}).Code, "not assigned yet")
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPut, epath+"/support", carl, AssignSupportRequest{SupportContactID: sams[0].ID}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, epath+"/support", gina, AssignSupportRequest{SupportContactID: carlUser.ID}).Code)
	rec = a.do(http.MethodPut, epath+"/support", gina, AssignSupportRequest{SupportContactID: sams[0].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPatch, epath, sam, UpdateEventRequest{Notes: &notes})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, notes, decodeBody[EventResponse](t, rec).Notes)

	name := "Winter gala"
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, epath, sam, UpdateEventRequest{Notes: &notes, Name: &name}).Code)
	assert.Equal(t, "Summer gala", decodeBody[EventResponse](t, a.do(http.MethodGet, epath, sam, nil)).Name)
	assert.Len(t, decodeBody[[]EventResponse](t, a.do(http.MethodGet, "/api/events?mine=true", sam, nil)), 1)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, cpath, gina, nil).Code, "contract still has events")
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, epath, carl, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, epath, gina, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, cpath, gina, nil).Code)
}

func TestUserManagementIsManagementOnly(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	carl := a.login("carl@example.com", "carl-pass")
	gina := a.login("gina@example.com", "gina-pass")

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/users", carl, nil).Code)
	assert.Len(t, decodeBody[[]UserResponse](t, a.do(http.MethodGet, "/api/users", gina, nil)), 4)

	rec := a.do(http.MethodPost, "/api/users", gina, CreateUserRequest{FullName: "Dup", Email: "carl@example.com", Password: "x", Department: "support"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(http.MethodPost, "/api/users", gina, CreateUserRequest{FullName: "Mark", Email: "mark@example.com", Password: "x", Department: "marketing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	gina := a.login("gina@example.com", "gina-pass")

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/clients/abc", gina, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/clients/999", gina, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/events?limit=-1", gina, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/contracts", gina, map[string]any{"client_id": 1, "amount": 10, "signed": true}).Code,
		"unknown fields are rejected")

	rec := a.do(http.MethodGet, "/api/clients", gina, nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthAndMetrics(t *testing.T) {
	failing := errors.New("connection refused")
	health := NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return failing },
		"unused":   nil,
	}, quiet)
	a := newAPI(t, RouterConfig{Health: health, Metrics: promhttp.Handler()})

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil).Code)

	rec := a.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	ready := decodeBody[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Checks["database"])
	assert.Contains(t, ready.Checks["redis"], "connection refused")
	assert.NotContains(t, ready.Checks, "unused")

	rec = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventcrm_")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{security.ErrUnauthenticated, http.StatusUnauthorized},
		{security.Deny(security.Identity{UserID: 1}, security.PermDeleteUser, ""), http.StatusForbidden},
		{fmt.Errorf("wrap: %w", auth.ErrRevocationUnavailable), http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, _ := StatusFor(tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
	}
}
