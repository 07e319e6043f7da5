package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
	"github.com/aryan0dhankhar/eventcrm/internal/telemetry"
)

// calls counts repository invocations so tests can assert that denied calls never reach storage.
type calls struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *calls) hit(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[op]++
}

func (c *calls) count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[op]
}

func (c *calls) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

type memDepartments struct {
	byName map[domain.Department]*domain.DepartmentRecord
}

func newMemDepartments() *memDepartments {
	return &memDepartments{byName: map[domain.Department]*domain.DepartmentRecord{}}
}

func (m *memDepartments) Ensure(_ context.Context, name domain.Department) (*domain.DepartmentRecord, error) {
	if rec, ok := m.byName[name]; ok {
		return rec, nil
	}
	rec := &domain.DepartmentRecord{ID: int64(len(m.byName) + 1), Name: name}
	m.byName[name] = rec
	return rec, nil
}

func (m *memDepartments) GetByName(_ context.Context, name domain.Department) (*domain.DepartmentRecord, error) {
	if rec, ok := m.byName[name]; ok {
		return rec, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memDepartments) List(context.Context) ([]*domain.DepartmentRecord, error) {
	out := []*domain.DepartmentRecord{}
	for _, rec := range m.byName {
		out = append(out, rec)
	}
	return out, nil
}

type memUsers struct {
	calls
	byID   map[int64]*domain.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.hit("create")
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.hit("get")
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.hit("get")
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) List(_ context.Context, f domain.UserFilter) ([]*domain.User, error) {
	m.hit("list")
	out := []*domain.User{}
	for _, u := range m.byID {
		if f.Department == "" || u.Department == f.Department {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.hit("update")
	if _, ok := m.byID[u.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.hit("delete")
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	return len(m.byID), nil
}

func (m *memUsers) add(t *testing.T, email string, dept domain.Department, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := &domain.User{FullName: email, Email: email, PasswordHash: hash, Department: dept}
	require.NoError(t, m.Create(context.Background(), u))
	return u
}

type memClients struct {
	calls
	byID   map[int64]*domain.Client
	nextID int64
	// createErr, when set, is returned by Create instead of storing.
	createErr error
}

func newMemClients() *memClients {
	return &memClients{byID: map[int64]*domain.Client{}}
}

func (m *memClients) Create(_ context.Context, c *domain.Client) error {
	m.hit("create")
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memClients) GetByID(_ context.Context, id int64) (*domain.Client, error) {
	m.hit("get")
	if c, ok := m.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memClients) List(_ context.Context, f domain.ClientFilter) ([]*domain.Client, error) {
	m.hit("list")
	out := []*domain.Client{}
	for _, c := range m.byID {
		if f.SalesContactID == nil || c.OwnedBy(*f.SalesContactID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memClients) Update(_ context.Context, c *domain.Client) error {
	m.hit("update")
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memClients) Delete(_ context.Context, id int64) error {
	m.hit("delete")
	delete(m.byID, id)
	return nil
}

func (m *memClients) add(owner int64) *domain.Client {
	o := owner
	c := &domain.Client{FullName: "Client", Email: "client@example.com", SalesContactID: &o}
	_ = m.Create(context.Background(), c)
	return c
}

type memContracts struct {
	calls
	byID   map[int64]*domain.Contract
	nextID int64
}

func newMemContracts() *memContracts {
	return &memContracts{byID: map[int64]*domain.Contract{}}
}

func (m *memContracts) Create(_ context.Context, c *domain.Contract) error {
	m.hit("create")
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memContracts) GetByID(_ context.Context, id int64) (*domain.Contract, error) {
	m.hit("get")
	if c, ok := m.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memContracts) List(_ context.Context, f domain.ContractFilter) ([]*domain.Contract, error) {
	m.hit("list")
	out := []*domain.Contract{}
	for _, c := range m.byID {
		if f.Unsigned && c.Signed {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memContracts) Update(_ context.Context, c *domain.Contract) error {
	m.hit("update")
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memContracts) Delete(_ context.Context, id int64) error {
	m.hit("delete")
	delete(m.byID, id)
	return nil
}

func (m *memContracts) add(client *domain.Client, amount float64) *domain.Contract {
	c := &domain.Contract{ClientID: client.ID, SalesContactID: client.SalesContactID, Amount: amount, RemainingAmount: amount}
	_ = m.Create(context.Background(), c)
	return c
}

type memEvents struct {
	calls
	byID   map[int64]*domain.Event
	nextID int64
}

func newMemEvents() *memEvents {
	return &memEvents{byID: map[int64]*domain.Event{}}
}

func (m *memEvents) Create(_ context.Context, e *domain.Event) error {
	m.hit("create")
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEvents) GetByID(_ context.Context, id int64) (*domain.Event, error) {
	m.hit("get")
	if e, ok := m.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memEvents) List(_ context.Context, f domain.EventFilter) ([]*domain.Event, error) {
	m.hit("list")
	out := []*domain.Event{}
	for _, e := range m.byID {
		if f.SupportContactID != nil && !e.AssignedTo(*f.SupportContactID) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memEvents) Update(_ context.Context, e *domain.Event) error {
	m.hit("update")
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEvents) Delete(_ context.Context, id int64) error {
	m.hit("delete")
	delete(m.byID, id)
	return nil
}

func (m *memEvents) add(contract *domain.Contract, support *int64) *domain.Event {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	e := &domain.Event{
		ContractID:       contract.ID,
		ClientID:         contract.ClientID,
		SupportContactID: support,
		Name:             "Launch party",
		StartDate:        start,
		EndDate:          start.Add(3 * time.Hour),
		Location:         "Hall A",
		Attendees:        50,
	}
	_ = m.Create(context.Background(), e)
	return e
}

// harness wires every service over in-memory repositories and a real HS256 token manager.
type harness struct {
	t           *testing.T
	tokens      *auth.TokenManager
	revocations *auth.MemoryRevocationList
	users       *memUsers
	departments *memDepartments
	clients     *memClients
	contracts   *memContracts
	events      *memEvents

	auditOut bytes.Buffer
	logOut   bytes.Buffer
	sink     *recordingSink

	auth        *AuthService
	userSvc     *UserService
	clientSvc   *ClientService
	contractSvc *ContractService
	eventSvc    *EventService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := auth.NewTokenManager(auth.Options{Secret: "test-secret"})
	require.NoError(t, err)

	h := &harness{
		t:           t,
		tokens:      tokens,
		revocations: auth.NewMemoryRevocationList(),
		users:       newMemUsers(),
		departments: newMemDepartments(),
		clients:     newMemClients(),
		contracts:   newMemContracts(),
		events:      newMemEvents(),
		sink:        &recordingSink{},
	}
	for _, d := range domain.Departments() {
		_, _ = h.departments.Ensure(context.Background(), d)
	}

	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&h.auditOut, nil)))
	deps := Deps{
		Guard:  security.NewGuard(tokens, h.revocations, auditLog, nil),
		Audit:  auditLog,
		Sink:   h.sink,
		Logger: slog.New(slog.NewJSONHandler(&h.logOut, nil)),
	}
	h.auth = NewAuthService(h.users, h.departments, tokens, h.revocations, deps)
	h.userSvc = NewUserService(h.users, h.departments, deps)
	h.clientSvc = NewClientService(h.clients, deps)
	h.contractSvc = NewContractService(h.contracts, h.clients, deps)
	h.eventSvc = NewEventService(h.events, h.contracts, h.clients, h.users, deps)
	return h
}

// tokenFor signs a token without going through Login.
func (h *harness) tokenFor(userID int64, dept domain.Department) string {
	h.t.Helper()
	tok, _, err := h.tokens.GenerateToken(userID, dept)
	require.NoError(h.t, err)
	return tok
}

func ptr[T any](v T) *T { return &v }

// auditActions lists the action of every audit entry written so far.
func (h *harness) auditActions() []string {
	h.t.Helper()
	var out []string
	for _, rec := range decodeLines(h.t, &h.auditOut) {
		action, _ := rec["action"].(string)
		out = append(out, action)
	}
	return out
}

// warnings lists the messages logged by the services at warn level.
func (h *harness) warnings() []map[string]any {
	h.t.Helper()
	var out []map[string]any
	for _, rec := range decodeLines(h.t, &h.logOut) {
		if rec["level"] == "WARN" {
			out = append(out, rec)
		}
	}
	return out
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		out = append(out, rec)
	}
	return out
}

type capture struct {
	msg      string
	severity telemetry.Severity
	fields   map[string]any
}

type recordingSink struct {
	mu       sync.Mutex
	captures []capture
}

func (s *recordingSink) Capture(_ context.Context, msg string, severity telemetry.Severity, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures = append(s.captures, capture{msg: msg, severity: severity, fields: fields})
}

func (s *recordingSink) all() []capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capture(nil), s.captures...)
}
