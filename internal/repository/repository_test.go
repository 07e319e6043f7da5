package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := database.NewConnectionPool(context.Background(), &database.Config{URL: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	require.NoError(t, EnsureSchema(context.Background(), pool.GetDB(), pool.Dialect()))
	return pool.GetDB()
}

func seedDepartments(t *testing.T, db *sql.DB) {
	t.Helper()
	repo := NewDepartmentRepository(db, nil)
	for _, d := range domain.Departments() {
		_, err := repo.Ensure(context.Background(), d)
		require.NoError(t, err)
	}
}

func seedUser(t *testing.T, db *sql.DB, email string, dept domain.Department) *domain.User {
	t.Helper()
	u := &domain.User{FullName: email, Email: email, PasswordHash: "x", Department: dept}
	require.NoError(t, NewUserRepository(db, nil).Create(context.Background(), u))
	return u
}

func TestDepartmentEnsureIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewDepartmentRepository(db, nil)
	ctx := context.Background()

	first, err := repo.Ensure(ctx, domain.DepartmentSupport)
	require.NoError(t, err)
	second, err := repo.Ensure(ctx, domain.DepartmentSupport)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = repo.Ensure(ctx, domain.Department("marketing"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepositoryCRUD(t *testing.T) {
	db := newTestDB(t)
	seedDepartments(t, db)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	u := seedUser(t, db, "ann@example.com", domain.DepartmentCommercial)
	assert.NotZero(t, u.ID)
	assert.NotZero(t, u.DepartmentID)

	got, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.DepartmentCommercial, got.Department)

	dup := &domain.User{FullName: "Ann", Email: "ann@example.com", PasswordHash: "x", Department: domain.DepartmentSupport}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)

	got.Department = domain.DepartmentSupport
	require.NoError(t, repo.Update(ctx, got))
	reloaded, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepartmentSupport, reloaded.Department)

	seedUser(t, db, "bob@example.com", domain.DepartmentManagement)
	support, err := repo.List(ctx, domain.UserFilter{Department: domain.DepartmentSupport})
	require.NoError(t, err)
	assert.Len(t, support, 1)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.Delete(ctx, got.ID))
	_, err = repo.GetByID(ctx, got.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, got.ID), domain.ErrNotFound)
}

func TestContractListFilters(t *testing.T) {
	db := newTestDB(t)
	seedDepartments(t, db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com", domain.DepartmentCommercial)
	carl := seedUser(t, db, "carl@example.com", domain.DepartmentCommercial)

	clients := NewClientRepository(db, nil)
	mine := &domain.Client{FullName: "Mine", Email: "m@x.io", SalesContactID: &alice.ID}
	theirs := &domain.Client{FullName: "Theirs", Email: "t@x.io", SalesContactID: &carl.ID}
	require.NoError(t, clients.Create(ctx, mine))
	require.NoError(t, clients.Create(ctx, theirs))

	contracts := NewContractRepository(db, nil)
	c1 := &domain.Contract{ClientID: mine.ID, SalesContactID: &alice.ID, Amount: 100, RemainingAmount: 100}
	c2 := &domain.Contract{ClientID: mine.ID, SalesContactID: &alice.ID, Amount: 50, RemainingAmount: 0, Signed: true}
	c3 := &domain.Contract{ClientID: theirs.ID, SalesContactID: &carl.ID, Amount: 10, RemainingAmount: 10}
	for _, c := range []*domain.Contract{c1, c2, c3} {
		require.NoError(t, contracts.Create(ctx, c))
	}

	owned, err := contracts.List(ctx, domain.ContractFilter{OwnerID: &alice.ID})
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	unsigned, err := contracts.List(ctx, domain.ContractFilter{OwnerID: &alice.ID, Unsigned: true})
	require.NoError(t, err)
	require.Len(t, unsigned, 1)
	assert.Equal(t, c1.ID, unsigned[0].ID)

	unpaid, err := contracts.List(ctx, domain.ContractFilter{Unpaid: true, Page: domain.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, c3.ID, unpaid[0].ID)

	// A client with contracts cannot be removed.
	assert.ErrorIs(t, clients.Delete(ctx, mine.ID), domain.ErrConflict)
}

func TestEventRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	seedDepartments(t, db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com", domain.DepartmentCommercial)
	sam := seedUser(t, db, "sam@example.com", domain.DepartmentSupport)

	client := &domain.Client{FullName: "Acme", Email: "a@acme.io", SalesContactID: &alice.ID}
	require.NoError(t, NewClientRepository(db, nil).Create(ctx, client))
	contract := &domain.Contract{ClientID: client.ID, SalesContactID: &alice.ID, Amount: 10, RemainingAmount: 10}
	require.NoError(t, NewContractRepository(db, nil).Create(ctx, contract))

	events := NewEventRepository(db, nil)
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	ev := &domain.Event{ContractID: contract.ID, ClientID: client.ID, Name: "Gala", StartDate: start, EndDate: start.Add(4 * time.Hour), Attendees: 80}
	require.NoError(t, events.Create(ctx, ev))

	unassigned, err := events.List(ctx, domain.EventFilter{WithoutSupport: true})
	require.NoError(t, err)
	assert.Len(t, unassigned, 1)

	ev.SupportContactID = &sam.ID
	ev.Notes = "stage left"
	require.NoError(t, events.Update(ctx, ev))

	got, err := events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, got.AssignedTo(sam.ID))
	assert.Equal(t, "stage left", got.Notes)
	assert.True(t, got.StartDate.Equal(start))

	mine, err := events.List(ctx, domain.EventFilter{SupportContactID: &sam.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, events.Delete(ctx, ev.ID))
	_, err = events.GetByID(ctx, ev.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMapErrorPostgresUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO clients").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	repo := NewClientRepository(db, nil)
	err = repo.Create(context.Background(), &domain.Client{FullName: "A", Email: "a@x.io"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapErrorPassesThroughOtherErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("DELETE FROM events").WithArgs(int64(9)).WillReturnError(boom)

	err = NewEventRepository(db, nil).Delete(context.Background(), 9)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewContractRepository(db, nil).Update(context.Background(), &domain.Contract{ID: 42})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWherePlaceholdersAscend(t *testing.T) {
	w := &where{}
	w.add("a = ?", 1)
	w.raw("b IS NULL")
	w.add("c = ?", 2)
	suffix := w.page(domain.Page{Limit: 10})
	assert.Equal(t, " WHERE a = $1 AND b IS NULL AND c = $2", w.String())
	assert.Equal(t, " LIMIT $3 OFFSET $4", suffix)
	assert.Equal(t, []any{1, 2, 10, 0}, w.args)
}
