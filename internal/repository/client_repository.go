package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

const clientColumns = `id, full_name, email, phone, company_name, sales_contact_id, created_at, updated_at`

// ClientRepository implements domain.ClientRepository over database/sql
type ClientRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *sql.DB, logger *slog.Logger) *ClientRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientRepository{db: db, logger: logger}
}

func scanClient(row rowScanner) (*domain.Client, error) {
	c := &domain.Client{}
	var sales sql.NullInt64
	err := row.Scan(
		&c.ID,
		&c.FullName,
		&c.Email,
		&c.Phone,
		&c.CompanyName,
		&sales,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SalesContactID = idPtr(sales)
	return c, nil
}

// Create inserts client
func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) (err error) {
	defer observe("client", "create", time.Now(), &err)

	ts := now()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO clients (full_name, email, phone, company_name, sales_contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		client.FullName,
		client.Email,
		client.Phone,
		client.CompanyName,
		nullableID(client.SalesContactID),
		ts,
		ts,
	).Scan(&client.ID)
	if err != nil {
		r.logger.Error("failed to create client",
			slog.String("email", client.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create client: %w", mapError(err))
	}
	client.CreatedAt, client.UpdatedAt = ts, ts
	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (_ *domain.Client, err error) {
	defer observe("client", "get", time.Now(), &err)

	c, err := scanClient(r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get client %d: %w", id, mapError(err))
	}
	return c, nil
}

// List returns clients matching filter ordered by id
func (r *ClientRepository) List(ctx context.Context, filter domain.ClientFilter) (_ []*domain.Client, err error) {
	defer observe("client", "list", time.Now(), &err)

	w := &where{}
	if filter.SalesContactID != nil {
		w.add("sales_contact_id = ?", *filter.SalesContactID)
	}
	query := `SELECT ` + clientColumns + ` FROM clients` + w.String() + ` ORDER BY id`
	query += w.page(filter.Page)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var out []*domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update writes every mutable column of client
func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) (err error) {
	defer observe("client", "update", time.Now(), &err)

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET full_name = $1, email = $2, phone = $3, company_name = $4, sales_contact_id = $5, updated_at = $6
		WHERE id = $7
	`,
		client.FullName,
		client.Email,
		client.Phone,
		client.CompanyName,
		nullableID(client.SalesContactID),
		ts,
		client.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to update client %d: %w", client.ID, err)
	}
	client.UpdatedAt = ts
	return nil
}

// Delete physically removes a client. Clients with contracts cannot be removed.
func (r *ClientRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("client", "delete", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to delete client %d: %w", id, err)
	}
	return nil
}
