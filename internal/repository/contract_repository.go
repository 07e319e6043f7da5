package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

const contractColumns = `c.id, c.client_id, c.sales_contact_id, c.amount, c.remaining_amount, c.signed, c.created_at, c.updated_at`

// ContractRepository implements domain.ContractRepository over database/sql
type ContractRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *sql.DB, logger *slog.Logger) *ContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractRepository{db: db, logger: logger}
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	c := &domain.Contract{}
	var sales sql.NullInt64
	err := row.Scan(
		&c.ID,
		&c.ClientID,
		&sales,
		&c.Amount,
		&c.RemainingAmount,
		&c.Signed,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SalesContactID = idPtr(sales)
	return c, nil
}

// Create inserts contract
func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) (err error) {
	defer observe("contract", "create", time.Now(), &err)

	ts := now()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO contracts (client_id, sales_contact_id, amount, remaining_amount, signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		contract.ClientID,
		nullableID(contract.SalesContactID),
		contract.Amount,
		contract.RemainingAmount,
		contract.Signed,
		ts,
		ts,
	).Scan(&contract.ID)
	if err != nil {
		r.logger.Error("failed to create contract",
			slog.Int64("client_id", contract.ClientID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create contract: %w", mapError(err))
	}
	contract.CreatedAt, contract.UpdatedAt = ts, ts
	return nil
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id int64) (_ *domain.Contract, err error) {
	defer observe("contract", "get", time.Now(), &err)

	c, err := scanContract(r.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts c WHERE c.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %d: %w", id, mapError(err))
	}
	return c, nil
}

// List returns contracts matching filter ordered by id.
// OwnerID matches on the linked client's sales contact.
func (r *ContractRepository) List(ctx context.Context, filter domain.ContractFilter) (_ []*domain.Contract, err error) {
	defer observe("contract", "list", time.Now(), &err)

	w := &where{}
	from := ` FROM contracts c`
	if filter.OwnerID != nil {
		from += ` JOIN clients cl ON cl.id = c.client_id`
		w.add("cl.sales_contact_id = ?", *filter.OwnerID)
	}
	if filter.ClientID != nil {
		w.add("c.client_id = ?", *filter.ClientID)
	}
	if filter.Unsigned {
		w.raw("c.signed = FALSE")
	}
	if filter.Unpaid {
		w.raw("c.remaining_amount > 0")
	}
	query := `SELECT ` + contractColumns + from + w.String() + ` ORDER BY c.id`
	query += w.page(filter.Page)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update writes every mutable column of contract
func (r *ContractRepository) Update(ctx context.Context, contract *domain.Contract) (err error) {
	defer observe("contract", "update", time.Now(), &err)

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET sales_contact_id = $1, amount = $2, remaining_amount = $3, signed = $4, updated_at = $5
		WHERE id = $6
	`,
		nullableID(contract.SalesContactID),
		contract.Amount,
		contract.RemainingAmount,
		contract.Signed,
		ts,
		contract.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to update contract %d: %w", contract.ID, err)
	}
	contract.UpdatedAt = ts
	return nil
}

// Delete physically removes a contract
func (r *ContractRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("contract", "delete", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to delete contract %d: %w", id, err)
	}
	return nil
}
