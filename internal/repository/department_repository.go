package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

// DepartmentRepository implements domain.DepartmentRepository
type DepartmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB, logger *slog.Logger) *DepartmentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &DepartmentRepository{db: db, logger: logger}
}

// Ensure returns the department called name, creating it if missing
func (r *DepartmentRepository) Ensure(ctx context.Context, name domain.Department) (_ *domain.DepartmentRecord, err error) {
	defer observe("department", "ensure", time.Now(), &err)

	if !name.Valid() {
		return nil, fmt.Errorf("%w: unknown department %q", domain.ErrValidation, name)
	}
	existing, err := r.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	rec := &domain.DepartmentRecord{Name: name}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO departments (name) VALUES ($1) RETURNING id`,
		string(name),
	).Scan(&rec.ID)
	if err != nil {
		r.logger.Error("failed to create department",
			slog.String("name", string(name)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create department: %w", mapError(err))
	}
	return rec, nil
}

// GetByName retrieves a department by name
func (r *DepartmentRepository) GetByName(ctx context.Context, name domain.Department) (*domain.DepartmentRecord, error) {
	rec := &domain.DepartmentRecord{}
	var stored string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM departments WHERE name = $1`,
		string(name),
	).Scan(&rec.ID, &stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	rec.Name = domain.Department(stored)
	return rec, nil
}

// List returns every department ordered by id
func (r *DepartmentRepository) List(ctx context.Context) ([]*domain.DepartmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var out []*domain.DepartmentRecord
	for rows.Next() {
		rec := &domain.DepartmentRecord{}
		var stored string
		if err := rows.Scan(&rec.ID, &stored); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		rec.Name = domain.Department(stored)
		out = append(out, rec)
	}
	return out, rows.Err()
}
