package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

const userColumns = `u.id, u.full_name, u.email, u.password_hash, u.department_id, d.name, u.created_at, u.updated_at`

const userFrom = ` FROM users u JOIN departments d ON d.id = u.department_id`

// UserRepository implements domain.UserRepository over database/sql
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var dept string
	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.DepartmentID,
		&dept,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Department = domain.Department(dept)
	return user, nil
}

// Create inserts user. The department is resolved by name.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (err error) {
	defer observe("user", "create", time.Now(), &err)

	ts := now()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (full_name, email, password_hash, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, (SELECT id FROM departments WHERE name = $4), $5, $6)
		RETURNING id, department_id
	`,
		user.FullName,
		user.Email,
		user.PasswordHash,
		string(user.Department),
		ts,
		ts,
	).Scan(&user.ID, &user.DepartmentID)

	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	user.CreatedAt, user.UpdatedAt = ts, ts
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (_ *domain.User, err error) {
	defer observe("user", "get", time.Now(), &err)

	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, mapError(err))
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (_ *domain.User, err error) {
	defer observe("user", "get", time.Now(), &err)

	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` WHERE u.email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", mapError(err))
	}
	return user, nil
}

// List returns users matching filter ordered by id
func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) (_ []*domain.User, err error) {
	defer observe("user", "list", time.Now(), &err)

	w := &where{}
	if filter.Department != "" {
		w.add("d.name = ?", string(filter.Department))
	}
	query := `SELECT ` + userColumns + userFrom + w.String() + ` ORDER BY u.id`
	query += w.page(filter.Page)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		r.logger.Error("failed to list users",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update writes every mutable column of user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) (err error) {
	defer observe("user", "update", time.Now(), &err)

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = $1, email = $2, password_hash = $3,
			department_id = (SELECT id FROM departments WHERE name = $4), updated_at = $5
		WHERE id = $6
	`,
		user.FullName,
		user.Email,
		user.PasswordHash,
		string(user.Department),
		ts,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	user.UpdatedAt = ts
	return nil
}

// Delete physically removes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("user", "delete", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
