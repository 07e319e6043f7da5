package domain

import (
	"context"
	"time"
)

// User represents a staff member
type User struct {
	ID           int64
	FullName     string
	Email        string // Unique email address
	PasswordHash string // Bcrypt hash, never rendered
	DepartmentID int64
	Department   Department // Resolved from DepartmentID on read
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFilter narrows user listings
type UserFilter struct {
	Page
	Department Department
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// DepartmentRepository defines data access for departments
type DepartmentRepository interface {
	Ensure(ctx context.Context, name Department) (*DepartmentRecord, error)
	GetByName(ctx context.Context, name Department) (*DepartmentRecord, error)
	List(ctx context.Context) ([]*DepartmentRecord, error)
}

// Page bounds a listing. A zero Limit means the repository default.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
