package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
)

// NewUser is the input of UserService.Create.
type NewUser struct {
	FullName   string
	Email      string
	Password   string
	Department string
}

// UserUpdate carries the optional fields of a user update.
type UserUpdate struct {
	FullName   *string
	Email      *string
	Password   *string
	Department *string
}

func (u UserUpdate) empty() bool {
	return u.FullName == nil && u.Email == nil && u.Password == nil && u.Department == nil
}

// UserService manages staff accounts. Every operation is reserved to management by the capability table.
type UserService struct {
	base
	users       domain.UserRepository
	departments domain.DepartmentRepository

	get  security.GuardedFunc[int64, *domain.User]
	list security.GuardedFunc[domain.UserFilter, []*domain.User]
}

func NewUserService(users domain.UserRepository, departments domain.DepartmentRepository, deps Deps) *UserService {
	s := &UserService{
		base:        newBase(security.EntityUser, deps),
		users:       users,
		departments: departments,
	}
	s.get = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, _ security.Identity, id int64) (*domain.User, error) {
			u, err := s.users.GetByID(ctx, id)
			if err != nil {
				return nil, s.storeErr(ctx, "get", id, err)
			}
			return u, nil
		})
	s.list = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, _ security.Identity, f domain.UserFilter) ([]*domain.User, error) {
			out, err := s.users.List(ctx, f)
			if err != nil {
				return nil, s.storeErr(ctx, "list", 0, err)
			}
			return out, nil
		})
	return s
}

func (s *UserService) resolveDepartment(ctx context.Context, name string) (domain.Department, error) {
	dept, err := domain.ParseDepartment(name)
	if err != nil {
		return "", s.rejected(ctx, err)
	}
	if _, err := s.departments.GetByName(ctx, dept); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", s.invalid(ctx, "department %s does not exist, run init first", dept)
		}
		return "", s.storeErr(ctx, "resolve department", 0, err)
	}
	return dept, nil
}

// Create adds a staff account with a hashed password
func (s *UserService) Create(ctx context.Context, token string, in NewUser) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "user.create")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionCreate)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.required(ctx, "full_name", in.FullName, "email", email, "password", in.Password, "department", in.Department); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, s.invalid(ctx, "invalid email %q", in.Email)
	}
	dept, err := s.resolveDepartment(ctx, in.Department)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.invalid(ctx, "%v", err)
	}

	user := &domain.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
		Department:   dept,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.storeErr(ctx, "create", 0, err)
	}
	s.changed(ctx, id, audit.ActionCreate, user.ID)
	return user, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, token string, userID int64) (*domain.User, error) {
	return s.get(ctx, token, userID)
}

// List returns users, optionally restricted to one department
func (s *UserService) List(ctx context.Context, token string, filter domain.UserFilter) ([]*domain.User, error) {
	return s.list(ctx, token, filter)
}

// Update changes the set fields of a user
func (s *UserService) Update(ctx context.Context, token string, userID int64, upd UserUpdate) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "user.update")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if upd.empty() {
		return nil, s.invalid(ctx, "nothing to update")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", userID, err)
	}

	if upd.FullName != nil {
		if err := s.required(ctx, "full_name", *upd.FullName); err != nil {
			return nil, err
		}
		user.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if !validEmail(email) {
			return nil, s.invalid(ctx, "invalid email %q", *upd.Email)
		}
		user.Email = email
	}
	if upd.Password != nil {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, s.invalid(ctx, "%v", err)
		}
		user.PasswordHash = hash
	}
	if upd.Department != nil {
		dept, err := s.resolveDepartment(ctx, *upd.Department)
		if err != nil {
			return nil, err
		}
		user.Department = dept
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, s.storeErr(ctx, "update", userID, err)
	}
	s.changed(ctx, id, audit.ActionUpdate, user.ID)
	return user, nil
}

// Delete removes a user. Managers cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, token string, userID int64) error {
	ctx, span := tracer.Start(ctx, "user.delete")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionDelete)
	if err != nil {
		return err
	}
	if userID == id.UserID {
		return s.invalid(ctx, "cannot delete your own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return s.storeErr(ctx, "delete", userID, err)
	}
	s.changed(ctx, id, audit.ActionDelete, userID)
	return nil
}
