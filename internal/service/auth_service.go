package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/observability/metrics"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
)

var (
	// ErrInvalidCredentials never says whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyInitialized is returned by Bootstrap once any user exists.
	ErrAlreadyInitialized = fmt.Errorf("%w: crm already initialized", domain.ErrConflict)
)

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("eventcrm-timing-equalizer")
	return h
})

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	GenerateToken(subjectID int64, dept domain.Department) (string, time.Time, error)
	VerifyToken(token string) (*auth.Claims, error)
}

// AuthService handles authentication operations
type AuthService struct {
	users       domain.UserRepository
	departments domain.DepartmentRepository
	tokens      TokenIssuer
	revocations auth.RevocationStore
	guard       *security.Guard
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthService creates a new authentication service. revocations may be nil.
func NewAuthService(
	users domain.UserRepository,
	departments domain.DepartmentRepository,
	tokens TokenIssuer,
	revocations auth.RevocationStore,
	deps Deps,
) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:       users,
		departments: departments,
		tokens:      tokens,
		revocations: revocations,
		guard:       deps.Guard,
		audit:       deps.Audit,
		logger:      logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	UserID     int64             `json:"user_id"`
	FullName   string            `json:"full_name"`
	Email      string            `json:"email"`
	Department domain.Department `json:"department"`
	Token      string            `json:"token"`
	ExpiresAt  time.Time         `json:"expires_at"`
	TokenType  string            `json:"token_type"`
}

func (s *AuthService) invalid(ctx context.Context, format string, args ...any) error {
	return rejected(ctx, s.logger, validationError(format, args...))
}

func (s *AuthService) required(ctx context.Context, pairs ...string) error {
	if err := missingFields(pairs...); err != nil {
		return rejected(ctx, s.logger, err)
	}
	return nil
}

// Login authenticates a user and returns a signed session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, s.invalid(ctx, "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("login lookup failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("login: %w", err)
		}
		auth.VerifyPassword(password, dummyHash())
		return nil, s.loginFailed(ctx, email, "unknown email")
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, email, "wrong password")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Department)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.ObserveLogin("success")
	s.audit.LogLogin(ctx, user.ID, user.Department.String())
	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("department", user.Department.String()),
	)

	return &LoginResult{
		UserID:     user.ID,
		FullName:   user.FullName,
		Email:      user.Email,
		Department: user.Department,
		Token:      token,
		ExpiresAt:  expiresAt,
		TokenType:  "Bearer",
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, reason string) error {
	metrics.ObserveLogin("failure")
	s.audit.LogLoginFailed(ctx, email)
	s.logger.Info("login failed", slog.String("email", email), slog.String("reason", reason))
	return ErrInvalidCredentials
}

// Logout revokes token until its expiry when a revocation list is configured.
// An already invalid token has nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil
	}
	if s.revocations != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.logger.Error("failed to revoke token",
				slog.Int64("user_id", claims.Subject),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("logout: %w", err)
		}
	}
	s.audit.LogLogout(ctx, claims.Subject, claims.Department.String())
	return nil
}

// CurrentUser returns the account behind a verified token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	id, err := s.guard.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", security.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// BootstrapRequest describes the first management account.
type BootstrapRequest struct {
	FullName string
	Email    string
	Password string
}

// Bootstrap creates the fixed departments and, on an empty user table, the first management user.
// It needs no token and refuses to run once any user exists.
func (s *AuthService) Bootstrap(ctx context.Context, req BootstrapRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "auth.bootstrap")
	defer span.End()

	for _, dept := range domain.Departments() {
		if _, err := s.departments.Ensure(ctx, dept); err != nil {
			return nil, fmt.Errorf("bootstrap departments: %w", err)
		}
	}

	n, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if n > 0 {
		return nil, ErrAlreadyInitialized
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.required(ctx, "full_name", req.FullName, "email", email, "password", req.Password); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, s.invalid(ctx, "invalid email %q", req.Email)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, s.invalid(ctx, "%v", err)
	}

	user := &domain.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		PasswordHash: hash,
		Department:   domain.DepartmentManagement,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	s.audit.LogChange(ctx, user.ID, user.Department.String(), audit.ActionCreate, "user", user.ID)
	s.logger.Info("crm initialized", slog.Int64("user_id", user.ID))
	return user, nil
}
