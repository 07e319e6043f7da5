package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/observability/metrics"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
)

var tracer = otel.Tracer("github.com/aryan0dhankhar/eventcrm/internal/security")

// Identity is the authenticated caller of a guarded operation.
type Identity struct {
	UserID     int64
	Department domain.Department
}

func (id Identity) Is(dept domain.Department) bool {
	return id.Department == dept
}

// TokenVerifier turns a bearer token into verified claims.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Guard authenticates a token and checks the caller's department against the capability table.
// A zero or nil Guard denies everything.
type Guard struct {
	verifier    TokenVerifier
	revocations auth.RevocationStore
	authz       *AuthorizationService
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewGuard builds a guard. revocations and auditLog may be nil.
func NewGuard(verifier TokenVerifier, revocations auth.RevocationStore, auditLog *audit.Logger, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		verifier:    verifier,
		revocations: revocations,
		authz:       NewAuthorizationService(logger),
		audit:       auditLog,
		logger:      logger,
	}
}

// Authenticate verifies token and checks it has not been revoked.
func (g *Guard) Authenticate(ctx context.Context, token string) (Identity, error) {
	if g == nil || g.verifier == nil {
		return Identity{}, fmt.Errorf("%w: no token verifier configured", ErrUnauthenticated)
	}
	if token == "" {
		return Identity{}, fmt.Errorf("%w: no session token", ErrUnauthenticated)
	}
	claims, err := g.verifier.VerifyToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims == nil || claims.Subject <= 0 || !claims.Department.Valid() {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, auth.ErrInvalidToken)
	}
	if g.revocations != nil && claims.ID != "" {
		revoked, err := g.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			g.logger.Error("revocation lookup failed",
				slog.String("jti", claims.ID),
				slog.String("error", err.Error()),
			)
			return Identity{}, fmt.Errorf("%w: revocation check failed: %w", ErrUnauthenticated, err)
		}
		if revoked {
			return Identity{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
		}
	}
	return Identity{UserID: claims.Subject, Department: claims.Department}, nil
}

// Require authenticates token and checks the caller holds perm.
// It returns ErrUnauthenticated or a *PermissionDeniedError; the zero Identity accompanies every error.
func (g *Guard) Require(ctx context.Context, token string, perm Permission) (Identity, error) {
	ctx, span := tracer.Start(ctx, "guard.require")
	defer span.End()
	span.SetAttributes(attribute.String("permission", perm.String()))

	if !perm.Valid() {
		span.SetStatus(codes.Error, "invalid permission")
		return Identity{}, fmt.Errorf("%w: invalid permission %q", ErrPermissionDenied, perm.String())
	}

	id, err := g.Authenticate(ctx, token)
	if err != nil {
		metrics.ObserveAuthorization(perm.String(), "", "unauthenticated")
		span.SetStatus(codes.Error, "unauthenticated")
		if g != nil && g.logger != nil {
			g.logger.Debug("unauthenticated call",
				slog.String("permission", perm.String()),
				slog.String("error", err.Error()),
			)
		}
		return Identity{}, err
	}
	span.SetAttributes(
		attribute.Int64("user_id", id.UserID),
		attribute.String("department", id.Department.String()),
	)

	if err := g.authz.ValidatePermission(id, perm); err != nil {
		metrics.ObserveAuthorization(perm.String(), id.Department.String(), "denied")
		span.SetStatus(codes.Error, "permission denied")
		var denied *PermissionDeniedError
		if errors.As(err, &denied) {
			g.audit.LogDenied(ctx, id.UserID, id.Department.String(), perm.String(), denied.Reason)
		}
		return Identity{}, err
	}

	metrics.ObserveAuthorization(perm.String(), id.Department.String(), "allowed")
	return id, nil
}

// GuardedFunc is an operation reachable only through a bearer token.
type GuardedFunc[In, Out any] func(ctx context.Context, token string, in In) (Out, error)

// Guarded wraps fn so it only runs after g.Require succeeds for perm.
func Guarded[In, Out any](g *Guard, perm Permission, fn func(ctx context.Context, id Identity, in In) (Out, error)) GuardedFunc[In, Out] {
	return func(ctx context.Context, token string, in In) (Out, error) {
		id, err := g.Require(ctx, token, perm)
		if err != nil {
			var zero Out
			return zero, err
		}
		return fn(ctx, id, in)
	}
}
