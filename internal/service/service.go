package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/telemetry"
)

var tracer = otel.Tracer("github.com/aryan0dhankhar/eventcrm/internal/service")

// Deps are the collaborators shared by every entity service.
type Deps struct {
	Guard  *security.Guard
	Audit  *audit.Logger
	Sink   telemetry.Sink
	Logger *slog.Logger
}

// base carries the guard wiring of one entity service.
type base struct {
	entity security.Entity
	guard  *security.Guard
	owner  *security.OwnershipChecker
	audit  *audit.Logger
	sink   telemetry.Sink
	logger *slog.Logger
}

func newBase(entity security.Entity, deps Deps) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := deps.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return base{
		entity: entity,
		guard:  deps.Guard,
		owner:  security.NewOwnershipChecker(deps.Audit, logger),
		audit:  deps.Audit,
		sink:   sink,
		logger: logger.With(slog.String("entity", string(entity))),
	}
}

func (b *base) perm(action security.Action) security.Permission {
	return b.entity.Perm(action)
}

func (b *base) require(ctx context.Context, token string, action security.Action) (security.Identity, error) {
	return b.guard.Require(ctx, token, b.perm(action))
}

// storeErr wraps a repository failure and reports integrity conflicts and
// unexpected errors to the sink.
func (b *base) storeErr(ctx context.Context, op string, id int64, err error) error {
	fields := map[string]any{
		"entity":    string(b.entity),
		"operation": op,
		"id":        id,
	}
	switch {
	case errors.Is(err, domain.ErrConflict):
		b.logger.Warn("store integrity conflict",
			slog.String("operation", op),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		telemetry.Capture(ctx, b.sink, err, telemetry.SeverityWarning, fields)
	case errors.Is(err, domain.ErrValidation):
		b.rejected(ctx, err)
	case !errors.Is(err, domain.ErrNotFound):
		b.logger.Error("store operation failed",
			slog.String("operation", op),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		telemetry.CaptureError(ctx, b.sink, err, fields)
	}
	if id > 0 {
		return fmt.Errorf("%s %s %d: %w", op, b.entity, id, err)
	}
	return fmt.Errorf("%s %s: %w", op, b.entity, err)
}

func (b *base) changed(ctx context.Context, id security.Identity, action string, resourceID int64) {
	b.audit.LogChange(ctx, id.UserID, id.Department.String(), action, string(b.entity), resourceID)
	b.logger.Info(string(b.entity)+" "+action+"d",
		slog.Int64("id", resourceID),
		slog.Int64("user_id", id.UserID),
	)
}

func (b *base) invalid(ctx context.Context, format string, args ...any) error {
	return rejected(ctx, b.logger, validationError(format, args...))
}

func (b *base) required(ctx context.Context, pairs ...string) error {
	if err := missingFields(pairs...); err != nil {
		return rejected(ctx, b.logger, err)
	}
	return nil
}

func (b *base) rejected(ctx context.Context, err error) error {
	return rejected(ctx, b.logger, err)
}

// rejected logs a validation failure at warn level and returns it unchanged.
func rejected(ctx context.Context, logger *slog.Logger, err error) error {
	logger.WarnContext(ctx, "validation failed", slog.String("error", err.Error()))
	return err
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// missingFields checks name/value pairs and reports every blank value.
func missingFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return validationError("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n")
}
