package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Audit actions recorded by the services.
const (
	ActionLogin           = "login"
	ActionLoginFailed     = "login_failed"
	ActionLogout          = "logout"
	ActionAccessDenied    = "access_denied"
	ActionContractSigned  = "contract_signed"
	ActionSupportAssigned = "support_assigned"
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionDelete          = "delete"
)

type requestIDKey struct{}

// WithRequestID tags ctx with a request ID picked up by every audit entry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, userID int64, department, action, resource string, resourceID int64, status, details string) {
	if al == nil {
		return
	}
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", formatID(resourceID)),
		slog.String("user_id", formatID(userID)),
		slog.String("department", department),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, userID int64, department string) {
	al.LogAction(ctx, userID, department, ActionLogin, "session", 0, "success", "")
}

// LogLoginFailed never records which half of the credentials was wrong.
func (al *Logger) LogLoginFailed(ctx context.Context, email string) {
	al.LogAction(ctx, 0, "", ActionLoginFailed, "session", 0, "failure", "email="+email)
}

func (al *Logger) LogLogout(ctx context.Context, userID int64, department string) {
	al.LogAction(ctx, userID, department, ActionLogout, "session", 0, "success", "")
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, department, permission, reason string) {
	al.LogAction(ctx, userID, department, ActionAccessDenied, permission, 0, "denied", reason)
}

func (al *Logger) LogContractSigned(ctx context.Context, userID int64, department string, contractID int64) {
	al.LogAction(ctx, userID, department, ActionContractSigned, "contract", contractID, "success", "")
}

func (al *Logger) LogSupportAssigned(ctx context.Context, userID int64, department string, eventID, supportID int64) {
	al.LogAction(ctx, userID, department, ActionSupportAssigned, "event", eventID, "success", "support_contact_id="+formatID(supportID))
}

// LogChange records a create, update or delete on resource.
func (al *Logger) LogChange(ctx context.Context, userID int64, department, action, resource string, resourceID int64) {
	al.LogAction(ctx, userID, department, action, resource, resourceID, "success", "")
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
