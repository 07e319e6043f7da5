package security

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/observability/metrics"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
)

// CanManageClient reports whether id may update or delete client.
// Commercial users manage only the clients they are sales contact for.
func CanManageClient(id Identity, client *domain.Client) bool {
	switch id.Department {
	case domain.DepartmentManagement:
		return true
	case domain.DepartmentCommercial:
		return client.OwnedBy(id.UserID)
	default:
		return false
	}
}

// CanUpdateContract reports whether id may update contract. Ownership follows the
// linked client's sales contact, not the contract's copied field.
func CanUpdateContract(id Identity, contract *domain.Contract, client *domain.Client) bool {
	switch id.Department {
	case domain.DepartmentManagement:
		return true
	case domain.DepartmentCommercial:
		if contract == nil || client == nil || contract.ClientID != client.ID {
			return false
		}
		return client.OwnedBy(id.UserID)
	default:
		return false
	}
}

// CanCreateEventFor reports whether id may open an event for client.
func CanCreateEventFor(id Identity, client *domain.Client) bool {
	switch id.Department {
	case domain.DepartmentManagement:
		return true
	case domain.DepartmentCommercial:
		return client.OwnedBy(id.UserID)
	default:
		return false
	}
}

// supportEditableEventFields is what an assigned support contact may change.
var supportEditableEventFields = map[string]bool{
	domain.EventFieldNotes: true,
}

// CheckEventUpdate reports whether id may apply upd to event, with the denial reason when it may not.
func CheckEventUpdate(id Identity, event *domain.Event, upd domain.EventUpdate) (string, bool) {
	switch id.Department {
	case domain.DepartmentManagement:
		return "", true
	case domain.DepartmentSupport:
		if !event.AssignedTo(id.UserID) {
			return "not the event's support contact", false
		}
		for _, f := range upd.Fields() {
			if !supportEditableEventFields[f] {
				return "support may not change field " + f, false
			}
		}
		return "", true
	default:
		return "department may not update events", false
	}
}

// EventUpdateAllowed reports whether id may apply upd to event. Any disallowed field rejects the whole update.
func EventUpdateAllowed(id Identity, event *domain.Event, upd domain.EventUpdate) bool {
	_, ok := CheckEventUpdate(id, event, upd)
	return ok
}

// OwnershipChecker turns ownership predicate results into logged, audited denials.
type OwnershipChecker struct {
	audit  *audit.Logger
	logger *slog.Logger
}

func NewOwnershipChecker(auditLog *audit.Logger, logger *slog.Logger) *OwnershipChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &OwnershipChecker{audit: auditLog, logger: logger}
}

// ValidateResourceAccess returns a *PermissionDeniedError when allowed is false.
func (oc *OwnershipChecker) ValidateResourceAccess(ctx context.Context, id Identity, perm Permission, resourceID int64, allowed bool, reason string) error {
	if allowed {
		return nil
	}
	oc.logger.Warn("resource access denied",
		slog.Int64("user_id", id.UserID),
		slog.String("department", id.Department.String()),
		slog.String("permission", perm.String()),
		slog.Int64("resource_id", resourceID),
		slog.String("reason", reason),
	)
	metrics.ObserveOwnershipDenial(string(perm.Entity), reason)
	oc.audit.LogDenied(ctx, id.UserID, id.Department.String(), perm.String(), reason)
	return Deny(id, perm, reason)
}
