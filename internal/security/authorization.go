package security

import (
	"log/slog"
	"sort"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

// commonPermissions are held by every department.
var commonPermissions = []Permission{
	PermReadClient,
	PermReadContract,
	PermReadEvent,
}

// departmentGrants is the capability table. It is built once and never handed out directly.
var departmentGrants = buildGrants(map[domain.Department][]Permission{
	domain.DepartmentCommercial: {
		PermCreateClient,
		PermUpdateClient,
		PermDeleteClient,
		PermUpdateContract,
		PermCreateEvent,
	},
	domain.DepartmentSupport: {
		PermUpdateEvent,
	},
	domain.DepartmentManagement: {
		PermCreateContract,
		PermUpdateContract,
		PermDeleteContract,
		PermCreateEvent,
		PermUpdateEvent,
		PermDeleteEvent,
		PermCreateUser,
		PermReadUser,
		PermUpdateUser,
		PermDeleteUser,
	},
})

func buildGrants(specific map[domain.Department][]Permission) map[domain.Department]map[Permission]struct{} {
	out := make(map[domain.Department]map[Permission]struct{}, len(specific))
	for dept, perms := range specific {
		set := make(map[Permission]struct{}, len(perms)+len(commonPermissions))
		for _, p := range commonPermissions {
			set[p] = struct{}{}
		}
		for _, p := range perms {
			set[p] = struct{}{}
		}
		out[dept] = set
	}
	return out
}

// CommonPermissions returns the permissions every department holds.
func CommonPermissions() []Permission {
	out := make([]Permission, len(commonPermissions))
	copy(out, commonPermissions)
	return out
}

// DepartmentPermissions returns the sorted capability set of dept.
// Unknown departments get an empty set.
func DepartmentPermissions(dept domain.Department) []Permission {
	set, ok := departmentGrants[dept]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// HasPermission reports whether dept holds perm. Unknown departments hold nothing.
func HasPermission(dept domain.Department, perm Permission) bool {
	set, ok := departmentGrants[dept]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a department has a specific permission
func (as *AuthorizationService) HasPermission(dept domain.Department, permission Permission) bool {
	return HasPermission(dept, permission)
}

// ValidatePermission validates that the identity's department holds a specific permission
func (as *AuthorizationService) ValidatePermission(id Identity, permission Permission) error {
	if !HasPermission(id.Department, permission) {
		as.logger.Warn("permission denied",
			slog.Int64("user_id", id.UserID),
			slog.String("department", string(id.Department)),
			slog.String("permission", permission.String()),
		)
		return Deny(id, permission, "department lacks permission")
	}
	return nil
}

// GetDepartmentPermissions returns all permissions for a department
func (as *AuthorizationService) GetDepartmentPermissions(dept domain.Department) []Permission {
	return DepartmentPermissions(dept)
}
