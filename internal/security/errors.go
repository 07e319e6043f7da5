package security

import (
	"errors"
	"fmt"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

var (
	// ErrUnauthenticated is returned when no valid session backs a guarded call.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrPermissionDenied matches every *PermissionDeniedError via errors.Is.
	ErrPermissionDenied = errors.New("permission denied")
)

// PermissionDeniedError carries the denied permission and the acting subject.
type PermissionDeniedError struct {
	Permission Permission
	SubjectID  int64
	Department domain.Department
	Reason     string
}

func (e *PermissionDeniedError) Error() string {
	msg := fmt.Sprintf("permission denied: user %d (%s) cannot %s", e.SubjectID, e.Department, e.Permission)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets errors.Is(err, ErrPermissionDenied) match.
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Deny builds a denial for id on perm.
func Deny(id Identity, perm Permission, reason string) *PermissionDeniedError {
	return &PermissionDeniedError{
		Permission: perm,
		SubjectID:  id.UserID,
		Department: id.Department,
		Reason:     reason,
	}
}
