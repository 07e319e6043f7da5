package domain

import (
	"fmt"
	"strings"
)

// Department identifies one of the three fixed staff groups.
type Department string

const (
	DepartmentCommercial Department = "commercial"
	DepartmentSupport    Department = "support"
	DepartmentManagement Department = "gestion"
)

// Departments returns the fixed set of departments created at bootstrap.
func Departments() []Department {
	return []Department{DepartmentCommercial, DepartmentSupport, DepartmentManagement}
}

// Valid reports whether d is one of the known departments.
func (d Department) Valid() bool {
	switch d {
	case DepartmentCommercial, DepartmentSupport, DepartmentManagement:
		return true
	default:
		return false
	}
}

func (d Department) String() string {
	return string(d)
}

// ParseDepartment normalizes s and validates it against the known departments.
// "management" is accepted as an alias of gestion.
func ParseDepartment(s string) (Department, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "management" {
		v = string(DepartmentManagement)
	}
	d := Department(v)
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown department %q", ErrValidation, s)
	}
	return d, nil
}

// DepartmentRecord is the persisted form of a department.
type DepartmentRecord struct {
	ID   int64
	Name Department
}
