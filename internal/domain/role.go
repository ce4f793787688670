package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Permissions are "resource:action" strings.
const (
	PermUsersManage         = "users:manage"
	PermRolesManage         = "roles:manage"
	PermAuditRead           = "audit:read"
	PermPaymentsManage      = "payments:manage"
	PermMaterialsUpload     = "materials:upload"
	PermReservationsBook    = "reservations:book"
	PermReservationsTeach   = "reservations:teach"
	PermOrganizationsCreate = "organizations:create"
)

var permissionPattern = regexp.MustCompile(`^[a-z_]+:[a-z_*]+$`)

// RoleDefinition attaches a permission set to a role name.
type RoleDefinition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"isSystem"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SystemRoles are seeded at startup for the built-in user roles.
func SystemRoles() []*RoleDefinition {
	now := time.Now().UTC()
	mk := func(name Role, desc string, perms ...string) *RoleDefinition {
		return &RoleDefinition{Name: string(name), Description: desc, Permissions: perms, IsSystem: true, IsActive: true, CreatedAt: now, UpdatedAt: now}
	}
	return []*RoleDefinition{
		mk(RoleStudent, "Learner booking lessons", PermReservationsBook, PermOrganizationsCreate),
		mk(RoleTeacher, "Tutor giving lessons", PermReservationsTeach, PermMaterialsUpload, PermOrganizationsCreate),
		mk(RoleAdmin, "Platform administrator", "*:*"),
	}
}

// ValidatePermissions normalizes and checks the permission list.
func ValidatePermissions(perms []string) ([]string, error) {
	out := make([]string, 0, len(perms))
	seen := make(map[string]bool, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "*:*" && !permissionPattern.MatchString(p) {
			return nil, fmt.Errorf("%w: permission %q must look like resource:action", ErrInvalidInput, p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func NewRoleDefinition(name, description string, perms []string) (*RoleDefinition, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	valid, err := ValidatePermissions(perms)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &RoleDefinition{
		Name:        name,
		Description: strings.TrimSpace(description),
		Permissions: valid,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Grants matches exact permissions, "resource:*" and "*:*".
func (r *RoleDefinition) Grants(permission string) bool {
	if !r.IsActive {
		return false
	}
	resource, _, _ := strings.Cut(permission, ":")
	for _, p := range r.Permissions {
		if p == permission || p == "*:*" || p == resource+":*" {
			return true
		}
	}
	return false
}
