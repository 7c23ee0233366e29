package entity

import (
	"sort"
	"strings"
)

// Role is a capability flag held by a user. A user may hold several.
type Role string

const (
	RoleSuperadmin  Role = "superadmin"
	RoleAdmin       Role = "admin"
	RoleLeader      Role = "leader"
	RoleVerificator Role = "verificator"
	RoleEmployee    Role = "employee"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleLeader, RoleVerificator, RoleEmployee:
		return true
	}
	return false
}

// Permission names an action gated by role.
type Permission string

const (
	PermManageAssignments  Permission = "assignments.manage"
	PermReviewAsCommitment Permission = "reviews.commitment_officer"
	PermReviewAsSection    Permission = "reviews.section_head"
	PermManageEmployees    Permission = "employees.manage"
	PermManageWorkUnits    Permission = "work_units.manage"
	PermRecomputeStatuses  Permission = "reports.recompute"
	PermClearDashboard     Permission = "dashboard.clear"
)

var rolePermissions = map[Role][]Permission{
	RoleSuperadmin: {
		PermManageAssignments, PermReviewAsCommitment, PermReviewAsSection,
		PermManageEmployees, PermManageWorkUnits, PermRecomputeStatuses, PermClearDashboard,
	},
	RoleAdmin: {
		PermManageAssignments, PermManageEmployees, PermManageWorkUnits,
		PermRecomputeStatuses, PermClearDashboard,
	},
	RoleLeader:      {PermManageAssignments, PermReviewAsSection},
	RoleVerificator: {PermReviewAsCommitment},
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID         int64
	Name       string
	WorkUnitID *int64
	Roles      []Role
}

// HasRole reports whether the actor holds role.
func (a *Actor) HasRole(role Role) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor holds at least one of roles.
func (a *Actor) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the actor's roles grants p.
func (a *Actor) HasPermission(p Permission) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		for _, granted := range rolePermissions[r] {
			if granted == p {
				return true
			}
		}
	}
	return false
}

// SeesAllRecords is true for roles with global read access to assignments
// and reports.
func (a *Actor) SeesAllRecords() bool {
	return a.HasAnyRole(RoleAdmin, RoleSuperadmin, RoleVerificator)
}

// RoleKey returns the sorted, comma-joined role set.
func (a *Actor) RoleKey() string {
	if a == nil || len(a.Roles) == 0 {
		return "none"
	}
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// NormalizeRoles drops duplicates and unknown roles, keeping input order.
func NormalizeRoles(roles []Role) []Role {
	seen := make(map[Role]bool, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !r.IsValid() || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
