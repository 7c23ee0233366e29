package entity

import (
	"strings"
	"time"
)

// User is an employee account. Identity itself is managed elsewhere; this
// record carries what the travel workflow filters on.
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	NIP        string    `json:"nip,omitempty"`
	Position   string    `json:"position,omitempty"`
	WorkUnitID *int64    `json:"work_unit_id,omitempty"`
	Roles      []Role    `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasEmail reports whether notifications can be delivered to the user.
func (u *User) HasEmail() bool {
	return strings.TrimSpace(u.Email) != ""
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor converts the user into the acting identity used by services.
func (u *User) Actor() *Actor {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return &Actor{
		ID:         u.ID,
		Name:       u.Name,
		WorkUnitID: u.WorkUnitID,
		Roles:      roles,
	}
}

// Validate checks the fields required to create an employee.
func (u *User) Validate() error {
	verr := NewValidationError()
	if strings.TrimSpace(u.Name) == "" {
		verr.Add("name", "name is required")
	}
	for _, r := range u.Roles {
		if !r.IsValid() {
			verr.Add("roles", "unknown role "+string(r))
		}
	}
	if u.HasRole(RoleLeader) && u.WorkUnitID == nil {
		verr.Add("work_unit_id", "a leader must belong to a work unit")
	}
	return verr.OrNil()
}
