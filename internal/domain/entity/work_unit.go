package entity

import (
	"strings"
	"time"
)

// WorkUnit is an organizational team with at most one head.
type WorkUnit struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	HeadID      *int64    `json:"head_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks required fields.
func (w *WorkUnit) Validate() error {
	verr := NewValidationError()
	if strings.TrimSpace(w.Name) == "" {
		verr.Add("name", "name is required")
	}
	if strings.TrimSpace(w.Code) == "" {
		verr.Add("code", "code is required")
	}
	return verr.OrNil()
}
