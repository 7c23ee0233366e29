package entity

import (
	"strings"
	"time"
)

// Assignment is a travel directive issued to one or more participants.
type Assignment struct {
	ID           int64     `json:"id"`
	Purpose      string    `json:"purpose"`
	Destination  string    `json:"destination"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	CreatorID    int64     `json:"creator_id"`
	Participants []*User   `json:"participants,omitempty"`
	ReportCount  int       `json:"report_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsCreator reports whether userID created the assignment.
func (a *Assignment) IsCreator(userID int64) bool {
	return a.CreatorID == userID
}

// HasParticipant reports whether userID is among the loaded participants.
func (a *Assignment) HasParticipant(userID int64) bool {
	for _, p := range a.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the ids of loaded participants.
func (a *Assignment) ParticipantIDs() []int64 {
	ids := make([]int64, 0, len(a.Participants))
	for _, p := range a.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// Validate checks the assignment fields and the participant set.
func (a *Assignment) Validate(participantIDs []int64) error {
	verr := NewValidationError()
	if strings.TrimSpace(a.Purpose) == "" {
		verr.Add("purpose", "purpose is required")
	}
	if strings.TrimSpace(a.Destination) == "" {
		verr.Add("destination", "destination is required")
	}
	if a.StartDate.IsZero() {
		verr.Add("start_date", "start date is required")
	}
	if a.EndDate.IsZero() {
		verr.Add("end_date", "end date is required")
	}
	if !a.StartDate.IsZero() && !a.EndDate.IsZero() && a.EndDate.Before(a.StartDate) {
		verr.Add("end_date", "end date must be on or after the start date")
	}
	if len(participantIDs) == 0 {
		verr.Add("participants", "at least one participant is required")
	}
	return verr.OrNil()
}

// DiffParticipants returns ids present in next but not in current.
func DiffParticipants(current, next []int64) []int64 {
	existing := make(map[int64]bool, len(current))
	for _, id := range current {
		existing[id] = true
	}
	var added []int64
	seen := make(map[int64]bool, len(next))
	for _, id := range next {
		if existing[id] || seen[id] {
			continue
		}
		seen[id] = true
		added = append(added, id)
	}
	return added
}

// UniqueIDs removes duplicate ids, keeping first occurrence order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Documentation is a geo-tagged photo attached to an assignment.
type Documentation struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	UserID       int64     `json:"user_id"`
	PhotoPath    string    `json:"photo_path"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Address      string    `json:"address,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the coordinate ranges.
func (d *Documentation) Validate() error {
	verr := NewValidationError()
	if d.Latitude < -90 || d.Latitude > 90 {
		verr.Add("latitude", "latitude must be between -90 and 90")
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		verr.Add("longitude", "longitude must be between -180 and 180")
	}
	return verr.OrNil()
}
