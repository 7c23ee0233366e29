package entity

import (
	"strings"
	"time"
)

// ReportStatus is the lifecycle status of a report.
type ReportStatus string

// IsValid reports whether s is a known status.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusDraft, ReportStatusSubmitted, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

// TravelType selects which expense detail shape a report carries.
type TravelType string

// IsValid reports whether t is a known travel type.
func (t TravelType) IsValid() bool {
	switch t {
	case TravelTypeInCity, TravelTypeOutCity, TravelTypeOutCountry:
		return true
	}
	return false
}

// Report is a participant's travel report for an assignment.
type Report struct {
	ID                int64        `json:"id"`
	UserID            int64        `json:"user_id"`
	AssignmentID      int64        `json:"assignment_id"`
	TravelType        TravelType   `json:"travel_type"`
	Status            ReportStatus `json:"status"`
	ReviewRound       int          `json:"review_round"`
	TravelOrderNumber string       `json:"travel_order_number"`
	DestinationCity   string       `json:"destination_city"`
	DepartureDate     time.Time    `json:"departure_date"`
	ReturnDate        time.Time    `json:"return_date"`
	ActualDuration    int          `json:"actual_duration"`
	TravelPurpose     string       `json:"travel_purpose"`
	TravelOrderFile   string       `json:"travel_order_file,omitempty"`
	SPDFile           string       `json:"spd_file,omitempty"`
	SubmittedAt       *time.Time   `json:"submitted_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`

	Detail              ExpenseDetail `json:"-"`
	Narrative           *TravelReport `json:"narrative,omitempty"`
	TransportationTypes []int64       `json:"transportation_type_ids,omitempty"`
}

// IsOwner reports whether userID owns the report.
func (r *Report) IsOwner(userID int64) bool {
	return r.UserID == userID
}

// IsEditable reports whether the owner may still change the report.
func (r *Report) IsEditable() bool {
	return r.Status == ReportStatusDraft || r.Status == ReportStatusRejected
}

// FileSlot returns a pointer to a report-level file field.
func (r *Report) FileSlot(name string) (*string, bool) {
	switch name {
	case "travel_order_file":
		return &r.TravelOrderFile, true
	case "spd_file":
		return &r.SPDFile, true
	}
	return nil, false
}

// Validate checks the report header and that exactly one expense detail
// matching the travel type is present.
func (r *Report) Validate() error {
	verr := NewValidationError()
	if !r.TravelType.IsValid() {
		verr.Add("travel_type", "travel type must be in_city, out_city or out_country")
	}
	if strings.TrimSpace(r.TravelOrderNumber) == "" {
		verr.Add("travel_order_number", "travel order number is required")
	}
	if strings.TrimSpace(r.DestinationCity) == "" {
		verr.Add("destination_city", "destination city is required")
	}
	if r.DepartureDate.IsZero() {
		verr.Add("departure_date", "departure date is required")
	}
	if r.ReturnDate.IsZero() {
		verr.Add("return_date", "return date is required")
	}
	if !r.DepartureDate.IsZero() && !r.ReturnDate.IsZero() && r.ReturnDate.Before(r.DepartureDate) {
		verr.Add("return_date", "return date must be on or after the departure date")
	}
	if r.ActualDuration < 1 {
		verr.Add("actual_duration", "actual duration must be at least one day")
	}
	if strings.TrimSpace(r.TravelPurpose) == "" {
		verr.Add("travel_purpose", "travel purpose is required")
	}

	switch {
	case r.Detail == nil:
		verr.Add("detail", "expense detail is required")
	case r.Detail.TravelType() != r.TravelType:
		verr.Add("detail", "expense detail does not match the travel type")
	default:
		if err, ok := r.Detail.Validate().(*ValidationError); ok {
			verr.Merge("detail", err)
		}
	}
	return verr.OrNil()
}

// LatestTouch returns the most recent updated_at among the report, its
// expense detail and its narrative.
func (r *Report) LatestTouch() time.Time {
	latest := r.UpdatedAt
	if r.Detail != nil && r.Detail.Touched().After(latest) {
		latest = r.Detail.Touched()
	}
	if r.Narrative != nil && r.Narrative.UpdatedAt.After(latest) {
		latest = r.Narrative.UpdatedAt
	}
	return latest
}

// TravelReport is the narrative account attached to a report, in Markdown.
type TravelReport struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	Content   string    `json:"content"`
	HTML      string    `json:"html,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
