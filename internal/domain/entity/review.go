package entity

import "time"

// ReviewerType is the stage of the approval chain a review belongs to.
type ReviewerType string

// IsValid reports whether t is a known reviewer type.
func (t ReviewerType) IsValid() bool {
	return t == ReviewerCommitmentOfficer || t == ReviewerSectionHead
}

// ReviewStatus is a reviewer's verdict.
type ReviewStatus string

// IsValid reports whether s is a known verdict.
func (s ReviewStatus) IsValid() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// Review is one reviewer action on a report. Round ties the review to the
// submission it judged.
type Review struct {
	ID           int64        `json:"id"`
	ReportID     int64        `json:"report_id"`
	ReviewerID   int64        `json:"reviewer_id"`
	ReviewerType ReviewerType `json:"reviewer_type"`
	Status       ReviewStatus `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	Round        int          `json:"round"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Validate checks the enumerations and requires notes on rejection.
func (r *Review) Validate() error {
	verr := NewValidationError()
	if !r.ReviewerType.IsValid() {
		verr.Add("reviewer_type", "reviewer type must be commitment_officer or section_head")
	}
	if !r.Status.IsValid() {
		verr.Add("status", "status must be approved or rejected")
	}
	if r.Status == ReviewRejected && r.Notes == "" {
		verr.Add("notes", "notes are required when rejecting")
	}
	return verr.OrNil()
}
