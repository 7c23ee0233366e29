package workflow

import (
	"time"

	"github.com/garyjia/travel-report/internal/domain/entity"
)

// ResolveStatus derives a report status from a set of reviews.
//
// Any rejection wins. Approval needs an approved verdict from both the
// commitment officer and the section head. Any other non-empty set leaves the
// report submitted, and an empty set keeps current. The result depends only on
// the (reviewer type, status) pairs, so order and duplicates do not matter.
func ResolveStatus(current entity.ReportStatus, reviews []*entity.Review) entity.ReportStatus {
	if len(reviews) == 0 {
		return current
	}

	approvedBy := make(map[entity.ReviewerType]bool, 2)
	for _, r := range reviews {
		if r.Status == entity.ReviewRejected {
			return entity.ReportStatusRejected
		}
		if r.Status == entity.ReviewApproved {
			approvedBy[r.ReviewerType] = true
		}
	}

	if approvedBy[entity.ReviewerCommitmentOfficer] && approvedBy[entity.ReviewerSectionHead] {
		return entity.ReportStatusApproved
	}
	return entity.ReportStatusSubmitted
}

// StageOpen reports whether a reviewer of type t may rule on a round that
// already holds reviews. The commitment officer rules first; the section
// head only after the officer approved.
func StageOpen(t entity.ReviewerType, round []*entity.Review) bool {
	if t != entity.ReviewerSectionHead {
		return true
	}
	for _, r := range round {
		if r.ReviewerType == entity.ReviewerCommitmentOfficer && r.Status == entity.ReviewApproved {
			return true
		}
	}
	return false
}

// CurrentRound filters reviews down to the report's active review round.
func CurrentRound(round int, reviews []*entity.Review) []*entity.Review {
	out := make([]*entity.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Round == round {
			out = append(out, r)
		}
	}
	return out
}

// LastDecisiveReviewAt returns the newest review timestamp, or nil when the
// report has never been reviewed.
func LastDecisiveReviewAt(reviews []*entity.Review) *time.Time {
	var last *time.Time
	for _, r := range reviews {
		if !r.Status.IsValid() {
			continue
		}
		at := r.CreatedAt
		if r.UpdatedAt.After(at) {
			at = r.UpdatedAt
		}
		if last == nil || at.After(*last) {
			t := at
			last = &t
		}
	}
	return last
}

// CanResubmit reports whether a rejected report has been edited since it was
// last reviewed. Edits count on the report itself, its expense detail, its
// narrative and any documentation of its assignment.
func CanResubmit(report *entity.Report, reviews []*entity.Review, docs []*entity.Documentation) bool {
	if report == nil || report.Status != entity.ReportStatusRejected {
		return false
	}

	lastReviewAt := LastDecisiveReviewAt(reviews)
	if lastReviewAt == nil {
		return false
	}

	if report.LatestTouch().After(*lastReviewAt) {
		return true
	}
	for _, d := range docs {
		if d.UpdatedAt.After(*lastReviewAt) {
			return true
		}
	}
	return false
}
