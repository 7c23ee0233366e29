package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
	"github.com/garyjia/travel-report/internal/domain/workflow"
)

// ReviewInput is a reviewer's verdict on a report
type ReviewInput struct {
	ReviewerType entity.ReviewerType
	Status       entity.ReviewStatus
	Notes        string
}

// RecomputeResult summarizes a bulk status recomputation
type RecomputeResult struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
}

// ReviewService records reviewer verdicts and keeps report status in line
// with them
type ReviewService interface {
	SubmitReview(ctx context.Context, actor *entity.Actor, reportID int64, in ReviewInput) (*entity.Review, error)
	ListReviews(ctx context.Context, actor *entity.Actor, reportID int64) ([]*entity.Review, error)
	// RecomputeStatus re-derives one report's status from its current round
	RecomputeStatus(ctx context.Context, reportID int64) (entity.ReportStatus, error)
	// UpdateAllReportStatuses re-derives every report's status. Running it
	// again without new reviews changes nothing.
	UpdateAllReportStatuses(ctx context.Context, actor *entity.Actor) (*RecomputeResult, error)
}

type reviewServiceImpl struct {
	reports   port.ReportRepository
	reviews   port.ReviewRepository
	txManager port.TransactionManager
	events    dispatcher.Dispatcher
	team      teamChecker
	clock     Clock
	logger    Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	reports port.ReportRepository,
	reviews port.ReviewRepository,
	users port.UserRepository,
	units port.WorkUnitRepository,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	clock Clock,
	logger Logger,
) ReviewService {
	return &reviewServiceImpl{
		reports:   reports,
		reviews:   reviews,
		txManager: txManager,
		events:    events,
		team:      teamChecker{users: users, units: units},
		clock:     clock,
		logger:    logger,
	}
}

// reviewerPermission maps each reviewer type to the permission it needs.
var reviewerPermission = map[entity.ReviewerType]entity.Permission{
	entity.ReviewerCommitmentOfficer: entity.PermReviewAsCommitment,
	entity.ReviewerSectionHead:       entity.PermReviewAsSection,
}

// SubmitReview records a verdict for the report's current round and applies
// the resolved status in the same transaction. A section head verdict needs
// an approved commitment officer verdict in the same round.
func (s *reviewServiceImpl) SubmitReview(ctx context.Context, actor *entity.Actor, reportID int64, in ReviewInput) (*entity.Review, error) {
	now := s.clock()
	review := &entity.Review{
		ReportID:     reportID,
		ReviewerID:   actor.ID,
		ReviewerType: in.ReviewerType,
		Status:       in.Status,
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if !actor.HasPermission(reviewerPermission[in.ReviewerType]) {
		return nil, forbidden("your roles do not allow reviewing as " + string(in.ReviewerType))
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "id", reportID)
		return nil, err
	}
	if report == nil {
		return nil, notFound("report", reportID)
	}
	if report.IsOwner(actor.ID) {
		return nil, forbidden("you cannot review your own report")
	}
	if workflow.StateOf(report.Status).IsTerminal() {
		return nil, invalidState("the report is already " + string(report.Status) + " and final")
	}
	if report.Status != entity.ReportStatusSubmitted {
		return nil, invalidState("only submitted reports can be reviewed")
	}
	if in.ReviewerType == entity.ReviewerSectionHead && !actor.HasRole(entity.RoleSuperadmin) {
		head, err := s.team.headOf(ctx, report.UserID)
		if err != nil {
			return nil, err
		}
		if head != actor.ID {
			return nil, forbidden("section heads review only reports from the unit they lead")
		}
	}
	review.Round = report.ReviewRound

	var resolved entity.ReportStatus
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		prior, err := s.reviews.ListByReport(txCtx, reportID)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		round := workflow.CurrentRound(report.ReviewRound, prior)
		if !workflow.StageOpen(in.ReviewerType, round) {
			return invalidState("the commitment officer must approve this submission before the section head reviews it")
		}

		if err := s.reviews.Create(txCtx, review); err != nil {
			if isUnique(err) {
				return conflict(string(in.ReviewerType) + " has already reviewed this submission")
			}
			return fmt.Errorf("create review: %w", err)
		}

		resolved = workflow.ResolveStatus(report.Status, append(round, review))

		machine := workflow.NewReportLifecycle(workflow.StateOf(report.Status), workflow.LifecycleGuards{})
		if err := machine.Fire(txCtx, workflow.TriggerFor(workflow.StateOf(resolved))); err != nil {
			return invalidState(err.Error())
		}
		if resolved == report.Status {
			return nil
		}
		return s.reports.UpdateStatus(txCtx, reportID, resolved)
	})
	if err != nil {
		s.logger.Error("Failed to record review", "error", err, "report_id", reportID, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Review recorded",
		"report_id", reportID,
		"actor_id", actor.ID,
		"reviewer_type", in.ReviewerType,
		"verdict", in.Status,
		"round", review.Round,
		"status", resolved,
	)
	s.events.Publish(ctx, event.NewEvent(event.TypeReviewRecorded, reportID, actor.ID, map[string]interface{}{
		event.KeyOwnerID:      report.UserID,
		event.KeyReviewerType: string(in.ReviewerType),
	}))
	if resolved != report.Status {
		s.events.Publish(ctx, event.NewEvent(event.TypeReportStatusChanged, reportID, actor.ID, map[string]interface{}{
			event.KeyOwnerID:        report.UserID,
			event.KeyPreviousStatus: string(report.Status),
			event.KeyNewStatus:      string(resolved),
		}))
	}
	return review, nil
}

func (s *reviewServiceImpl) ListReviews(ctx context.Context, actor *entity.Actor, reportID int64) ([]*entity.Review, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, notFound("report", reportID)
	}
	ok, err := s.team.canSeeReport(ctx, actor, report)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("report is outside your scope")
	}
	return s.reviews.ListByReport(ctx, reportID)
}

func (s *reviewServiceImpl) RecomputeStatus(ctx context.Context, reportID int64) (entity.ReportStatus, error) {
	var status entity.ReportStatus
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.reports.GetByID(txCtx, reportID)
		if err != nil {
			return err
		}
		if report == nil {
			return notFound("report", reportID)
		}
		status, _, err = s.recompute(txCtx, report)
		return err
	})
	return status, err
}

func (s *reviewServiceImpl) UpdateAllReportStatuses(ctx context.Context, actor *entity.Actor) (*RecomputeResult, error) {
	if !actor.HasPermission(entity.PermRecomputeStatuses) {
		return nil, forbidden("only admins may recompute report statuses")
	}

	result := &RecomputeResult{}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		reports, _, err := s.reports.List(txCtx, port.ReportFilter{Scope: port.ReportScope{All: true}})
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		for _, r := range reports {
			_, changed, err := s.recompute(txCtx, r)
			if err != nil {
				return err
			}
			result.Checked++
			if changed {
				result.Changed++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to recompute report statuses", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Report statuses recomputed", "actor_id", actor.ID, "checked", result.Checked, "changed", result.Changed)
	if result.Changed > 0 {
		s.events.Publish(ctx, event.NewEvent(event.TypeReportStatusChanged, 0, actor.ID, nil))
	}
	return result, nil
}

func (s *reviewServiceImpl) recompute(ctx context.Context, report *entity.Report) (entity.ReportStatus, bool, error) {
	all, err := s.reviews.ListByReport(ctx, report.ID)
	if err != nil {
		return "", false, fmt.Errorf("load reviews: %w", err)
	}
	resolved := workflow.ResolveStatus(report.Status, workflow.CurrentRound(report.ReviewRound, all))
	if resolved == report.Status {
		return resolved, false, nil
	}
	if err := s.reports.UpdateStatus(ctx, report.ID, resolved); err != nil {
		return "", false, fmt.Errorf("update status: %w", err)
	}
	s.logger.Info("Report status corrected", "id", report.ID, "from", report.Status, "to", resolved)
	return resolved, true, nil
}
