package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
)

// AssignmentInput carries the editable fields of an assignment
type AssignmentInput struct {
	Purpose        string
	Destination    string
	StartDate      time.Time
	EndDate        time.Time
	ParticipantIDs []int64
}

// AssignmentQuery filters assignment listings
type AssignmentQuery struct {
	Search     string
	StartDate  *time.Time
	HasReports *bool
	Limit      int
	Offset     int
}

// AssignmentService manages travel assignments and their participants
type AssignmentService interface {
	Create(ctx context.Context, actor *entity.Actor, in AssignmentInput) (*entity.Assignment, error)
	Update(ctx context.Context, actor *entity.Actor, id int64, in AssignmentInput) (*entity.Assignment, error)
	Delete(ctx context.Context, actor *entity.Actor, id int64) error
	BulkDelete(ctx context.Context, actor *entity.Actor, ids []int64) (int64, error)
	Get(ctx context.Context, actor *entity.Actor, id int64) (*entity.Assignment, error)
	List(ctx context.Context, actor *entity.Actor, q AssignmentQuery) ([]*entity.Assignment, int, error)
}

type assignmentServiceImpl struct {
	assignments port.AssignmentRepository
	users       port.UserRepository
	docs        port.DocumentationRepository
	reports     port.ReportRepository
	expenses    port.ExpenseRepository
	storage     port.FileStorage
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	clock       Clock
	logger      Logger
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(
	assignments port.AssignmentRepository,
	users port.UserRepository,
	docs port.DocumentationRepository,
	reports port.ReportRepository,
	expenses port.ExpenseRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	clock Clock,
	logger Logger,
) AssignmentService {
	return &assignmentServiceImpl{
		assignments: assignments,
		users:       users,
		docs:        docs,
		reports:     reports,
		expenses:    expenses,
		storage:     storage,
		txManager:   txManager,
		events:      events,
		clock:       clock,
		logger:      logger,
	}
}

// Create stores a new assignment, attaches participants and notifies them
// once the transaction has committed.
func (s *assignmentServiceImpl) Create(ctx context.Context, actor *entity.Actor, in AssignmentInput) (*entity.Assignment, error) {
	if !actor.HasPermission(entity.PermManageAssignments) {
		return nil, forbidden("only admins and leaders may create assignments")
	}

	participantIDs := entity.UniqueIDs(in.ParticipantIDs)
	now := s.clock()
	a := &entity.Assignment{
		Purpose:     strings.TrimSpace(in.Purpose),
		Destination: strings.TrimSpace(in.Destination),
		StartDate:   CivilDate(in.StartDate),
		EndDate:     CivilDate(in.EndDate),
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.validate(ctx, a, participantIDs); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.assignments.Create(txCtx, a); err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		if err := s.assignments.SetParticipants(txCtx, a.ID, participantIDs); err != nil {
			return fmt.Errorf("attach participants: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create assignment", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Assignment created", "id", a.ID, "actor_id", actor.ID, "participants", len(participantIDs))
	s.events.Publish(ctx, event.NewEvent(event.TypeAssignmentCreated, a.ID, actor.ID, map[string]interface{}{
		event.KeyParticipantIDs: participantIDs,
	}))

	return s.assignments.GetByID(ctx, a.ID)
}

// Update rewrites an assignment. Only its creator may do so, and only
// participants added by this call are notified.
func (s *assignmentServiceImpl) Update(ctx context.Context, actor *entity.Actor, id int64, in AssignmentInput) (*entity.Assignment, error) {
	a, err := s.loadOwned(ctx, actor, id, "edit")
	if err != nil {
		return nil, err
	}

	participantIDs := entity.UniqueIDs(in.ParticipantIDs)
	a.Purpose = strings.TrimSpace(in.Purpose)
	a.Destination = strings.TrimSpace(in.Destination)
	a.StartDate = CivilDate(in.StartDate)
	a.EndDate = CivilDate(in.EndDate)
	a.UpdatedAt = s.clock()
	if err := s.validate(ctx, a, participantIDs); err != nil {
		return nil, err
	}

	var added []int64
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		previous, err := s.assignments.ParticipantIDs(txCtx, id)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		if err := s.assignments.Update(txCtx, a); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		if err := s.assignments.SetParticipants(txCtx, id, participantIDs); err != nil {
			return fmt.Errorf("sync participants: %w", err)
		}
		added = entity.DiffParticipants(previous, participantIDs)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update assignment", "error", err, "id", id, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Assignment updated", "id", id, "actor_id", actor.ID, "new_participants", len(added))
	s.events.Publish(ctx, event.NewEvent(event.TypeAssignmentUpdated, id, actor.ID, map[string]interface{}{
		event.KeyParticipantIDs: added,
	}))

	return s.assignments.GetByID(ctx, id)
}

// Delete removes an assignment with its reports and documentation. Only the
// creator may delete.
func (s *assignmentServiceImpl) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	if _, err := s.loadOwned(ctx, actor, id, "delete"); err != nil {
		return err
	}
	return s.deleteAll(ctx, actor, []int64{id})
}

// BulkDelete removes several assignments. It is gated by role only; rows
// the actor did not create are deleted too.
func (s *assignmentServiceImpl) BulkDelete(ctx context.Context, actor *entity.Actor, ids []int64) (int64, error) {
	if !actor.HasPermission(entity.PermManageAssignments) {
		return 0, forbidden("only admins and leaders may delete assignments")
	}
	ids = entity.UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, entity.FieldError("ids", "select at least one assignment")
	}
	if err := s.deleteAll(ctx, actor, ids); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (s *assignmentServiceImpl) deleteAll(ctx context.Context, actor *entity.Actor, ids []int64) error {
	files, err := s.collectFiles(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to collect assignment files", "error", err, "ids", ids)
		return err
	}

	var deleted int64
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		n, err := s.assignments.DeleteMany(txCtx, ids)
		if err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete assignments", "error", err, "ids", ids, "actor_id", actor.ID)
		return err
	}

	s.removeFiles(ctx, files)
	s.logger.Info("Assignments deleted", "ids", ids, "deleted", deleted, "actor_id", actor.ID)
	for _, id := range ids {
		s.events.Publish(ctx, event.NewEvent(event.TypeAssignmentDeleted, id, actor.ID, nil))
	}
	return nil
}

// collectFiles gathers stored paths that belong to the assignments so they
// can be removed after the rows are gone.
func (s *assignmentServiceImpl) collectFiles(ctx context.Context, ids []int64) ([]string, error) {
	var files []string
	for _, id := range ids {
		docs, err := s.docs.ListByAssignment(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			files = append(files, d.PhotoPath)
		}

		reports, _, err := s.reports.List(ctx, port.ReportFilter{Scope: port.ReportScope{All: true}, AssignmentID: id})
		if err != nil {
			return nil, err
		}
		for _, r := range reports {
			files = append(files, r.TravelOrderFile, r.SPDFile)
			detail, err := s.expenses.GetDetail(ctx, r.ID, r.TravelType)
			if err != nil {
				return nil, err
			}
			files = append(files, receiptPaths(detail)...)
		}
	}
	return files, nil
}

func (s *assignmentServiceImpl) removeFiles(ctx context.Context, paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.storage.Delete(ctx, p); err != nil {
			s.logger.Warn("Failed to remove stored file", "path", p, "error", err)
		}
	}
}

func (s *assignmentServiceImpl) Get(ctx context.Context, actor *entity.Actor, id int64) (*entity.Assignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get assignment", "error", err, "id", id)
		return nil, err
	}
	if a == nil {
		return nil, notFound("assignment", id)
	}
	if !seesAllAssignments(actor) && !a.HasParticipant(actor.ID) && !a.IsCreator(actor.ID) {
		return nil, forbidden("not a participant of this assignment")
	}
	return a, nil
}

func (s *assignmentServiceImpl) List(ctx context.Context, actor *entity.Actor, q AssignmentQuery) ([]*entity.Assignment, int, error) {
	items, total, err := s.assignments.List(ctx, assignmentFilterFor(actor, q))
	if err != nil {
		s.logger.Error("Failed to list assignments", "error", err, "actor_id", actor.ID)
		return nil, 0, err
	}
	return items, total, nil
}

// loadOwned loads an assignment and enforces creator-only access. Admins
// are not exempt.
func (s *assignmentServiceImpl) loadOwned(ctx context.Context, actor *entity.Actor, id int64, action string) (*entity.Assignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load assignment", "error", err, "id", id)
		return nil, err
	}
	if a == nil {
		return nil, notFound("assignment", id)
	}
	if !a.IsCreator(actor.ID) {
		s.logger.Warn("Assignment ownership check failed", "id", id, "actor_id", actor.ID, "action", action)
		return nil, forbidden("only the creator may " + action + " this assignment")
	}
	return a, nil
}

func (s *assignmentServiceImpl) validate(ctx context.Context, a *entity.Assignment, participantIDs []int64) error {
	if err := a.Validate(participantIDs); err != nil {
		return err
	}
	users, err := s.users.GetByIDs(ctx, participantIDs)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	if len(users) != len(participantIDs) {
		return entity.FieldError("participants", "one or more participants do not exist")
	}
	return nil
}

func receiptPaths(detail entity.ExpenseDetail) []string {
	if detail == nil {
		return nil
	}
	var paths []string
	for _, slot := range receiptSlotNames(detail.TravelType()) {
		if p, ok := detail.ReceiptSlot(slot); ok && *p != "" {
			paths = append(paths, *p)
		}
	}
	return paths
}

// receiptSlotNames lists the receipt fields of each detail shape.
func receiptSlotNames(t entity.TravelType) []string {
	switch t {
	case entity.TravelTypeInCity:
		return []string{"transport_receipt", "other_receipt"}
	case entity.TravelTypeOutCity:
		return []string{"transport_receipt", "accommodation_receipt", "representation_receipt", "other_receipt"}
	case entity.TravelTypeOutCountry:
		return []string{"airfare_receipt", "accommodation_receipt", "visa_receipt", "other_receipt"}
	}
	return nil
}

// isUnique reports whether err is a unique-constraint violation.
func isUnique(err error) bool {
	return errors.Is(err, port.ErrUniqueViolation)
}
