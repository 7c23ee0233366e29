package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
)

// DocumentationInput is a geo-tagged photo for an assignment
type DocumentationInput struct {
	Photo     port.Upload
	Latitude  float64
	Longitude float64
	Address   string
	Notes     string
}

// DocumentationService manages field documentation of assignments
type DocumentationService interface {
	Add(ctx context.Context, actor *entity.Actor, assignmentID int64, in DocumentationInput) (*entity.Documentation, error)
	Delete(ctx context.Context, actor *entity.Actor, id int64) error
	List(ctx context.Context, actor *entity.Actor, assignmentID int64) ([]*entity.Documentation, error)
}

type documentationServiceImpl struct {
	docs        port.DocumentationRepository
	assignments port.AssignmentRepository
	storage     port.FileStorage
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	clock       Clock
	logger      Logger
}

// NewDocumentationService creates a new DocumentationService
func NewDocumentationService(
	docs port.DocumentationRepository,
	assignments port.AssignmentRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	clock Clock,
	logger Logger,
) DocumentationService {
	return &documentationServiceImpl{
		docs:        docs,
		assignments: assignments,
		storage:     storage,
		txManager:   txManager,
		events:      events,
		clock:       clock,
		logger:      logger,
	}
}

// Add stores the photo and records it. Participants and the creator of the
// assignment may add documentation.
func (s *documentationServiceImpl) Add(ctx context.Context, actor *entity.Actor, assignmentID int64, in DocumentationInput) (*entity.Documentation, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("assignment", assignmentID)
	}
	if !a.HasParticipant(actor.ID) && !a.IsCreator(actor.ID) {
		return nil, forbidden("only participants may document this assignment")
	}

	now := s.clock()
	doc := &entity.Documentation{
		AssignmentID: assignmentID,
		UserID:       actor.ID,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Address:      strings.TrimSpace(in.Address),
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := entity.ValidateUpload("photo", in.Photo.Filename, in.Photo.Size, true); err != nil {
		return nil, err
	}

	path, err := s.storage.Store(ctx, in.Photo, "documentation", assignmentID, "photo")
	if err != nil {
		s.logger.Error("Failed to store documentation photo", "error", err, "assignment_id", assignmentID)
		return nil, fmt.Errorf("store photo: %w", err)
	}
	doc.PhotoPath = path

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.docs.Create(txCtx, doc)
	})
	if err != nil {
		if derr := s.storage.Delete(ctx, path); derr != nil {
			s.logger.Warn("Failed to remove orphaned file", "path", path, "error", derr)
		}
		s.logger.Error("Failed to record documentation", "error", err, "assignment_id", assignmentID, "actor_id", actor.ID)
		return nil, fmt.Errorf("create documentation: %w", err)
	}

	s.logger.Info("Documentation added", "id", doc.ID, "assignment_id", assignmentID, "actor_id", actor.ID)
	s.events.Publish(ctx, event.NewEvent(event.TypeDocumentationChanged, assignmentID, actor.ID, map[string]interface{}{
		event.KeyParticipantIDs: a.ParticipantIDs(),
	}))
	return doc, nil
}

// Delete removes documentation. The uploader and the assignment creator may
// delete it.
func (s *documentationServiceImpl) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return notFound("documentation", id)
	}
	a, err := s.assignments.GetByID(ctx, doc.AssignmentID)
	if err != nil {
		return err
	}
	if doc.UserID != actor.ID && (a == nil || !a.IsCreator(actor.ID)) {
		return forbidden("only the uploader or the assignment creator may delete documentation")
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.docs.Delete(txCtx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete documentation", "error", err, "id", id, "actor_id", actor.ID)
		return fmt.Errorf("delete documentation: %w", err)
	}
	if err := s.storage.Delete(ctx, doc.PhotoPath); err != nil {
		s.logger.Warn("Failed to remove stored file", "path", doc.PhotoPath, "error", err)
	}

	s.logger.Info("Documentation deleted", "id", id, "actor_id", actor.ID)
	var participants []int64
	if a != nil {
		participants = a.ParticipantIDs()
	}
	s.events.Publish(ctx, event.NewEvent(event.TypeDocumentationChanged, doc.AssignmentID, actor.ID, map[string]interface{}{
		event.KeyParticipantIDs: participants,
	}))
	return nil
}

func (s *documentationServiceImpl) List(ctx context.Context, actor *entity.Actor, assignmentID int64) ([]*entity.Documentation, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("assignment", assignmentID)
	}
	if !seesAllAssignments(actor) && !a.HasParticipant(actor.ID) && !a.IsCreator(actor.ID) {
		return nil, forbidden("not a participant of this assignment")
	}
	return s.docs.ListByAssignment(ctx, assignmentID)
}
