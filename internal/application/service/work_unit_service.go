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

// WorkUnitInput carries the fields of a new work unit
type WorkUnitInput struct {
	Name        string
	Code        string
	Description string
}

// WorkUnitService manages work units
type WorkUnitService interface {
	Create(ctx context.Context, actor *entity.Actor, in WorkUnitInput) (*entity.WorkUnit, error)
	// Delete removes the unit; members are detached by the storage layer
	Delete(ctx context.Context, actor *entity.Actor, id int64) error
}

type workUnitServiceImpl struct {
	units     port.WorkUnitRepository
	txManager port.TransactionManager
	events    dispatcher.Dispatcher
	clock     Clock
	logger    Logger
}

// NewWorkUnitService creates a new WorkUnitService
func NewWorkUnitService(units port.WorkUnitRepository, txManager port.TransactionManager, events dispatcher.Dispatcher, clock Clock, logger Logger) WorkUnitService {
	return &workUnitServiceImpl{
		units:     units,
		txManager: txManager,
		events:    events,
		clock:     clock,
		logger:    logger,
	}
}

func (s *workUnitServiceImpl) Create(ctx context.Context, actor *entity.Actor, in WorkUnitInput) (*entity.WorkUnit, error) {
	if !actor.HasPermission(entity.PermManageWorkUnits) {
		return nil, forbidden("only admins may manage work units")
	}

	now := s.clock()
	w := &entity.WorkUnit{
		Name:        strings.TrimSpace(in.Name),
		Code:        strings.TrimSpace(in.Code),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.units.Create(txCtx, w); err != nil {
			if isUnique(err) {
				return conflict("work unit code " + w.Code)
			}
			return fmt.Errorf("create work unit: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create work unit", "error", err, "code", w.Code, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Work unit created", "id", w.ID, "code", w.Code, "actor_id", actor.ID)
	return w, nil
}

func (s *workUnitServiceImpl) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	if !actor.HasPermission(entity.PermManageWorkUnits) {
		return forbidden("only admins may manage work units")
	}

	w, err := s.units.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return notFound("work unit", id)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.units.Delete(txCtx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete work unit", "error", err, "id", id, "actor_id", actor.ID)
		return fmt.Errorf("delete work unit: %w", err)
	}

	s.logger.Info("Work unit deleted", "id", id, "code", w.Code, "actor_id", actor.ID)
	// membership and headship changed for unknown users
	s.events.Publish(ctx, event.NewEvent(event.TypeEmployeeChanged, 0, actor.ID, nil))
	return nil
}
