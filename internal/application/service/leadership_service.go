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

// EmployeeInput carries the fields of a new employee
type EmployeeInput struct {
	Name       string
	Email      string
	NIP        string
	Position   string
	WorkUnitID *int64
	Roles      []entity.Role
}

// LeadershipService manages employees and the work-unit headship tied to
// the leader role. A unit has at most one head and a user heads at most one
// unit; every change applies both sides in one transaction.
type LeadershipService interface {
	CreateEmployee(ctx context.Context, actor *entity.Actor, in EmployeeInput) (*entity.User, error)
	// SetEmployeeRoles replaces a user's roles and work unit. Gaining the
	// leader role claims headship of the unit, displacing any current head.
	// Losing it, or moving units, releases the old headship.
	SetEmployeeRoles(ctx context.Context, actor *entity.Actor, userID int64, roles []entity.Role, workUnitID *int64) (*entity.User, error)
	DeleteEmployee(ctx context.Context, actor *entity.Actor, userID int64) error
}

type leadershipServiceImpl struct {
	users       port.UserRepository
	units       port.WorkUnitRepository
	assignments port.AssignmentRepository
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	clock       Clock
	logger      Logger
}

// NewLeadershipService creates a new LeadershipService
func NewLeadershipService(
	users port.UserRepository,
	units port.WorkUnitRepository,
	assignments port.AssignmentRepository,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	clock Clock,
	logger Logger,
) LeadershipService {
	return &leadershipServiceImpl{
		users:       users,
		units:       units,
		assignments: assignments,
		txManager:   txManager,
		events:      events,
		clock:       clock,
		logger:      logger,
	}
}

func (s *leadershipServiceImpl) CreateEmployee(ctx context.Context, actor *entity.Actor, in EmployeeInput) (*entity.User, error) {
	if !actor.HasPermission(entity.PermManageEmployees) {
		return nil, forbidden("only admins may manage employees")
	}

	now := s.clock()
	u := &entity.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		NIP:        strings.TrimSpace(in.NIP),
		Position:   strings.TrimSpace(in.Position),
		WorkUnitID: in.WorkUnitID,
		Roles:      entity.NormalizeRoles(in.Roles),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.validate(ctx, u); err != nil {
		return nil, err
	}

	var displaced int64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, u); err != nil {
			if isUnique(err) {
				return conflict("email or NIP")
			}
			return fmt.Errorf("create user: %w", err)
		}
		var err error
		displaced, err = s.applyHeadship(txCtx, u)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to create employee", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Employee created", "id", u.ID, "actor_id", actor.ID, "roles", u.Actor().RoleKey())
	s.publish(ctx, actor, u.ID, displaced)
	return u, nil
}

func (s *leadershipServiceImpl) SetEmployeeRoles(ctx context.Context, actor *entity.Actor, userID int64, roles []entity.Role, workUnitID *int64) (*entity.User, error) {
	if !actor.HasPermission(entity.PermManageEmployees) {
		return nil, forbidden("only admins may manage employees")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user", "error", err, "id", userID)
		return nil, err
	}
	if u == nil {
		return nil, notFound("user", userID)
	}
	u.Roles = entity.NormalizeRoles(roles)
	u.WorkUnitID = workUnitID
	if err := s.validate(ctx, u); err != nil {
		return nil, err
	}

	var displaced int64
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.UpdateRoles(txCtx, u.ID, u.Roles, u.WorkUnitID); err != nil {
			return fmt.Errorf("update roles: %w", err)
		}
		var err error
		displaced, err = s.applyHeadship(txCtx, u)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to set employee roles", "error", err, "id", userID, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Employee roles updated", "id", userID, "actor_id", actor.ID, "roles", u.Actor().RoleKey())
	s.publish(ctx, actor, u.ID, displaced)
	return u, nil
}

// applyHeadship makes the unit headship agree with u's roles and unit. It
// returns the id of a head displaced from u's unit, or zero.
func (s *leadershipServiceImpl) applyHeadship(ctx context.Context, u *entity.User) (int64, error) {
	leads := u.HasRole(entity.RoleLeader) && u.WorkUnitID != nil

	current, err := s.units.GetByHead(ctx, u.ID)
	if err != nil {
		return 0, fmt.Errorf("load headed unit: %w", err)
	}
	if current != nil && (!leads || current.ID != *u.WorkUnitID) {
		if err := s.units.SetHead(ctx, current.ID, nil); err != nil {
			return 0, fmt.Errorf("release headship: %w", err)
		}
		s.logger.Info("Work unit headship released", "unit_id", current.ID, "user_id", u.ID)
	}
	if !leads {
		return 0, nil
	}

	unit, err := s.units.GetByID(ctx, *u.WorkUnitID)
	if err != nil {
		return 0, fmt.Errorf("load work unit: %w", err)
	}
	if unit == nil {
		return 0, entity.FieldError("work_unit_id", "work unit does not exist")
	}
	if unit.HeadID != nil && *unit.HeadID == u.ID {
		return 0, nil
	}

	var displaced int64
	if unit.HeadID != nil {
		displaced = *unit.HeadID
	}
	if err := s.units.SetHead(ctx, unit.ID, &u.ID); err != nil {
		if isUnique(err) {
			return 0, conflict("work unit head")
		}
		return 0, fmt.Errorf("claim headship: %w", err)
	}
	s.logger.Info("Work unit headship claimed", "unit_id", unit.ID, "user_id", u.ID, "displaced_id", displaced)
	return displaced, nil
}

// DeleteEmployee removes a user who is not tied to any assignment, review,
// documentation or report.
func (s *leadershipServiceImpl) DeleteEmployee(ctx context.Context, actor *entity.Actor, userID int64) error {
	if !actor.HasPermission(entity.PermManageEmployees) {
		return forbidden("only admins may manage employees")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return notFound("user", userID)
	}

	n, err := s.assignments.CountForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count assignments: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: employee is linked to %d assignment(s)", ErrDependentRecords, n)
	}
	refs, err := s.users.CountReferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("count user references: %w", err)
	}
	if refs.Any() {
		return fmt.Errorf("%w: employee has %d review(s), %d documentation upload(s) and %d report(s) on record",
			ErrDependentRecords, refs.Reviews, refs.Documentation, refs.Reports)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		unit, err := s.units.GetByHead(txCtx, userID)
		if err != nil {
			return fmt.Errorf("load headed unit: %w", err)
		}
		if unit != nil {
			if err := s.units.SetHead(txCtx, unit.ID, nil); err != nil {
				return fmt.Errorf("release headship: %w", err)
			}
		}
		return s.users.Delete(txCtx, userID)
	})
	if err != nil {
		s.logger.Error("Failed to delete employee", "error", err, "id", userID, "actor_id", actor.ID)
		return err
	}

	s.logger.Info("Employee deleted", "id", userID, "actor_id", actor.ID)
	s.publish(ctx, actor, userID, 0)
	return nil
}

func (s *leadershipServiceImpl) validate(ctx context.Context, u *entity.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.WorkUnitID == nil {
		return nil
	}
	unit, err := s.units.GetByID(ctx, *u.WorkUnitID)
	if err != nil {
		return fmt.Errorf("load work unit: %w", err)
	}
	if unit == nil {
		return entity.FieldError("work_unit_id", "work unit does not exist")
	}
	return nil
}

func (s *leadershipServiceImpl) publish(ctx context.Context, actor *entity.Actor, userID, displaced int64) {
	ids := []int64{userID}
	if displaced != 0 {
		ids = append(ids, displaced)
	}
	s.events.Publish(ctx, event.NewEvent(event.TypeEmployeeChanged, userID, actor.ID, map[string]interface{}{
		event.KeyParticipantIDs: ids,
	}))
}
