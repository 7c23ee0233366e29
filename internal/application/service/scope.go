package service

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
)

// seesAllAssignments is true for roles that list every assignment.
func seesAllAssignments(actor *entity.Actor) bool {
	return actor.SeesAllRecords() || actor.HasRole(entity.RoleLeader)
}

// reportScopeFor returns the reports an actor may read. Admins,
// superadmins and verificators see everything; a leader sees reports of the
// unit they head; everyone sees their own.
func reportScopeFor(actor *entity.Actor) port.ReportScope {
	if actor.SeesAllRecords() {
		return port.ReportScope{All: true}
	}
	scope := port.ReportScope{OwnerID: actor.ID}
	if actor.HasRole(entity.RoleLeader) {
		scope.TeamHeadID = actor.ID
	}
	return scope
}

// assignmentFilterFor applies the actor's visibility to a listing query.
func assignmentFilterFor(actor *entity.Actor, q AssignmentQuery) port.AssignmentFilter {
	f := port.AssignmentFilter{
		Search:             q.Search,
		SearchParticipants: actor.SeesAllRecords(),
		HasReports:         q.HasReports,
		Limit:              q.Limit,
		Offset:             q.Offset,
	}
	if q.StartDate != nil {
		day := CivilDate(*q.StartDate)
		f.StartDate = &day
	}
	if !seesAllAssignments(actor) {
		f.ParticipantID = actor.ID
	}
	return f
}

// teamChecker answers whether a report owner belongs to a unit headed by a
// given leader.
type teamChecker struct {
	users port.UserRepository
	units port.WorkUnitRepository
}

func (c teamChecker) headOf(ctx context.Context, userID int64) (int64, error) {
	owner, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load owner: %w", err)
	}
	if owner == nil || owner.WorkUnitID == nil {
		return 0, nil
	}
	unit, err := c.units.GetByID(ctx, *owner.WorkUnitID)
	if err != nil {
		return 0, fmt.Errorf("load work unit: %w", err)
	}
	if unit == nil || unit.HeadID == nil {
		return 0, nil
	}
	return *unit.HeadID, nil
}

// canSeeReport evaluates reportScopeFor against a single report.
func (c teamChecker) canSeeReport(ctx context.Context, actor *entity.Actor, report *entity.Report) (bool, error) {
	scope := reportScopeFor(actor)
	if scope.All || report.UserID == scope.OwnerID {
		return true, nil
	}
	if scope.TeamHeadID == 0 {
		return false, nil
	}
	head, err := c.headOf(ctx, report.UserID)
	if err != nil {
		return false, err
	}
	return head == scope.TeamHeadID, nil
}
