package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
)

// DashboardService builds role-scoped statistics for the landing page
type DashboardService interface {
	Compute(ctx context.Context, actor *entity.Actor) (*entity.DashboardStats, error)
	// ClearCache drops every cached dashboard
	ClearCache(ctx context.Context, actor *entity.Actor) error
	// HandleEvent drops cached dashboards a committed change may have
	// made stale. It never returns an error.
	HandleEvent(ctx context.Context, evt *event.Event) error
}

type dashboardServiceImpl struct {
	stats  port.StatsRepository
	cache  port.StatsCache
	loc    *time.Location
	clock  Clock
	logger Logger
}

// NewDashboardService creates a new DashboardService. Calendar windows are
// evaluated in loc.
func NewDashboardService(stats port.StatsRepository, cache port.StatsCache, loc *time.Location, clock Clock, logger Logger) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardServiceImpl{
		stats:  stats,
		cache:  cache,
		loc:    loc,
		clock:  clock,
		logger: logger,
	}
}

const cacheKeyPrefix = "dashboard:"

// DashboardCacheKey returns the cache key for an actor. Role sets whose
// blocks depend on who is asking are keyed per user.
func DashboardCacheKey(actor *entity.Actor) string {
	owner := "global"
	if actor.HasAnyRole(entity.RoleLeader, entity.RoleEmployee) {
		owner = strconv.FormatInt(actor.ID, 10)
	}
	return cacheKeyPrefix + actor.RoleKey() + ":" + owner
}

func (s *dashboardServiceImpl) Compute(ctx context.Context, actor *entity.Actor) (*entity.DashboardStats, error) {
	key := DashboardCacheKey(actor)
	stats, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*entity.DashboardStats, error) {
		return s.compute(ctx, actor)
	})
	if err != nil {
		s.logger.Error("Failed to compute dashboard", "error", err, "actor_id", actor.ID, "key", key)
		return nil, err
	}
	return stats, nil
}

func (s *dashboardServiceImpl) ClearCache(ctx context.Context, actor *entity.Actor) error {
	if !actor.HasPermission(entity.PermClearDashboard) {
		return forbidden("only admins may clear the dashboard cache")
	}
	s.cache.Purge()
	s.logger.Info("Dashboard cache cleared", "actor_id", actor.ID)
	return nil
}

func (s *dashboardServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	if evt.Type == event.TypeAssignmentDeleted || evt.AggregateID == 0 {
		s.cache.Purge()
		return nil
	}

	affected := map[string]bool{}
	mark := func(id int64) {
		if id > 0 {
			affected[strconv.FormatInt(id, 10)] = true
		}
	}
	mark(evt.ActorID)
	mark(evt.GetPayloadInt(event.KeyOwnerID))
	for _, id := range evt.GetPayloadIDs(event.KeyParticipantIDs) {
		mark(id)
	}

	removed := s.cache.RemoveMatching(func(key string) bool {
		roles, owner := splitCacheKey(key)
		return owner == "global" || strings.Contains(roles, string(entity.RoleLeader)) || affected[owner]
	})
	if removed > 0 {
		s.logger.Info("Dashboard cache invalidated", "event", evt.Type, "removed", removed)
	}
	return nil
}

func splitCacheKey(key string) (roles, owner string) {
	rest := strings.TrimPrefix(key, cacheKeyPrefix)
	i := strings.LastIndex(rest, ":")
	if i < 0 {
		return rest, ""
	}
	return rest[:i], rest[i+1:]
}

func (s *dashboardServiceImpl) compute(ctx context.Context, actor *entity.Actor) (*entity.DashboardStats, error) {
	cal := newCalendar(s.clock(), s.loc)
	out := &entity.DashboardStats{}

	core, err := s.core(ctx, cal)
	if err != nil {
		return nil, fmt.Errorf("core stats: %w", err)
	}
	out.Core = *core

	if actor.HasAnyRole(entity.RoleAdmin, entity.RoleSuperadmin) {
		if out.Admin, err = s.admin(ctx, cal); err != nil {
			return nil, fmt.Errorf("admin stats: %w", err)
		}
	}

	switch {
	case actor.HasRole(entity.RoleVerificator):
		if out.Team, err = s.monthly(ctx, cal, port.ReportScope{All: true}, 0, byAssignmentStart); err != nil {
			return nil, fmt.Errorf("verificator stats: %w", err)
		}
	case actor.HasRole(entity.RoleLeader):
		// reports are unit-scoped, assignment counts stay global
		if out.Team, err = s.monthly(ctx, cal, port.ReportScope{TeamHeadID: actor.ID}, 0, byAssignmentStart); err != nil {
			return nil, fmt.Errorf("leader stats: %w", err)
		}
	}

	if actor.HasRole(entity.RoleEmployee) {
		if out.Employee, err = s.monthly(ctx, cal, port.ReportScope{OwnerID: actor.ID}, actor.ID, byCreation); err != nil {
			return nil, fmt.Errorf("employee stats: %w", err)
		}
	}

	participant := int64(0)
	if !seesAllAssignments(actor) {
		participant = actor.ID
	}
	if out.RecentReports, err = s.stats.RecentReports(ctx, reportScopeFor(actor), entity.RecentActivityLimit); err != nil {
		return nil, fmt.Errorf("recent reports: %w", err)
	}
	if out.RecentAssignments, err = s.stats.RecentAssignments(ctx, participant, entity.RecentActivityLimit); err != nil {
		return nil, fmt.Errorf("recent assignments: %w", err)
	}
	if out.RecentReports == nil {
		out.RecentReports = []entity.ReportSummary{}
	}
	if out.RecentAssignments == nil {
		out.RecentAssignments = []entity.AssignmentSummary{}
	}

	s.logger.Info("Dashboard computed", "actor_id", actor.ID, "roles", actor.RoleKey())
	return out, nil
}

func (s *dashboardServiceImpl) core(ctx context.Context, cal calendar) (*entity.CoreStats, error) {
	all := port.ReportScope{All: true}
	thisMonth, lastMonth := cal.month(0), cal.month(-1)

	c := &entity.CoreStats{}
	counts := []struct {
		dst *int
		run func() (int, error)
	}{
		{&c.TotalAssignments, func() (int, error) { return s.stats.CountAssignments(ctx, port.AssignmentCount{}) }},
		{&c.TotalDocumentations, func() (int, error) { return s.stats.CountDocumentation(ctx) }},
		{&c.AssignmentsThisMonth, func() (int, error) {
			return s.stats.CountAssignments(ctx, port.AssignmentCount{CreatedIn: &thisMonth})
		}},
		{&c.ReportsThisMonth, func() (int, error) {
			return s.stats.CountReports(ctx, port.ReportCount{Scope: all, CreatedIn: &thisMonth})
		}},
		{&c.ReportsLastMonth, func() (int, error) {
			return s.stats.CountReports(ctx, port.ReportCount{Scope: all, CreatedIn: &lastMonth})
		}},
		{&c.ReportsApproved, func() (int, error) {
			return s.stats.CountReports(ctx, port.ReportCount{Scope: all, Status: entity.ReportStatusApproved})
		}},
		{&c.ReportsSubmitted, func() (int, error) {
			return s.stats.CountReports(ctx, port.ReportCount{Scope: all, Status: entity.ReportStatusSubmitted})
		}},
		{&c.ReportsRejected, func() (int, error) {
			return s.stats.CountReports(ctx, port.ReportCount{Scope: all, Status: entity.ReportStatusRejected})
		}},
	}
	for _, q := range counts {
		n, err := q.run()
		if err != nil {
			return nil, err
		}
		*q.dst = n
	}
	// drafts are left out of the rollup
	c.ReportsTotal = c.ReportsApproved + c.ReportsSubmitted + c.ReportsRejected
	return c, nil
}

func (s *dashboardServiceImpl) admin(ctx context.Context, cal calendar) (*entity.AdminStats, error) {
	monthly, err := s.monthly(ctx, cal, port.ReportScope{All: true}, 0, byCreation)
	if err != nil {
		return nil, err
	}
	a := &entity.AdminStats{MonthlyStats: *monthly}
	if a.WorkUnits, err = s.stats.CountWorkUnits(ctx); err != nil {
		return nil, err
	}
	if a.Employees, err = s.stats.CountEmployees(ctx); err != nil {
		return nil, err
	}
	if a.FullboardPrices, err = s.stats.CountFullboardPrices(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// reportWindow picks which date places a report in the current month
type reportWindow int

const (
	// byCreation counts reports created this month
	byCreation reportWindow = iota
	// byAssignmentStart counts reports whose assignment starts this month
	byAssignmentStart
)

// monthly counts reports in scope for the current month, plus assignments
// starting this month and this year. A non-zero participant limits the
// assignment counts to that user.
func (s *dashboardServiceImpl) monthly(ctx context.Context, cal calendar, scope port.ReportScope, participant int64, window reportWindow) (*entity.MonthlyStats, error) {
	month, year := cal.monthDates(), cal.yearDates()
	created := cal.month(0)
	m := &entity.MonthlyStats{}

	buckets := []struct {
		dst    *int
		status entity.ReportStatus
	}{
		{&m.Reports.Approved, entity.ReportStatusApproved},
		{&m.Reports.Submitted, entity.ReportStatusSubmitted},
		{&m.Reports.Rejected, entity.ReportStatusRejected},
		{&m.Reports.Draft, entity.ReportStatusDraft},
		{&m.Reports.Total, ""},
	}
	for _, b := range buckets {
		q := port.ReportCount{Scope: scope, Status: b.status, CreatedIn: &created}
		if window == byAssignmentStart {
			q.CreatedIn, q.AssignmentStartsIn = nil, &month
		}
		n, err := s.stats.CountReports(ctx, q)
		if err != nil {
			return nil, err
		}
		*b.dst = n
	}

	var err error
	if m.AssignmentsThisMonth, err = s.stats.CountAssignments(ctx, port.AssignmentCount{StartsIn: &month, ParticipantID: participant}); err != nil {
		return nil, err
	}
	if m.AssignmentsThisYear, err = s.stats.CountAssignments(ctx, port.AssignmentCount{StartsIn: &year, ParticipantID: participant}); err != nil {
		return nil, err
	}
	return m, nil
}
