package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// StatsRepository implements port.StatsRepository
type StatsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatsRepository creates a new statistics repository
func NewStatsRepository(db *sql.DB, logger *zap.Logger) *StatsRepository {
	return &StatsRepository{db: db, logger: logger}
}

// CountAssignments counts assignments matching q
func (r *StatsRepository) CountAssignments(ctx context.Context, q port.AssignmentCount) (int, error) {
	var clauses []string
	var args []interface{}
	if q.CreatedIn != nil {
		clauses = append(clauses, "a.created_at >= ? AND a.created_at < ?")
		args = append(args, sqlite.Timestamp(q.CreatedIn.From), sqlite.Timestamp(q.CreatedIn.To))
	}
	if q.StartsIn != nil {
		clause, dateArgs := dateRange("a.start_date", *q.StartsIn)
		clauses = append(clauses, clause)
		args = append(args, dateArgs...)
	}
	if q.ParticipantID != 0 {
		clauses = append(clauses, "a.id IN (SELECT assignment_id FROM assignment_participants WHERE user_id = ?)")
		args = append(args, q.ParticipantID)
	}
	return r.count(ctx, "SELECT COUNT(*) FROM assignments a"+whereClause(clauses), args...)
}

// CountReports counts reports matching q
func (r *StatsRepository) CountReports(ctx context.Context, q port.ReportCount) (int, error) {
	from := "SELECT COUNT(*) FROM reports r"
	var clauses []string
	var args []interface{}
	if q.AssignmentStartsIn != nil {
		from += " JOIN assignments a ON a.id = r.assignment_id"
		clause, dateArgs := dateRange("a.start_date", *q.AssignmentStartsIn)
		clauses = append(clauses, clause)
		args = append(args, dateArgs...)
	}
	if clause, scopeArgs := reportScopeClause(q.Scope, "r.user_id"); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, scopeArgs...)
	}
	if q.Status != "" {
		clauses = append(clauses, "r.status = ?")
		args = append(args, string(q.Status))
	}
	if q.CreatedIn != nil {
		clauses = append(clauses, "r.created_at >= ? AND r.created_at < ?")
		args = append(args, sqlite.Timestamp(q.CreatedIn.From), sqlite.Timestamp(q.CreatedIn.To))
	}
	return r.count(ctx, from+whereClause(clauses), args...)
}

func (r *StatsRepository) CountDocumentation(ctx context.Context) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM assignment_documentations")
}

func (r *StatsRepository) CountWorkUnits(ctx context.Context) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM work_units")
}

// CountEmployees excludes admin and superadmin accounts
func (r *StatsRepository) CountEmployees(ctx context.Context) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM user_roles ur
			WHERE ur.user_id = u.id AND ur.role IN ('admin', 'superadmin'))
	`)
}

func (r *StatsRepository) CountFullboardPrices(ctx context.Context) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM fullboard_prices")
}

// RecentReports returns the newest visible reports
func (r *StatsRepository) RecentReports(ctx context.Context, scope port.ReportScope, limit int) ([]entity.ReportSummary, error) {
	query := `
		SELECT r.id, r.user_id, u.name, r.assignment_id, a.destination, r.status, r.travel_type, r.created_at
		FROM reports r
		JOIN users u ON u.id = r.user_id
		JOIN assignments a ON a.id = r.assignment_id
	`
	var args []interface{}
	if clause, scopeArgs := reportScopeClause(scope, "r.user_id"); clause != "" {
		query += " WHERE " + clause
		args = append(args, scopeArgs...)
	}
	query += " ORDER BY r.created_at DESC, r.id DESC" + pageClause(limit, 0)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load recent reports", zap.Error(err))
		return nil, fmt.Errorf("failed to load recent reports: %w", err)
	}
	defer rows.Close()

	items := []entity.ReportSummary{}
	for rows.Next() {
		var s entity.ReportSummary
		var status, travelType string
		var createdAt time.Time
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserName, &s.AssignmentID, &s.Destination,
			&status, &travelType, sqlite.ScanTime(&createdAt)); err != nil {
			return nil, fmt.Errorf("failed to scan recent report: %w", err)
		}
		s.Status = entity.ReportStatus(status)
		s.TravelType = entity.TravelType(travelType)
		s.CreatedAt = createdAt.Format(time.RFC3339)
		items = append(items, s)
	}
	return items, rows.Err()
}

// RecentAssignments returns the newest assignments, limited to those the
// participant joined when participantID is set
func (r *StatsRepository) RecentAssignments(ctx context.Context, participantID int64, limit int) ([]entity.AssignmentSummary, error) {
	query := `SELECT a.id, a.purpose, a.destination, a.start_date, a.creator_id, a.created_at FROM assignments a`
	var args []interface{}
	if participantID != 0 {
		query += " WHERE a.id IN (SELECT assignment_id FROM assignment_participants WHERE user_id = ?)"
		args = append(args, participantID)
	}
	query += " ORDER BY a.created_at DESC, a.id DESC" + pageClause(limit, 0)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load recent assignments", zap.Error(err))
		return nil, fmt.Errorf("failed to load recent assignments: %w", err)
	}
	defer rows.Close()

	items := []entity.AssignmentSummary{}
	for rows.Next() {
		var s entity.AssignmentSummary
		var startDate, createdAt time.Time
		if err := rows.Scan(&s.ID, &s.Purpose, &s.Destination, sqlite.ScanTime(&startDate),
			&s.CreatorID, sqlite.ScanTime(&createdAt)); err != nil {
			return nil, fmt.Errorf("failed to scan recent assignment: %w", err)
		}
		s.StartDate = startDate.Format("2006-01-02")
		s.CreatedAt = createdAt.Format(time.RFC3339)
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *StatsRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		r.logger.Error("Failed to run count query", zap.String("query", strings.Join(strings.Fields(query), " ")), zap.Error(err))
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

// dateRange matches a DATE column against the calendar days of p, read in
// the location p carries
func dateRange(col string, p port.Period) (string, []interface{}) {
	return col + " >= ? AND " + col + " < ?", []interface{}{sqlite.Date(p.From), sqlite.Date(p.To)}
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// Verify interface compliance
var _ port.StatsRepository = (*StatsRepository)(nil)
