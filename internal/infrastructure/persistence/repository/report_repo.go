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

// ReportRepository implements port.ReportRepository
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

const reportColumns = `
	r.id, r.user_id, r.assignment_id, r.travel_type, r.status, r.review_round,
	r.travel_order_number, r.destination_city, r.departure_date, r.return_date,
	r.actual_duration, r.travel_purpose, r.travel_order_file, r.spd_file,
	r.submitted_at, r.created_at, r.updated_at
`

// Create inserts the report header. A second report for the same
// assignment and user yields port.ErrUniqueViolation.
func (r *ReportRepository) Create(ctx context.Context, rep *entity.Report) error {
	query := `
		INSERT INTO reports (
			user_id, assignment_id, travel_type, status, review_round,
			travel_order_number, destination_city, departure_date, return_date,
			actual_duration, travel_purpose, travel_order_file, spd_file,
			submitted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		rep.UserID,
		rep.AssignmentID,
		string(rep.TravelType),
		string(rep.Status),
		rep.ReviewRound,
		rep.TravelOrderNumber,
		rep.DestinationCity,
		sqlite.Date(rep.DepartureDate),
		sqlite.Date(rep.ReturnDate),
		rep.ActualDuration,
		rep.TravelPurpose,
		sqlite.NullString(rep.TravelOrderFile),
		sqlite.NullString(rep.SPDFile),
		sqlite.NullTimestamp(rep.SubmittedAt),
		sqlite.Timestamp(rep.CreatedAt),
		sqlite.Timestamp(rep.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create report",
			zap.Int64("user_id", rep.UserID),
			zap.Int64("assignment_id", rep.AssignmentID),
			zap.Error(err))
		return fmt.Errorf("failed to create report: %w", sqlite.MapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rep.ID = id
	return nil
}

// Update writes owner-editable fields and updated_at
func (r *ReportRepository) Update(ctx context.Context, rep *entity.Report) error {
	query := `
		UPDATE reports
		SET travel_order_number = ?, destination_city = ?, departure_date = ?, return_date = ?,
			actual_duration = ?, travel_purpose = ?, travel_order_file = ?, spd_file = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		rep.TravelOrderNumber,
		rep.DestinationCity,
		sqlite.Date(rep.DepartureDate),
		sqlite.Date(rep.ReturnDate),
		rep.ActualDuration,
		rep.TravelPurpose,
		sqlite.NullString(rep.TravelOrderFile),
		sqlite.NullString(rep.SPDFile),
		sqlite.Timestamp(rep.UpdatedAt),
		rep.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update report", zap.Int64("id", rep.ID), zap.Error(err))
		return fmt.Errorf("failed to update report: %w", err)
	}
	return nil
}

// UpdateStatus writes the derived status. updated_at is left alone so a
// review never counts as an edit.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id int64, status entity.ReportStatus) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `UPDATE reports SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		r.logger.Error("Failed to update report status",
			zap.Int64("id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update report status: %w", err)
	}
	return nil
}

// MarkSubmitted moves the report into a new review round
func (r *ReportRepository) MarkSubmitted(ctx context.Context, id int64, round int, submittedAt time.Time) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE reports SET status = ?, review_round = ?, submitted_at = ? WHERE id = ?`,
		string(entity.ReportStatusSubmitted), round, sqlite.Timestamp(submittedAt), id,
	)
	if err != nil {
		r.logger.Error("Failed to mark report submitted", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark report submitted: %w", err)
	}
	return nil
}

// Delete removes a report; detail, narrative and reviews cascade
func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete report", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// GetByID returns the report header, or nil when absent
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	return r.getOne(ctx, `SELECT `+reportColumns+` FROM reports r WHERE r.id = ?`, id)
}

// GetByAssignmentAndUser returns the user's report on an assignment, or nil
func (r *ReportRepository) GetByAssignmentAndUser(ctx context.Context, assignmentID, userID int64) (*entity.Report, error) {
	return r.getOne(ctx, `SELECT `+reportColumns+` FROM reports r WHERE r.assignment_id = ? AND r.user_id = ?`, assignmentID, userID)
}

// List returns a page of visible reports, newest first, and the unpaged total
func (r *ReportRepository) List(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, int, error) {
	var clauses []string
	var args []interface{}
	if clause, scopeArgs := reportScopeClause(filter.Scope, "r.user_id"); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, scopeArgs...)
	}
	if filter.Status != "" {
		clauses = append(clauses, "r.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.TravelType != "" {
		clauses = append(clauses, "r.travel_type = ?")
		args = append(args, string(filter.TravelType))
	}
	if filter.AssignmentID != 0 {
		clauses = append(clauses, "r.assignment_id = ?")
		args = append(args, filter.AssignmentID)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	conn := sqlite.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports r`+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count reports", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	query := `SELECT ` + reportColumns + ` FROM reports r` + where +
		` ORDER BY r.created_at DESC, r.id DESC` + pageClause(filter.Limit, filter.Offset)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var items []*entity.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan report: %w", err)
		}
		items = append(items, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ReportRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.Report, error) {
	rep, err := scanReport(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.Any("args", args), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var rep entity.Report
	var travelType, status string
	var travelOrderFile, spdFile sql.NullString
	if err := row.Scan(
		&rep.ID, &rep.UserID, &rep.AssignmentID, &travelType, &status, &rep.ReviewRound,
		&rep.TravelOrderNumber, &rep.DestinationCity,
		sqlite.ScanTime(&rep.DepartureDate), sqlite.ScanTime(&rep.ReturnDate),
		&rep.ActualDuration, &rep.TravelPurpose, &travelOrderFile, &spdFile,
		sqlite.ScanNullTime(&rep.SubmittedAt),
		sqlite.ScanTime(&rep.CreatedAt), sqlite.ScanTime(&rep.UpdatedAt),
	); err != nil {
		return nil, err
	}
	rep.TravelType = entity.TravelType(travelType)
	rep.Status = entity.ReportStatus(status)
	rep.TravelOrderFile = travelOrderFile.String
	rep.SPDFile = spdFile.String
	return &rep, nil
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
