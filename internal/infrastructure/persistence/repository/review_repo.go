package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ReviewRepository implements port.ReviewRepository
type ReviewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sql.DB, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{db: db, logger: logger}
}

// Create inserts a review. A second verdict by the same reviewer type in the
// same round yields port.ErrUniqueViolation.
func (r *ReviewRepository) Create(ctx context.Context, rv *entity.Review) error {
	query := `
		INSERT INTO reviews (report_id, reviewer_id, reviewer_type, status, notes, round, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		rv.ReportID,
		rv.ReviewerID,
		string(rv.ReviewerType),
		string(rv.Status),
		sqlite.NullString(rv.Notes),
		rv.Round,
		sqlite.Timestamp(rv.CreatedAt),
		sqlite.Timestamp(rv.UpdatedAt),
	)
	if err != nil {
		mapped := sqlite.MapError(err)
		if mapped == err {
			r.logger.Error("Failed to create review",
				zap.Int64("report_id", rv.ReportID),
				zap.String("reviewer_type", string(rv.ReviewerType)),
				zap.Error(err))
		}
		return fmt.Errorf("failed to create review: %w", mapped)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rv.ID = id
	return nil
}

// ListByReport returns every review of a report in the order recorded
func (r *ReviewRepository) ListByReport(ctx context.Context, reportID int64) ([]*entity.Review, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, report_id, reviewer_id, reviewer_type, status, notes, round, created_at, updated_at
		FROM reviews
		WHERE report_id = ?
		ORDER BY created_at, id
	`, reportID)
	if err != nil {
		r.logger.Error("Failed to list reviews", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var rv entity.Review
		var reviewerType, status string
		var notes sql.NullString
		if err := rows.Scan(
			&rv.ID, &rv.ReportID, &rv.ReviewerID, &reviewerType, &status, &notes, &rv.Round,
			sqlite.ScanTime(&rv.CreatedAt), sqlite.ScanTime(&rv.UpdatedAt),
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rv.ReviewerType = entity.ReviewerType(reviewerType)
		rv.Status = entity.ReviewStatus(status)
		rv.Notes = notes.String
		reviews = append(reviews, &rv)
	}
	return reviews, rows.Err()
}

// Verify interface compliance
var _ port.ReviewRepository = (*ReviewRepository)(nil)
