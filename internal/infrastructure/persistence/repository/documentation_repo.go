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

// DocumentationRepository implements port.DocumentationRepository
type DocumentationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentationRepository creates a new documentation repository
func NewDocumentationRepository(db *sql.DB, logger *zap.Logger) *DocumentationRepository {
	return &DocumentationRepository{db: db, logger: logger}
}

const documentationColumns = `id, assignment_id, user_id, photo_path, latitude, longitude, address, notes, created_at, updated_at`

// Create inserts a documentation record
func (r *DocumentationRepository) Create(ctx context.Context, d *entity.Documentation) error {
	query := `
		INSERT INTO assignment_documentations (
			assignment_id, user_id, photo_path, latitude, longitude, address, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		d.AssignmentID,
		d.UserID,
		d.PhotoPath,
		d.Latitude,
		d.Longitude,
		sqlite.NullString(d.Address),
		sqlite.NullString(d.Notes),
		sqlite.Timestamp(d.CreatedAt),
		sqlite.Timestamp(d.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create documentation",
			zap.Int64("assignment_id", d.AssignmentID),
			zap.Int64("user_id", d.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create documentation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// GetByID returns the documentation record, or nil
func (r *DocumentationRepository) GetByID(ctx context.Context, id int64) (*entity.Documentation, error) {
	d, err := scanDocumentation(sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+documentationColumns+` FROM assignment_documentations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get documentation", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get documentation: %w", err)
	}
	return d, nil
}

// Delete removes a documentation record
func (r *DocumentationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM assignment_documentations WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete documentation", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete documentation: %w", err)
	}
	return nil
}

// ListByAssignment returns the documentation of an assignment, oldest first
func (r *DocumentationRepository) ListByAssignment(ctx context.Context, assignmentID int64) ([]*entity.Documentation, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+documentationColumns+` FROM assignment_documentations WHERE assignment_id = ? ORDER BY created_at, id`,
		assignmentID)
	if err != nil {
		r.logger.Error("Failed to list documentation", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list documentation: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Documentation
	for rows.Next() {
		d, err := scanDocumentation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan documentation: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocumentation(row rowScanner) (*entity.Documentation, error) {
	var d entity.Documentation
	var address, notes sql.NullString
	if err := row.Scan(
		&d.ID, &d.AssignmentID, &d.UserID, &d.PhotoPath, &d.Latitude, &d.Longitude,
		&address, &notes, sqlite.ScanTime(&d.CreatedAt), sqlite.ScanTime(&d.UpdatedAt),
	); err != nil {
		return nil, err
	}
	d.Address = address.String
	d.Notes = notes.String
	return &d, nil
}

// Verify interface compliance
var _ port.DocumentationRepository = (*DocumentationRepository)(nil)
