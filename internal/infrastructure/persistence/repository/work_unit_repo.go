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

// WorkUnitRepository implements port.WorkUnitRepository
type WorkUnitRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkUnitRepository creates a new work unit repository
func NewWorkUnitRepository(db *sql.DB, logger *zap.Logger) *WorkUnitRepository {
	return &WorkUnitRepository{db: db, logger: logger}
}

const workUnitColumns = `id, name, code, description, head_id, created_at, updated_at`

// Create inserts a work unit. A duplicate code yields port.ErrUniqueViolation.
func (r *WorkUnitRepository) Create(ctx context.Context, w *entity.WorkUnit) error {
	query := `
		INSERT INTO work_units (name, code, description, head_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		w.Name,
		w.Code,
		sqlite.NullString(w.Description),
		sqlite.NullInt64(w.HeadID),
		sqlite.Timestamp(w.CreatedAt),
		sqlite.Timestamp(w.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create work unit", zap.String("code", w.Code), zap.Error(err))
		return fmt.Errorf("failed to create work unit: %w", sqlite.MapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	w.ID = id
	return nil
}

// GetByID returns the work unit, or nil when absent
func (r *WorkUnitRepository) GetByID(ctx context.Context, id int64) (*entity.WorkUnit, error) {
	return r.getOne(ctx, `SELECT `+workUnitColumns+` FROM work_units WHERE id = ?`, id)
}

// GetByHead returns the unit headed by userID, or nil
func (r *WorkUnitRepository) GetByHead(ctx context.Context, userID int64) (*entity.WorkUnit, error) {
	return r.getOne(ctx, `SELECT `+workUnitColumns+` FROM work_units WHERE head_id = ?`, userID)
}

// SetHead assigns or clears the head of a unit
func (r *WorkUnitRepository) SetHead(ctx context.Context, unitID int64, headID *int64) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE work_units SET head_id = ? WHERE id = ?`,
		sqlite.NullInt64(headID), unitID,
	)
	if err != nil {
		r.logger.Error("Failed to set work unit head", zap.Int64("unit_id", unitID), zap.Error(err))
		return fmt.Errorf("failed to set work unit head: %w", sqlite.MapError(err))
	}
	return nil
}

// Delete removes a work unit; members keep their accounts without a unit
func (r *WorkUnitRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM work_units WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete work unit", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete work unit: %w", err)
	}
	return nil
}

func (r *WorkUnitRepository) getOne(ctx context.Context, query string, arg int64) (*entity.WorkUnit, error) {
	var w entity.WorkUnit
	var description sql.NullString
	var headID sql.NullInt64
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&w.ID, &w.Name, &w.Code, &description, &headID,
		sqlite.ScanTime(&w.CreatedAt), sqlite.ScanTime(&w.UpdatedAt),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get work unit", zap.Int64("arg", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get work unit: %w", err)
	}
	w.Description = description.String
	w.HeadID = sqlite.Int64Ptr(headID)
	return &w, nil
}

// Verify interface compliance
var _ port.WorkUnitRepository = (*WorkUnitRepository)(nil)
