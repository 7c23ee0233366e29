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

// FullboardPriceRepository implements port.FullboardPriceRepository
type FullboardPriceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFullboardPriceRepository creates a new fullboard price repository
func NewFullboardPriceRepository(db *sql.DB, logger *zap.Logger) *FullboardPriceRepository {
	return &FullboardPriceRepository{db: db, logger: logger}
}

// GetByID returns the price row, or nil
func (r *FullboardPriceRepository) GetByID(ctx context.Context, id int64) (*entity.FullboardPrice, error) {
	var p entity.FullboardPrice
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, province, price, created_at, updated_at FROM fullboard_prices WHERE id = ?`, id,
	).Scan(&p.ID, &p.Province, &p.Price, sqlite.ScanTime(&p.CreatedAt), sqlite.ScanTime(&p.UpdatedAt))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get fullboard price", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get fullboard price: %w", err)
	}
	return &p, nil
}

// List returns all prices ordered by province
func (r *FullboardPriceRepository) List(ctx context.Context) ([]*entity.FullboardPrice, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, province, price, created_at, updated_at FROM fullboard_prices ORDER BY province`)
	if err != nil {
		r.logger.Error("Failed to list fullboard prices", zap.Error(err))
		return nil, fmt.Errorf("failed to list fullboard prices: %w", err)
	}
	defer rows.Close()

	var prices []*entity.FullboardPrice
	for rows.Next() {
		var p entity.FullboardPrice
		if err := rows.Scan(&p.ID, &p.Province, &p.Price, sqlite.ScanTime(&p.CreatedAt), sqlite.ScanTime(&p.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("failed to scan fullboard price: %w", err)
		}
		prices = append(prices, &p)
	}
	return prices, rows.Err()
}

// Verify interface compliance
var _ port.FullboardPriceRepository = (*FullboardPriceRepository)(nil)
