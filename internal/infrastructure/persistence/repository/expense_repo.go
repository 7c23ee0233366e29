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

// ExpenseRepository implements port.ExpenseRepository over the three
// per-type detail tables, the narrative table and the transportation join.
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

// SaveDetail inserts or replaces the detail row for its travel type
func (r *ExpenseRepository) SaveDetail(ctx context.Context, detail entity.ExpenseDetail) error {
	var err error
	switch d := detail.(type) {
	case *entity.InCityReport:
		err = r.saveInCity(ctx, d)
	case *entity.OutCityReport:
		err = r.saveOutCity(ctx, d)
	case *entity.OutCountryReport:
		err = r.saveOutCountry(ctx, d)
	default:
		return fmt.Errorf("unsupported expense detail %T", detail)
	}
	if err != nil {
		r.logger.Error("Failed to save expense detail",
			zap.String("travel_type", string(detail.TravelType())),
			zap.Error(err))
		return fmt.Errorf("failed to save expense detail: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) saveInCity(ctx context.Context, d *entity.InCityReport) error {
	query := `
		INSERT INTO in_city_reports (
			report_id, transport_cost, transport_receipt, daily_allowance,
			other_cost, other_receipt, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET
			transport_cost = excluded.transport_cost,
			transport_receipt = excluded.transport_receipt,
			daily_allowance = excluded.daily_allowance,
			other_cost = excluded.other_cost,
			other_receipt = excluded.other_receipt,
			updated_at = excluded.updated_at
		RETURNING id
	`
	return sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query,
		d.ReportID,
		d.TransportCost,
		sqlite.NullString(d.TransportReceipt),
		d.DailyAllowance,
		d.OtherCost,
		sqlite.NullString(d.OtherReceipt),
		sqlite.Timestamp(d.CreatedAt),
		sqlite.Timestamp(d.UpdatedAt),
	).Scan(&d.ID)
}

func (r *ExpenseRepository) saveOutCity(ctx context.Context, d *entity.OutCityReport) error {
	query := `
		INSERT INTO out_city_reports (
			report_id, transport_cost, transport_receipt, accommodation_cost, accommodation_receipt,
			fullboard_price_id, custom_daily_allowance, representation_cost, representation_receipt,
			other_cost, other_receipt, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET
			transport_cost = excluded.transport_cost,
			transport_receipt = excluded.transport_receipt,
			accommodation_cost = excluded.accommodation_cost,
			accommodation_receipt = excluded.accommodation_receipt,
			fullboard_price_id = excluded.fullboard_price_id,
			custom_daily_allowance = excluded.custom_daily_allowance,
			representation_cost = excluded.representation_cost,
			representation_receipt = excluded.representation_receipt,
			other_cost = excluded.other_cost,
			other_receipt = excluded.other_receipt,
			updated_at = excluded.updated_at
		RETURNING id
	`
	return sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query,
		d.ReportID,
		d.TransportCost,
		sqlite.NullString(d.TransportReceipt),
		d.AccommodationCost,
		sqlite.NullString(d.AccommodationReceipt),
		sqlite.NullInt64(d.FullboardPriceID),
		sqlite.NullInt64(d.CustomDailyAllowance),
		d.RepresentationCost,
		sqlite.NullString(d.RepresentationReceipt),
		d.OtherCost,
		sqlite.NullString(d.OtherReceipt),
		sqlite.Timestamp(d.CreatedAt),
		sqlite.Timestamp(d.UpdatedAt),
	).Scan(&d.ID)
}

func (r *ExpenseRepository) saveOutCountry(ctx context.Context, d *entity.OutCountryReport) error {
	query := `
		INSERT INTO out_country_reports (
			report_id, airfare_cost, airfare_receipt, accommodation_cost, accommodation_receipt,
			daily_allowance, visa_cost, visa_receipt, other_cost, other_receipt, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET
			airfare_cost = excluded.airfare_cost,
			airfare_receipt = excluded.airfare_receipt,
			accommodation_cost = excluded.accommodation_cost,
			accommodation_receipt = excluded.accommodation_receipt,
			daily_allowance = excluded.daily_allowance,
			visa_cost = excluded.visa_cost,
			visa_receipt = excluded.visa_receipt,
			other_cost = excluded.other_cost,
			other_receipt = excluded.other_receipt,
			updated_at = excluded.updated_at
		RETURNING id
	`
	return sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query,
		d.ReportID,
		d.AirfareCost,
		sqlite.NullString(d.AirfareReceipt),
		d.AccommodationCost,
		sqlite.NullString(d.AccommodationReceipt),
		d.DailyAllowance,
		d.VisaCost,
		sqlite.NullString(d.VisaReceipt),
		d.OtherCost,
		sqlite.NullString(d.OtherReceipt),
		sqlite.Timestamp(d.CreatedAt),
		sqlite.Timestamp(d.UpdatedAt),
	).Scan(&d.ID)
}

// GetDetail returns the detail of the given travel type, or nil when the
// report has none
func (r *ExpenseRepository) GetDetail(ctx context.Context, reportID int64, travelType entity.TravelType) (entity.ExpenseDetail, error) {
	var detail entity.ExpenseDetail
	var err error
	switch travelType {
	case entity.TravelTypeInCity:
		detail, err = r.getInCity(ctx, reportID)
	case entity.TravelTypeOutCity:
		detail, err = r.getOutCity(ctx, reportID)
	case entity.TravelTypeOutCountry:
		detail, err = r.getOutCountry(ctx, reportID)
	default:
		return nil, fmt.Errorf("unsupported travel type %q", travelType)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense detail",
			zap.Int64("report_id", reportID),
			zap.String("travel_type", string(travelType)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expense detail: %w", err)
	}
	return detail, nil
}

func (r *ExpenseRepository) getInCity(ctx context.Context, reportID int64) (entity.ExpenseDetail, error) {
	var d entity.InCityReport
	var transportReceipt, otherReceipt sql.NullString
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, report_id, transport_cost, transport_receipt, daily_allowance,
			other_cost, other_receipt, created_at, updated_at
		FROM in_city_reports WHERE report_id = ?
	`, reportID).Scan(
		&d.ID, &d.ReportID, &d.TransportCost, &transportReceipt, &d.DailyAllowance,
		&d.OtherCost, &otherReceipt, sqlite.ScanTime(&d.CreatedAt), sqlite.ScanTime(&d.UpdatedAt),
	)
	if err != nil {
		return nil, err
	}
	d.TransportReceipt = transportReceipt.String
	d.OtherReceipt = otherReceipt.String
	return &d, nil
}

func (r *ExpenseRepository) getOutCity(ctx context.Context, reportID int64) (entity.ExpenseDetail, error) {
	var d entity.OutCityReport
	var transportReceipt, accommodationReceipt, representationReceipt, otherReceipt sql.NullString
	var fullboardID, customAllowance, fullboardAmount sql.NullInt64
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT d.id, d.report_id, d.transport_cost, d.transport_receipt,
			d.accommodation_cost, d.accommodation_receipt,
			d.fullboard_price_id, d.custom_daily_allowance,
			d.representation_cost, d.representation_receipt,
			d.other_cost, d.other_receipt, d.created_at, d.updated_at,
			fp.price
		FROM out_city_reports d
		LEFT JOIN fullboard_prices fp ON fp.id = d.fullboard_price_id
		WHERE d.report_id = ?
	`, reportID).Scan(
		&d.ID, &d.ReportID, &d.TransportCost, &transportReceipt,
		&d.AccommodationCost, &accommodationReceipt,
		&fullboardID, &customAllowance,
		&d.RepresentationCost, &representationReceipt,
		&d.OtherCost, &otherReceipt, sqlite.ScanTime(&d.CreatedAt), sqlite.ScanTime(&d.UpdatedAt),
		&fullboardAmount,
	)
	if err != nil {
		return nil, err
	}
	d.TransportReceipt = transportReceipt.String
	d.AccommodationReceipt = accommodationReceipt.String
	d.RepresentationReceipt = representationReceipt.String
	d.OtherReceipt = otherReceipt.String
	d.FullboardPriceID = sqlite.Int64Ptr(fullboardID)
	d.CustomDailyAllowance = sqlite.Int64Ptr(customAllowance)
	d.FullboardAmount = fullboardAmount.Int64
	return &d, nil
}

func (r *ExpenseRepository) getOutCountry(ctx context.Context, reportID int64) (entity.ExpenseDetail, error) {
	var d entity.OutCountryReport
	var airfareReceipt, accommodationReceipt, visaReceipt, otherReceipt sql.NullString
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, report_id, airfare_cost, airfare_receipt, accommodation_cost, accommodation_receipt,
			daily_allowance, visa_cost, visa_receipt, other_cost, other_receipt, created_at, updated_at
		FROM out_country_reports WHERE report_id = ?
	`, reportID).Scan(
		&d.ID, &d.ReportID, &d.AirfareCost, &airfareReceipt, &d.AccommodationCost, &accommodationReceipt,
		&d.DailyAllowance, &d.VisaCost, &visaReceipt, &d.OtherCost, &otherReceipt,
		sqlite.ScanTime(&d.CreatedAt), sqlite.ScanTime(&d.UpdatedAt),
	)
	if err != nil {
		return nil, err
	}
	d.AirfareReceipt = airfareReceipt.String
	d.AccommodationReceipt = accommodationReceipt.String
	d.VisaReceipt = visaReceipt.String
	d.OtherReceipt = otherReceipt.String
	return &d, nil
}

// SaveNarrative inserts or replaces the narrative of a report
func (r *ExpenseRepository) SaveNarrative(ctx context.Context, n *entity.TravelReport) error {
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO travel_reports (report_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
		RETURNING id
	`, n.ReportID, n.Content, sqlite.Timestamp(n.CreatedAt), sqlite.Timestamp(n.UpdatedAt)).Scan(&n.ID)
	if err != nil {
		r.logger.Error("Failed to save narrative", zap.Int64("report_id", n.ReportID), zap.Error(err))
		return fmt.Errorf("failed to save narrative: %w", err)
	}
	return nil
}

// GetNarrative returns the narrative of a report, or nil
func (r *ExpenseRepository) GetNarrative(ctx context.Context, reportID int64) (*entity.TravelReport, error) {
	var n entity.TravelReport
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, report_id, content, created_at, updated_at
		FROM travel_reports WHERE report_id = ?
	`, reportID).Scan(&n.ID, &n.ReportID, &n.Content, sqlite.ScanTime(&n.CreatedAt), sqlite.ScanTime(&n.UpdatedAt))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get narrative", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to get narrative: %w", err)
	}
	return &n, nil
}

// SetTransportationTypes replaces the transportation modes of a report
func (r *ExpenseRepository) SetTransportationTypes(ctx context.Context, reportID int64, typeIDs []int64) error {
	conn := sqlite.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `DELETE FROM report_transportation_types WHERE report_id = ?`, reportID); err != nil {
		return fmt.Errorf("failed to clear transportation types: %w", err)
	}
	for _, id := range entity.UniqueIDs(typeIDs) {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO report_transportation_types (report_id, transportation_type_id) VALUES (?, ?)`, reportID, id)
		if err != nil {
			r.logger.Error("Failed to add transportation type",
				zap.Int64("report_id", reportID),
				zap.Int64("type_id", id),
				zap.Error(err))
			return fmt.Errorf("failed to add transportation type: %w", err)
		}
	}
	return nil
}

// TransportationTypeIDs lists the transportation modes of a report
func (r *ExpenseRepository) TransportationTypeIDs(ctx context.Context, reportID int64) ([]int64, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT transportation_type_id FROM report_transportation_types WHERE report_id = ? ORDER BY transportation_type_id`,
		reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transportation types: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
