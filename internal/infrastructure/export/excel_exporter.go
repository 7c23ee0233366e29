package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Reports"

var headers = []string{
	"No", "Report ID", "Employee", "Assignment", "Destination", "Travel Type",
	"Travel Order", "Departure", "Return", "Days", "Status", "Total (IDR)",
}

// ExcelExporter renders report rows into an xlsx workbook
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Export writes one header row and one row per report
func (e *ExcelExporter) Export(ctx context.Context, rows []port.ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, fmt.Errorf("failed to create number style: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := row.Report
		purpose, destination := "", r.DestinationCity
		if row.Assignment != nil {
			purpose = row.Assignment.Purpose
			destination = row.Assignment.Destination
		}
		values := []interface{}{
			i + 1,
			r.ID,
			row.OwnerName,
			purpose,
			destination,
			string(r.TravelType),
			r.TravelOrderNumber,
			r.DepartureDate.Format("2006-01-02"),
			r.ReturnDate.Format("2006-01-02"),
			r.ActualDuration,
			string(r.Status),
			row.Total,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		totalCell, _ := excelize.CoordinatesToCellName(len(headers), i+2)
		if err := f.SetCellStyle(sheetName, totalCell, totalCell, moneyStyle); err != nil {
			e.logger.Warn("Failed to style total cell", zap.String("cell", totalCell), zap.Error(err))
		}
	}

	if err := f.SetColWidth(sheetName, "C", "E", 24); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Report export generated", zap.Int("rows", len(rows)), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// Verify interface compliance
var _ port.ReportExporter = (*ExcelExporter)(nil)
