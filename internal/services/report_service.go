package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/money"
	"profit-sync-service/internal/repository"
)

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

// DefaultReportStatuses are the order statuses counted when none are given
var DefaultReportStatuses = []string{"completed", "processing", "on-hold"}

// ExportHeader is the column header of CSV and XLSX exports
var ExportHeader = []string{
	"Order Number", "Date", "Website", "Product", "SKU", "Country",
	"Quantity", "Revenue", "Cost", "Profit", "Margin %", "Currency",
}

// ReportSummary is the dashboard summary of a filter
type ReportSummary struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	TotalProfit   decimal.Decimal `json:"totalProfit"`
	TotalOrders   int64           `json:"totalOrders"`
	TotalItems    int64           `json:"totalItems"`
	AverageMargin decimal.Decimal `json:"averageMargin"`
}

// ReportService exposes read-only aggregates and exports over order items
type ReportService struct {
	repo   *repository.ReportRepository
	audit  *AuditService
	logger *logrus.Entry
}

// NewReportService creates a new report service
func NewReportService(repo *repository.ReportRepository, audit *AuditService, logger *logrus.Entry) *ReportService {
	return &ReportService{
		repo:   repo,
		audit:  audit,
		logger: componentLogger(logger, "report_service"),
	}
}

func withDefaultStatuses(filter repository.ReportFilter) repository.ReportFilter {
	if len(filter.Statuses) == 0 {
		filter.Statuses = DefaultReportStatuses
	}
	return filter
}

// Summary returns rounded totals and the overall margin of the filter
func (s *ReportService) Summary(ctx context.Context, filter repository.ReportFilter) (*ReportSummary, error) {
	totals, err := s.repo.Summary(ctx, withDefaultStatuses(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to summarize order items: %w", err)
	}

	revenue := money.Round2(totals.TotalRevenue)
	profit := money.Round2(totals.TotalProfit)
	return &ReportSummary{
		TotalRevenue:  revenue,
		TotalCost:     money.Round2(totals.TotalCost),
		TotalProfit:   profit,
		TotalOrders:   totals.TotalOrders,
		TotalItems:    totals.TotalItems,
		AverageMargin: money.Margin(profit, revenue),
	}, nil
}

// ListItems returns one page of the flat order-item listing
func (s *ReportService) ListItems(ctx context.Context, filter repository.ReportFilter, limit, offset int) ([]repository.ItemRow, int64, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListItems(ctx, withDefaultStatuses(filter), limit, offset)
}

// Export writes every matching row to w in format and returns the row count
func (s *ReportService) Export(ctx context.Context, actorID, format string, filter repository.ReportFilter, w io.Writer) (int, error) {
	filter = withDefaultStatuses(filter)
	rows, _, err := s.repo.ListItems(ctx, filter, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load order items: %w", err)
	}

	switch format {
	case ExportCSV:
		err = WriteCSV(w, rows)
	case ExportXLSX:
		err = WriteXLSX(w, rows)
	default:
		return 0, fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return 0, err
	}

	if s.audit != nil {
		if aerr := s.audit.LogDataExport(ctx, actorID, format, len(rows), filterMetadata(filter)); aerr != nil {
			s.logger.WithError(aerr).Warn("Failed to audit data export")
		}
	}
	return len(rows), nil
}

// exportRecord projects one row onto ExportHeader
func exportRecord(row repository.ItemRow) []string {
	return []string{
		row.OrderNumber,
		row.OrderDate.UTC().Format("2006-01-02"),
		row.WebsiteName,
		row.ProductName,
		derefString(row.SKU),
		derefString(row.Country),
		strconv.Itoa(row.Quantity),
		row.NetRevenue.StringFixed(2),
		row.TotalCost.StringFixed(2),
		row.Profit.StringFixed(2),
		row.ProfitMargin.StringFixed(2),
		row.Currency,
	}
}

// WriteCSV writes rows as CSV with ExportHeader
func WriteCSV(w io.Writer, rows []repository.ItemRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(exportRecord(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes rows as a single-sheet workbook with ExportHeader
func WriteXLSX(w io.Writer, rows []repository.ItemRow) error {
	const sheetName = "Profit"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	for i, title := range ExportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, title)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 16)
	}

	for rowIdx, row := range rows {
		values := []interface{}{
			row.OrderNumber,
			row.OrderDate.UTC().Format("2006-01-02"),
			row.WebsiteName,
			row.ProductName,
			derefString(row.SKU),
			derefString(row.Country),
			row.Quantity,
			row.NetRevenue.InexactFloat64(),
			row.TotalCost.InexactFloat64(),
			row.Profit.InexactFloat64(),
			row.ProfitMargin.InexactFloat64(),
			row.Currency,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return f.Write(w)
}

func filterMetadata(filter repository.ReportFilter) models.JSONB {
	meta := models.JSONB{"statuses": filter.Statuses}
	if filter.WebsiteID != nil {
		meta["websiteId"] = filter.WebsiteID.String()
	}
	if filter.From != nil {
		meta["from"] = filter.From.UTC().Format(time.RFC3339)
	}
	if filter.To != nil {
		meta["to"] = filter.To.UTC().Format(time.RFC3339)
	}
	return meta
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
