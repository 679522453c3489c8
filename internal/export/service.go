// Package export renders reports as XLSX workbooks.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/esgdash/internal/reports"
)

const (
	sheetName = "Report"

	// ContentType is the MIME type of exported workbooks.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportGenerator produces the reports to export.
type ReportGenerator interface {
	Generate(ctx context.Context, kind reports.Kind, req reports.Request) (reports.Report, error)
}

// Workbook is a rendered export.
type Workbook struct {
	FileName string
	Data     []byte
}

// Service renders reports to spreadsheets.
type Service struct {
	reports ReportGenerator
	now     func() time.Time
}

// NewService creates an export service.
func NewService(reports ReportGenerator) *Service {
	return &Service{reports: reports, now: time.Now}
}

// Export generates a report and renders it as an XLSX workbook.
func (s *Service) Export(ctx context.Context, kind reports.Kind, req reports.Request) (Workbook, error) {
	report, err := s.reports.Generate(ctx, kind, req)
	if err != nil {
		return Workbook{}, err
	}

	f, err := WriteMatrix(report)
	if err != nil {
		return Workbook{}, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Workbook{}, fmt.Errorf("failed to write workbook: %w", err)
	}

	name := FileName(report, s.now())
	logrus.WithFields(logrus.Fields{
		"kind":    kind,
		"company": report.Company,
		"bytes":   buf.Len(),
	}).Info("report exported")

	return Workbook{FileName: name, Data: bytes.Clone(buf.Bytes())}, nil
}

// Headers returns the column titles: year, then "category (count)" and
// "category (%)" per category, plus "category (value)" for value reports.
func Headers(report reports.Report) []string {
	headers := []string{"year"}
	for _, category := range report.Categories {
		headers = append(headers, category+" (count)", category+" (%)")
		if report.HasValues() {
			headers = append(headers, category+" (value)")
		}
	}
	return headers
}

// WriteMatrix lays the dense matrix out on one sheet, one row per year.
func WriteMatrix(report reports.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := Headers(report)
	headerRow := make([]any, len(headers))
	for i, header := range headers {
		headerRow[i] = header
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	withValues := report.HasValues()
	for i, year := range report.Years {
		row := []any{year}
		for _, category := range report.Categories {
			cell := report.Cell(year, category)
			row = append(row, cell.Count, cell.Percentage.InexactFloat64())
			if withValues {
				value := 0.0
				if cell.Value != nil {
					value = cell.Value.InexactFloat64()
				}
				row = append(row, value)
			}
		}

		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, start, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write row for %d: %w", year, err)
		}
	}

	return f, nil
}

// FileName builds "{kind}-{company}-{yyyymmdd}.xlsx".
func FileName(report reports.Report, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s.xlsx",
		sanitizeFileComponent(string(report.Kind)),
		sanitizeFileComponent(report.Company),
		now.UTC().Format("20060102"),
	)
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
