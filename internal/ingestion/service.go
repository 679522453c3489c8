// Package ingestion imports employees and vehicles from CSV or XLSX sheets.
package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/repository"
	"github.com/rpattn/esgdash/pkg/validator"
)

// PreviewLimit is the number of mapped rows returned by Preview.
const PreviewLimit = 5

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	importedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esgdash",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Spreadsheet rows processed by bulk import, by target and result.",
	}, []string{"target", "result"})
)

// Service imports tabular data into the employee and fleet tables.
type Service struct {
	employees repository.EmployeeRepository
	fleet     repository.FleetRepository
	logRepo   repository.ImportLogRepository
	validator *validator.RowValidator
	logger    logrus.FieldLogger
}

// NewService creates a new ingestion service.
func NewService(
	employees repository.EmployeeRepository,
	fleet repository.FleetRepository,
	logRepo repository.ImportLogRepository,
) *Service {
	return &Service{
		employees: employees,
		fleet:     fleet,
		logRepo:   logRepo,
		validator: validator.NewRowValidator(),
		logger:    logrus.StandardLogger(),
	}
}

// Request describes an uploaded sheet. Mapping maps target field names to
// sanitized sheet headers; when empty, headers equal to a field name are
// mapped automatically.
type Request struct {
	Company        string
	Target         Target
	FileName       string
	HeaderRowIndex *int
	Mapping        map[string]string
	Data           io.Reader
}

// PreviewHeader summarizes one sheet column.
type PreviewHeader struct {
	Name          string `json:"name"`
	OriginalLabel string `json:"originalLabel"`
	MappedTo      string `json:"mappedTo,omitempty"`
}

// PreviewRow captures mapped sample data and validation feedback.
type PreviewRow struct {
	RowNumber int               `json:"rowNumber"`
	Values    map[string]string `json:"values"`
	Errors    []string          `json:"errors,omitempty"`
}

// HeaderCandidate represents a potential header row option.
type HeaderCandidate struct {
	Index   int      `json:"index"`
	Values  []string `json:"values"`
	Current bool     `json:"current"`
}

// PreviewResult returns preview metadata back to clients.
type PreviewResult struct {
	Target           Target                      `json:"target"`
	TotalRows        int                         `json:"totalRows"`
	InvalidRows      int                         `json:"invalidRows"`
	Headers          []PreviewHeader             `json:"headers"`
	Fields           []validator.FieldDefinition `json:"fields"`
	Mapping          map[string]string           `json:"mapping"`
	UnmappedRequired []string                    `json:"unmappedRequired"`
	Rows             []PreviewRow                `json:"rows"`
	HeaderCandidates []HeaderCandidate           `json:"headerCandidates"`
}

// Summary reports a completed import.
type Summary struct {
	Target    Target `json:"target"`
	TotalRows int    `json:"totalRows"`
	Inserted  int    `json:"inserted"`
}

type tableData struct {
	headers        []string
	rawHeaders     []string
	rows           [][]string
	headerRowIndex int
}

type mappedRow struct {
	number int
	raw    map[string]string
	result validator.ValidationResult
}

func (r mappedRow) problems() []string {
	out := make([]string, 0, len(r.result.Errors))
	if len(r.result.Missing) > 0 {
		out = append(out, "missing required fields: "+strings.Join(r.result.Missing, ", "))
	}
	for _, e := range r.result.Errors {
		if containsString(r.result.Missing, e.Field) {
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

func (s *Service) load(req Request) (tableData, [][]string, map[string]string, error) {
	var missing []string
	if strings.TrimSpace(req.Company) == "" {
		missing = append(missing, "company")
	}
	if req.Data == nil {
		missing = append(missing, "file")
	}
	if len(missing) > 0 {
		return tableData{}, nil, nil, domain.NewMissingFieldsError(missing...)
	}
	if _, err := ParseTarget(string(req.Target)); err != nil {
		return tableData{}, nil, nil, err
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return tableData{}, nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return tableData{}, nil, nil, &domain.ValidationError{Fields: []string{"file"}, Message: "file is empty"}
	}

	table, records, err := parseTable(req.FileName, payload, req.HeaderRowIndex)
	if err != nil {
		return tableData{}, nil, nil, &domain.ValidationError{Fields: []string{"file"}, Message: err.Error()}
	}

	mapping, err := effectiveMapping(req.Target, table.headers, req.Mapping)
	if err != nil {
		return tableData{}, nil, nil, err
	}
	return table, records, mapping, nil
}

func (s *Service) mapRows(target Target, table tableData, mapping map[string]string) []mappedRow {
	columns := make(map[string]int, len(table.headers))
	for idx, header := range table.headers {
		columns[header] = idx
	}

	fields := target.Fields()
	rows := make([]mappedRow, 0, len(table.rows))
	for rowIdx, row := range table.rows {
		raw := make(map[string]string, len(mapping))
		for field, header := range mapping {
			if col, ok := columns[header]; ok && col < len(row) {
				raw[field] = strings.TrimSpace(row[col])
			}
		}
		rows = append(rows, mappedRow{
			number: table.headerRowIndex + rowIdx + 2,
			raw:    raw,
			result: s.validator.ValidateRow(raw, fields),
		})
	}
	return rows
}

// Preview parses the sheet, resolves the column mapping and validates every
// row, returning the first PreviewLimit mapped rows.
func (s *Service) Preview(ctx context.Context, req Request) (PreviewResult, error) {
	result := PreviewResult{
		Target:           req.Target,
		Headers:          []PreviewHeader{},
		Fields:           req.Target.Fields(),
		Mapping:          map[string]string{},
		UnmappedRequired: []string{},
		Rows:             []PreviewRow{},
		HeaderCandidates: []HeaderCandidate{},
	}

	table, records, mapping, err := s.load(req)
	if err != nil {
		return result, err
	}

	result.Mapping = mapping
	result.UnmappedRequired = unmappedRequired(req.Target, mapping)
	result.HeaderCandidates = buildHeaderCandidates(records, 10, table.headerRowIndex)

	mappedBy := make(map[string]string, len(mapping))
	for field, header := range mapping {
		mappedBy[header] = field
	}
	for idx, header := range table.headers {
		result.Headers = append(result.Headers, PreviewHeader{
			Name:          header,
			OriginalLabel: table.rawHeaders[idx],
			MappedTo:      mappedBy[header],
		})
	}

	rows := s.mapRows(req.Target, table, mapping)
	result.TotalRows = len(rows)
	for i, row := range rows {
		problems := row.problems()
		if len(problems) > 0 {
			result.InvalidRows++
		}
		if i < PreviewLimit {
			result.Rows = append(result.Rows, PreviewRow{
				RowNumber: row.number,
				Values:    row.raw,
				Errors:    problems,
			})
		}
	}

	s.logger.WithFields(logrus.Fields{
		"company": req.Company,
		"target":  req.Target,
		"rows":    result.TotalRows,
		"invalid": result.InvalidRows,
	}).Debug("import preview")

	return result, nil
}

// Import validates every row and, only if all rows are valid, inserts them
// in a single transaction. Any invalid row rejects the whole file.
func (s *Service) Import(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{Target: req.Target}

	table, _, mapping, err := s.load(req)
	if err != nil {
		s.logImportError(ctx, req, nil, err)
		return summary, err
	}

	if unmapped := unmappedRequired(req.Target, mapping); len(unmapped) > 0 {
		err := &domain.ValidationError{
			Fields:  unmapped,
			Message: "required fields are not mapped: " + strings.Join(unmapped, ", "),
		}
		s.logImportError(ctx, req, nil, err)
		return summary, err
	}

	rows := s.mapRows(req.Target, table, mapping)
	summary.TotalRows = len(rows)
	if len(rows) == 0 {
		return summary, &domain.ValidationError{Fields: []string{"file"}, Message: "file has no data rows"}
	}

	var (
		badFields []string
		messages  []string
	)
	for _, row := range rows {
		problems := row.problems()
		if len(problems) == 0 {
			continue
		}
		for _, e := range row.result.Errors {
			if !containsString(badFields, e.Field) {
				badFields = append(badFields, e.Field)
			}
		}
		message := fmt.Sprintf("row %d: %s", row.number, strings.Join(problems, "; "))
		messages = append(messages, message)
		number := row.number
		s.logImportError(ctx, req, &number, errors.New(message))
	}
	if len(messages) > 0 {
		importedRows.WithLabelValues(string(req.Target), "rejected").Add(float64(len(rows)))
		sort.Strings(badFields)
		return summary, &domain.ValidationError{
			Fields:  badFields,
			Message: "import rejected, nothing was inserted: " + strings.Join(messages, "; "),
		}
	}

	switch req.Target {
	case TargetEmployees:
		employees := make([]domain.Employee, len(rows))
		for i, row := range rows {
			employees[i] = employeeFromValues(req.Company, row.result.Values)
		}
		summary.Inserted, err = s.employees.CreateBatch(ctx, employees)
	case TargetFleet:
		vehicles := make([]domain.Vehicle, len(rows))
		for i, row := range rows {
			vehicles[i] = vehicleFromValues(req.Company, row.result.Values)
		}
		summary.Inserted, err = s.fleet.CreateBatch(ctx, vehicles)
	}
	if err != nil {
		importedRows.WithLabelValues(string(req.Target), "rejected").Add(float64(len(rows)))
		s.logImportError(ctx, req, nil, err)
		return Summary{Target: req.Target, TotalRows: len(rows)}, err
	}

	importedRows.WithLabelValues(string(req.Target), "inserted").Add(float64(summary.Inserted))
	s.logger.WithFields(logrus.Fields{
		"company":  req.Company,
		"target":   req.Target,
		"inserted": summary.Inserted,
	}).Info("import completed")

	return summary, nil
}

// effectiveMapping validates an explicit mapping or derives one from headers.
func effectiveMapping(target Target, headers []string, requested map[string]string) (map[string]string, error) {
	known := make(map[string]bool, len(headers))
	for _, header := range headers {
		known[header] = true
	}

	mapping := make(map[string]string)
	if len(requested) == 0 {
		for _, field := range target.Fields() {
			for _, header := range headers {
				if strings.EqualFold(header, field.Name) {
					mapping[field.Name] = header
					break
				}
			}
		}
		return mapping, nil
	}

	fieldNames := make(map[string]bool)
	for _, field := range target.Fields() {
		fieldNames[field.Name] = true
	}

	var unknown []string
	for field, header := range requested {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		if !fieldNames[field] || !known[header] {
			unknown = append(unknown, field)
			continue
		}
		mapping[field] = header
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &domain.ValidationError{
			Fields:  unknown,
			Message: "mapping refers to unknown fields or columns: " + strings.Join(unknown, ", "),
		}
	}
	return mapping, nil
}

func unmappedRequired(target Target, mapping map[string]string) []string {
	unmapped := []string{}
	for _, field := range target.Fields() {
		if _, ok := mapping[field.Name]; field.Required && !ok {
			unmapped = append(unmapped, field.Name)
		}
	}
	return unmapped
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func parseTable(fileName string, payload []byte, headerRowIndex *int) (tableData, [][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload, headerRowIndex)
	case ".xlsx":
		return parseExcel(payload, headerRowIndex)
	default:
		return tableData{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte, headerRowIndex *int) (tableData, [][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, nil, fmt.Errorf("failed to read csv: %w", err)
	}

	table, err := normalizeTable(records, headerRowIndex)
	if err != nil {
		return tableData{}, nil, err
	}
	return table, records, nil
}

func parseExcel(payload []byte, headerRowIndex *int) (tableData, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	table, err := normalizeTable(rows, headerRowIndex)
	if err != nil {
		return tableData{}, nil, err
	}
	return table, rows, nil
}

func normalizeTable(records [][]string, headerRowIndex *int) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	var headerRow []string
	var dataRows [][]string
	headerIndex := -1

	if headerRowIndex != nil {
		if *headerRowIndex < 0 || *headerRowIndex >= len(records) {
			return tableData{}, fmt.Errorf("header row index %d out of range", *headerRowIndex)
		}
		if len(cleanRow(records[*headerRowIndex])) == 0 {
			return tableData{}, fmt.Errorf("selected header row %d is empty", *headerRowIndex+1)
		}
		headerRow = records[*headerRowIndex]
		headerIndex = *headerRowIndex
		dataRows = append(dataRows, records[*headerRowIndex+1:]...)
	} else {
		for idx, row := range records {
			if len(cleanRow(row)) == 0 {
				continue
			}
			headerRow = row
			headerIndex = idx
			dataRows = append(dataRows, records[idx+1:]...)
			break
		}
	}

	if headerRow == nil {
		return tableData{}, errors.New("header row could not be detected")
	}

	headers := sanitizeHeaders(headerRow)
	rawHeaders := make([]string, len(headerRow))
	for i, value := range headerRow {
		rawHeaders[i] = strings.TrimSpace(value)
	}

	rows := make([][]string, 0, len(dataRows))
	for _, row := range dataRows {
		if len(cleanRow(row)) == 0 {
			continue
		}
		rows = append(rows, padRow(row, len(headers)))
	}

	return tableData{
		headers:        headers,
		rawHeaders:     rawHeaders,
		rows:           rows,
		headerRowIndex: headerIndex,
	}, nil
}

func buildHeaderCandidates(records [][]string, limit int, currentIndex int) []HeaderCandidate {
	if limit <= 0 {
		limit = 10
	}

	candidates := make([]HeaderCandidate, 0, limit)
	for idx, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}

		values := make([]string, len(row))
		for i, cell := range row {
			values[i] = strings.TrimSpace(cell)
		}

		candidates = append(candidates, HeaderCandidate{
			Index:   idx,
			Values:  values,
			Current: idx == currentIndex,
		})

		if len(candidates) >= limit {
			break
		}
	}

	return candidates
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

// sanitizeHeaders lower-cases labels and turns separators into underscores,
// so "Full Name" and "full-name" both become full_name.
func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	replacer := strings.NewReplacer(" ", "_", ".", "_", "-", "_", "/", "_")
	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		name = replacer.Replace(name)
		for strings.Contains(name, "__") {
			name = strings.ReplaceAll(name, "__", "_")
		}
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

func (s *Service) logImportError(ctx context.Context, req Request, rowNumber *int, err error) {
	if s.logRepo == nil || err == nil || strings.TrimSpace(req.Company) == "" {
		return
	}
	entry := domain.ImportLogEntry{
		Company:      req.Company,
		Target:       string(req.Target),
		FileName:     req.FileName,
		RowNumber:    rowNumber,
		ErrorMessage: err.Error(),
	}
	if logErr := s.logRepo.Record(ctx, entry); logErr != nil {
		s.logger.WithError(logErr).Warn("failed to record import log")
	}
}
