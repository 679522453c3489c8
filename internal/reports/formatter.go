package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one aggregated (year, category) pair.
type Row struct {
	Year       int              `json:"year"`
	Category   string           `json:"category"`
	Count      int              `json:"count"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	Percentage decimal.Decimal  `json:"percentage"`
}

// Cell is a single entry of the dense matrix.
type Cell struct {
	Count      int              `json:"count"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	Percentage decimal.Decimal  `json:"percentage"`
}

// Matrix is a year × category table where every pair is present.
type Matrix struct {
	Years      []int                   `json:"years"`
	Categories []string                `json:"categories"`
	Data       map[int]map[string]Cell `json:"data"`
}

// Densify shapes sparse rows into a Matrix over the declared years and
// categories. Missing pairs become zero cells; rows outside the declared
// axes are dropped.
func Densify(rows []Row, years []int, categories []string, withValues bool) Matrix {
	matrix := Matrix{
		Years:      append([]int(nil), years...),
		Categories: append([]string(nil), categories...),
		Data:       make(map[int]map[string]Cell, len(years)),
	}
	sort.Ints(matrix.Years)

	for _, year := range matrix.Years {
		cells := make(map[string]Cell, len(categories))
		for _, category := range categories {
			cell := Cell{Percentage: decimal.Zero}
			if withValues {
				zero := decimal.Zero
				cell.Value = &zero
			}
			cells[category] = cell
		}
		matrix.Data[year] = cells
	}

	for _, row := range rows {
		cells, ok := matrix.Data[row.Year]
		if !ok {
			continue
		}
		if _, ok := cells[row.Category]; !ok {
			continue
		}
		cell := Cell{Count: row.Count, Percentage: row.Percentage}
		if withValues {
			value := decimal.Zero
			if row.Value != nil {
				value = *row.Value
			}
			cell.Value = &value
		}
		cells[row.Category] = cell
	}

	return matrix
}

// Cell returns the entry for (year, category); the zero Cell when absent.
func (m Matrix) Cell(year int, category string) Cell {
	if cells, ok := m.Data[year]; ok {
		if cell, ok := cells[category]; ok {
			return cell
		}
	}
	return Cell{Percentage: decimal.Zero}
}

// Rows flattens the matrix back to rows ordered by year then category.
func (m Matrix) Rows() []Row {
	rows := make([]Row, 0, len(m.Years)*len(m.Categories))
	for _, year := range m.Years {
		for _, category := range m.Categories {
			cell := m.Cell(year, category)
			rows = append(rows, Row{
				Year:       year,
				Category:   category,
				Count:      cell.Count,
				Value:      cell.Value,
				Percentage: cell.Percentage,
			})
		}
	}
	return rows
}

// HasValues reports whether the cells carry a summed quantity.
func (m Matrix) HasValues() bool {
	for _, cells := range m.Data {
		for _, cell := range cells {
			return cell.Value != nil
		}
	}
	return false
}

// filterCategories keeps the categories matching filter case-insensitively.
// An empty filter keeps everything.
func filterCategories(categories []string, filter string) ([]string, bool) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return categories, true
	}
	for _, category := range categories {
		if strings.EqualFold(category, filter) {
			return []string{category}, true
		}
	}
	return nil, false
}
