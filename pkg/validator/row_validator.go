package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rpattn/esgdash/internal/domain"
)

// FieldType is the value type of an import column.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeFloat   FieldType = "float"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
)

// FieldDefinition describes one target column of an import.
type FieldDefinition struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult holds the coerced values of a row and its problems.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Values  map[string]any    `json:"values"`
	Errors  []ValidationError `json:"errors"`
	Missing []string          `json:"missing,omitempty"`
}

// RowValidator coerces raw spreadsheet cells into typed values.
type RowValidator struct{}

// NewRowValidator creates a new row validator
func NewRowValidator() *RowValidator {
	return &RowValidator{}
}

// ValidateRow checks raw against definitions in definition order. Values
// holds int64, decimal.Decimal, domain.Date, bool or string per field type;
// blank optional cells are left out.
func (rv *RowValidator) ValidateRow(raw map[string]string, definitions []FieldDefinition) ValidationResult {
	result := ValidationResult{
		IsValid: true,
		Values:  make(map[string]any, len(definitions)),
		Errors:  []ValidationError{},
	}

	known := make(map[string]struct{}, len(definitions))
	for _, def := range definitions {
		known[def.Name] = struct{}{}
		value := strings.TrimSpace(raw[def.Name])

		if value == "" {
			if def.Required {
				result.IsValid = false
				result.Missing = append(result.Missing, def.Name)
				result.Errors = append(result.Errors, ValidationError{
					Field:   def.Name,
					Message: fmt.Sprintf("required field '%s' is missing", def.Name),
				})
			}
			continue
		}

		coerced, err := rv.coerce(def, value)
		if err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   def.Name,
				Message: err.Error(),
				Value:   value,
			})
			continue
		}
		result.Values[def.Name] = coerced
	}

	for name, value := range raw {
		if _, ok := known[name]; ok {
			continue
		}
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("field '%s' is not defined for this import", name),
			Value:   value,
		})
	}

	return result
}

func (rv *RowValidator) coerce(def FieldDefinition, value string) (any, error) {
	switch def.Type {
	case FieldTypeString:
		return value, nil
	case FieldTypeInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n, nil
		}
		// spreadsheets often render whole numbers as 3.0
		d, err := decimal.NewFromString(value)
		if err != nil || !d.Equal(d.Truncate(0)) {
			return nil, fmt.Errorf("field '%s' must be an integer, got %q", def.Name, value)
		}
		return d.IntPart(), nil
	case FieldTypeFloat:
		d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
		if err != nil {
			return nil, fmt.Errorf("field '%s' must be a number, got %q", def.Name, value)
		}
		return d, nil
	case FieldTypeDate:
		d, err := domain.ParseDate(value)
		if err != nil {
			return nil, fmt.Errorf("field '%s' must be a date: %v", def.Name, err)
		}
		return d, nil
	case FieldTypeBoolean:
		switch strings.ToLower(value) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("field '%s' must be a boolean, got %q", def.Name, value)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown field type: %s", def.Type)
	}
}
