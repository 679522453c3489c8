package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LookupKind identifies one of the reference tables.
type LookupKind string

const (
	LookupEducation          LookupKind = "education"
	LookupGender             LookupKind = "gender"
	LookupManagerialPosition LookupKind = "managerial-positions"
	LookupPosition           LookupKind = "positions"
	LookupMaritalStatus      LookupKind = "marital-statuses"
	LookupVehicleType        LookupKind = "vehicle-types"
	LookupUtility            LookupKind = "utilities"
)

// LookupKinds lists every reference table in display order.
var LookupKinds = []LookupKind{
	LookupEducation,
	LookupGender,
	LookupManagerialPosition,
	LookupPosition,
	LookupMaritalStatus,
	LookupVehicleType,
	LookupUtility,
}

// ParseLookupKind validates a kind taken from a URL.
func ParseLookupKind(raw string) (LookupKind, error) {
	for _, kind := range LookupKinds {
		if string(kind) == raw {
			return kind, nil
		}
	}
	return "", &ValidationError{Fields: []string{"kind"}, Message: fmt.Sprintf("unknown lookup kind %q", raw)}
}

// LookupKindForField maps a tracked id column to the table that labels it.
func LookupKindForField(field TrackedField) (LookupKind, bool) {
	switch field {
	case FieldEducationID:
		return LookupEducation, true
	case FieldGenderID:
		return LookupGender, true
	case FieldManagerialPositionID:
		return LookupManagerialPosition, true
	case FieldPositionID:
		return LookupPosition, true
	case FieldMaritalStatusID:
		return LookupMaritalStatus, true
	case FieldVehicleTypeID:
		return LookupVehicleType, true
	default:
		return "", false
	}
}

// Lookup is a row of a reference table. Kind specific columns are only set
// for their own kind.
type Lookup struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	IsManager bool             `json:"is_manager,omitempty"`
	FuelType  string           `json:"fuel_type,omitempty"`
	CO2PerKm  *decimal.Decimal `json:"co2_g_per_km,omitempty"`
	Unit      string           `json:"unit,omitempty"`
}

// LookupTable indexes lookup rows by id while keeping table order.
type LookupTable struct {
	rows []Lookup
	byID map[int64]Lookup
}

// NewLookupTable indexes rows.
func NewLookupTable(rows []Lookup) LookupTable {
	byID := make(map[int64]Lookup, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return LookupTable{rows: rows, byID: byID}
}

// Get returns the row with id.
func (t LookupTable) Get(id int64) (Lookup, bool) {
	row, ok := t.byID[id]
	return row, ok
}

// Names returns labels in table order.
func (t LookupTable) Names() []string {
	names := make([]string, len(t.rows))
	for i, row := range t.rows {
		names[i] = row.Name
	}
	return names
}

// Rows returns the rows in table order.
func (t LookupTable) Rows() []Lookup {
	return t.rows
}
