package domain

import (
	"strconv"
	"time"
)

// TrackedField names an entity column whose edits are written to the change log.
type TrackedField string

const (
	FieldEducationID          TrackedField = "education_id"
	FieldGenderID             TrackedField = "gender_id"
	FieldManagerialPositionID TrackedField = "managerial_position_id"
	FieldPositionID           TrackedField = "position_id"
	FieldMaritalStatusID      TrackedField = "marital_status_id"
	FieldVehicleTypeID        TrackedField = "vehicle_type_id"
	FieldRegistrationNumber   TrackedField = "registration_number"
)

// EmployeeTrackedFields are diffed on every employee update.
var EmployeeTrackedFields = []TrackedField{
	FieldEducationID,
	FieldGenderID,
	FieldManagerialPositionID,
	FieldPositionID,
	FieldMaritalStatusID,
}

// FleetTrackedFields are diffed on every vehicle update.
var FleetTrackedFields = []TrackedField{
	FieldVehicleTypeID,
	FieldRegistrationNumber,
}

// ReportFields can be reconstructed for a past year by the reports.
var ReportFields = []TrackedField{
	FieldEducationID,
	FieldGenderID,
	FieldManagerialPositionID,
	FieldVehicleTypeID,
}

// IsReportField reports whether f may be passed to the point-in-time resolver.
func IsReportField(f TrackedField) bool {
	for _, candidate := range ReportFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// ChangeLogEntry is an immutable record of one field mutation.
type ChangeLogEntry struct {
	ID        int64        `json:"id"`
	EntityID  int64        `json:"entity_id"`
	Field     TrackedField `json:"changed_field"`
	OldValue  *string      `json:"old_value"`
	NewValue  *string      `json:"new_value"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Snapshot holds the text form of an entity's tracked fields.
type Snapshot map[TrackedField]*string

// IDText renders a lookup id the way the change log stores it.
func IDText(id *int64) *string {
	if id == nil {
		return nil
	}
	value := strconv.FormatInt(*id, 10)
	return &value
}

func stringText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// ParseIDText converts a logged value back to a lookup id.
func ParseIDText(value *string) (int64, bool) {
	if value == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(*value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
