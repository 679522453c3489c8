package ingestion

import (
	"fmt"
	"strings"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/pkg/validator"
)

// Target is a table rows can be imported into.
type Target string

const (
	TargetEmployees Target = "employees"
	TargetFleet     Target = "fleet"
)

// Targets lists the importable tables.
var Targets = []Target{TargetEmployees, TargetFleet}

var targetFields = map[Target][]validator.FieldDefinition{
	TargetEmployees: {
		{Name: "full_name", Type: validator.FieldTypeString, Required: true, Description: "Full name"},
		{Name: "birth_date", Type: validator.FieldTypeDate, Description: "Date of birth"},
		{Name: "gender_id", Type: validator.FieldTypeInteger, Description: "Gender lookup id"},
		{Name: "education_id", Type: validator.FieldTypeInteger, Description: "Education lookup id"},
		{Name: "managerial_position_id", Type: validator.FieldTypeInteger, Description: "Managerial position lookup id"},
		{Name: "position_id", Type: validator.FieldTypeInteger, Description: "Position lookup id"},
		{Name: "marital_status_id", Type: validator.FieldTypeInteger, Description: "Marital status lookup id"},
		{Name: "employment_date", Type: validator.FieldTypeDate, Required: true, Description: "First day of employment"},
		{Name: "termination_date", Type: validator.FieldTypeDate, Description: "Last day of employment"},
	},
	TargetFleet: {
		{Name: "registration_number", Type: validator.FieldTypeString, Required: true, Description: "Registration plate"},
		{Name: "vehicle_type_id", Type: validator.FieldTypeInteger, Required: true, Description: "Vehicle type lookup id"},
		{Name: "description", Type: validator.FieldTypeString, Description: "Free text description"},
		{Name: "acquisition_date", Type: validator.FieldTypeDate, Description: "Date the vehicle joined the fleet"},
		{Name: "disposal_date", Type: validator.FieldTypeDate, Description: "Date the vehicle left the fleet"},
	},
}

// ParseTarget validates a target taken from a URL.
func ParseTarget(raw string) (Target, error) {
	target := Target(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := targetFields[target]; !ok {
		return "", &domain.ValidationError{
			Fields:  []string{"target"},
			Message: fmt.Sprintf("unknown import target %q", raw),
		}
	}
	return target, nil
}

// Fields returns the target's column definitions.
func (t Target) Fields() []validator.FieldDefinition {
	return targetFields[t]
}

func int64Value(values map[string]any, name string) *int64 {
	if v, ok := values[name].(int64); ok {
		return &v
	}
	return nil
}

func dateValue(values map[string]any, name string) *domain.Date {
	if v, ok := values[name].(domain.Date); ok {
		return &v
	}
	return nil
}

func stringValue(values map[string]any, name string) string {
	v, _ := values[name].(string)
	return v
}

func employeeFromValues(company string, values map[string]any) domain.Employee {
	return domain.Employee{
		Company:              company,
		FullName:             stringValue(values, "full_name"),
		BirthDate:            dateValue(values, "birth_date"),
		GenderID:             int64Value(values, "gender_id"),
		EducationID:          int64Value(values, "education_id"),
		ManagerialPositionID: int64Value(values, "managerial_position_id"),
		PositionID:           int64Value(values, "position_id"),
		MaritalStatusID:      int64Value(values, "marital_status_id"),
		EmploymentDate:       dateValue(values, "employment_date"),
		TerminationDate:      dateValue(values, "termination_date"),
	}
}

func vehicleFromValues(company string, values map[string]any) domain.Vehicle {
	return domain.Vehicle{
		Company:            company,
		RegistrationNumber: stringValue(values, "registration_number"),
		VehicleTypeID:      int64Value(values, "vehicle_type_id"),
		Description:        stringValue(values, "description"),
		AcquisitionDate:    dateValue(values, "acquisition_date"),
		DisposalDate:       dateValue(values, "disposal_date"),
	}
}
