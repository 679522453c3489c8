package domain

import (
	"strings"
	"time"
)

// Employee is a tenant scoped staff record.
type Employee struct {
	ID                   int64     `json:"id"`
	Company              string    `json:"company"`
	FullName             string    `json:"full_name"`
	BirthDate            *Date     `json:"birth_date,omitempty"`
	GenderID             *int64    `json:"gender_id,omitempty"`
	EducationID          *int64    `json:"education_id,omitempty"`
	ManagerialPositionID *int64    `json:"managerial_position_id,omitempty"`
	PositionID           *int64    `json:"position_id,omitempty"`
	MaritalStatusID      *int64    `json:"marital_status_id,omitempty"`
	EmploymentDate       *Date     `json:"employment_date"`
	TerminationDate      *Date     `json:"termination_date,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Validate lists the required fields that are empty.
func (e Employee) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(e.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if e.EmploymentDate == nil {
		missing = append(missing, "employment_date")
	}
	if len(missing) > 0 {
		return NewMissingFieldsError(missing...)
	}
	if e.TerminationDate != nil && e.TerminationDate.Before(e.EmploymentDate.Time) {
		return &ValidationError{
			Fields:  []string{"termination_date"},
			Message: "termination_date must not be before employment_date",
		}
	}
	return nil
}

// Snapshot returns the current text value of every tracked field.
func (e Employee) Snapshot() Snapshot {
	return Snapshot{
		FieldEducationID:          IDText(e.EducationID),
		FieldGenderID:             IDText(e.GenderID),
		FieldManagerialPositionID: IDText(e.ManagerialPositionID),
		FieldPositionID:           IDText(e.PositionID),
		FieldMaritalStatusID:      IDText(e.MaritalStatusID),
	}
}

// EmployedIn reports whether the employee was on staff at some point of year.
func (e Employee) EmployedIn(year int) bool {
	if e.EmploymentDate == nil || e.EmploymentDate.Year() > year {
		return false
	}
	return e.TerminationDate == nil || e.TerminationDate.Year() >= year
}

// BelongsTo matches the tenant tag case-insensitively.
func (e Employee) BelongsTo(company string) bool {
	return SameCompany(e.Company, company)
}

// SameCompany compares tenant tags case-insensitively.
func SameCompany(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
