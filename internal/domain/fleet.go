package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is one entry of a company's fleet.
type Vehicle struct {
	ID                 int64     `json:"id"`
	Company            string    `json:"company"`
	RegistrationNumber string    `json:"registration_number"`
	VehicleTypeID      *int64    `json:"vehicle_type_id,omitempty"`
	Description        string    `json:"description,omitempty"`
	AcquisitionDate    *Date     `json:"acquisition_date,omitempty"`
	DisposalDate       *Date     `json:"disposal_date,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate lists the required fields that are empty.
func (v Vehicle) Validate() error {
	var missing []string
	if strings.TrimSpace(v.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(v.RegistrationNumber) == "" {
		missing = append(missing, "registration_number")
	}
	if v.VehicleTypeID == nil {
		missing = append(missing, "vehicle_type_id")
	}
	if len(missing) > 0 {
		return NewMissingFieldsError(missing...)
	}
	return nil
}

// Snapshot returns the current text value of every tracked field.
func (v Vehicle) Snapshot() Snapshot {
	return Snapshot{
		FieldVehicleTypeID:      IDText(v.VehicleTypeID),
		FieldRegistrationNumber: stringText(strings.TrimSpace(v.RegistrationNumber)),
	}
}

// BelongsTo matches the tenant tag case-insensitively.
func (v Vehicle) BelongsTo(company string) bool {
	return SameCompany(v.Company, company)
}

// InServiceIn reports whether the vehicle belonged to the fleet during year.
// Vehicles without an acquisition date count from the beginning of time.
func (v Vehicle) InServiceIn(year int) bool {
	if v.AcquisitionDate != nil && v.AcquisitionDate.Year() > year {
		return false
	}
	return v.DisposalDate == nil || v.DisposalDate.Year() >= year
}

// Route is a trip driven by a fleet vehicle.
type Route struct {
	ID          int64           `json:"id"`
	Company     string          `json:"company"`
	FleetID     int64           `json:"fleet_id"`
	RouteDate   Date            `json:"route_date"`
	DistanceKm  decimal.Decimal `json:"distance_km"`
	Description string          `json:"description,omitempty"`
}

// Validate lists the required fields that are empty.
func (r Route) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Company) == "" {
		missing = append(missing, "company")
	}
	if r.FleetID == 0 {
		missing = append(missing, "fleet_id")
	}
	if r.RouteDate.IsZero() {
		missing = append(missing, "route_date")
	}
	if len(missing) > 0 {
		return NewMissingFieldsError(missing...)
	}
	if r.DistanceKm.IsNegative() {
		return &ValidationError{Fields: []string{"distance_km"}, Message: "distance_km must not be negative"}
	}
	return nil
}
