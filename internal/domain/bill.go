package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bill is a utility invoice covering one billing period.
type Bill struct {
	ID          int64           `json:"id"`
	Company     string          `json:"company"`
	UtilityID   int64           `json:"utility_id"`
	PeriodStart Date            `json:"period_start"`
	PeriodEnd   Date            `json:"period_end"`
	Consumption decimal.Decimal `json:"consumption"`
	Cost        decimal.Decimal `json:"cost"`
	DocumentKey *string         `json:"document_key,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate lists the required fields that are empty.
func (b Bill) Validate() error {
	var missing []string
	if strings.TrimSpace(b.Company) == "" {
		missing = append(missing, "company")
	}
	if b.UtilityID == 0 {
		missing = append(missing, "utility_id")
	}
	if b.PeriodStart.IsZero() {
		missing = append(missing, "period_start")
	}
	if b.PeriodEnd.IsZero() {
		missing = append(missing, "period_end")
	}
	if len(missing) > 0 {
		return NewMissingFieldsError(missing...)
	}
	if b.PeriodEnd.Before(b.PeriodStart.Time) {
		return &ValidationError{Fields: []string{"period_end"}, Message: "period_end must not be before period_start"}
	}
	return nil
}
