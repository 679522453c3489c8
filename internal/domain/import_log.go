package domain

import "time"

// ImportLogEntry captures a row level problem hit during a bulk import.
type ImportLogEntry struct {
	ID           int64     `json:"id"`
	Company      string    `json:"company"`
	Target       string    `json:"target"`
	FileName     string    `json:"file_name"`
	RowNumber    *int      `json:"row_number,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
