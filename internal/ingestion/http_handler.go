package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/esgdash/internal/domain"
)

// RequestFromMultipart reads an import upload: the "file" part, "company",
// an optional JSON "mapping" object and an optional zero based
// "headerRowIndex".
func RequestFromMultipart(r *http.Request, target Target, maxBytes int64) (Request, error) {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return Request{}, &domain.ValidationError{Fields: []string{"file"}, Message: fmt.Sprintf("invalid form data: %v", err)}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return Request{}, domain.NewMissingFieldsError("file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return Request{}, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return Request{}, &domain.ValidationError{Fields: []string{"file"}, Message: fmt.Sprintf("file exceeds %d bytes", maxBytes)}
	}

	req := Request{
		Company:  strings.TrimSpace(r.FormValue("company")),
		Target:   target,
		FileName: header.Filename,
		Data:     bytes.NewReader(data),
	}

	if raw := strings.TrimSpace(r.FormValue("mapping")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Mapping); err != nil {
			return Request{}, &domain.ValidationError{Fields: []string{"mapping"}, Message: fmt.Sprintf("invalid mapping: %v", err)}
		}
	}

	if raw := strings.TrimSpace(r.FormValue("headerRowIndex")); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			return Request{}, &domain.ValidationError{Fields: []string{"headerRowIndex"}, Message: "headerRowIndex must be an integer"}
		}
		req.HeaderRowIndex = &index
	}

	return req, nil
}
