package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rpattn/esgdash/internal/export"
	"github.com/rpattn/esgdash/internal/reports"
	"github.com/rpattn/esgdash/pkg/validator"
)

type yearQuery struct {
	Year *int `json:"year" validate:"omitempty,gte=1900,lte=2100"`
}

func yearParam(r *http.Request) (*int, error) {
	year, err := optionalInt(r, "year")
	if err != nil {
		return nil, err
	}
	if err := validator.Struct(yearQuery{Year: year}); err != nil {
		return nil, err
	}
	return year, nil
}

func reportRequest(r *http.Request) (reports.Kind, reports.Request, error) {
	kind, err := reports.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		return "", reports.Request{}, err
	}
	tenant, err := company(r)
	if err != nil {
		return "", reports.Request{}, err
	}
	year, err := yearParam(r)
	if err != nil {
		return "", reports.Request{}, err
	}
	return kind, reports.Request{
		Company:  tenant,
		Year:     year,
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}, nil
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	kind, req, err := reportRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Reports.Generate(r.Context(), kind, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	kind, req, err := reportRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workbook, err := s.deps.Export.Export(r.Context(), kind, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	export.ServeWorkbook(w, workbook)
}
