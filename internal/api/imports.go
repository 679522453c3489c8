package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/ingestion"
	"github.com/rpattn/esgdash/pkg/validator"
)

const defaultLogLimit = 50

func (s *Server) importRequest(r *http.Request) (ingestion.Request, error) {
	target, err := ingestion.ParseTarget(mux.Vars(r)["target"])
	if err != nil {
		return ingestion.Request{}, err
	}
	req, err := ingestion.RequestFromMultipart(r, target, s.deps.MaxUploadBytes)
	if err != nil {
		return ingestion.Request{}, err
	}
	if req.Company, err = payloadCompany(r, req.Company); err != nil {
		return ingestion.Request{}, err
	}
	return req, nil
}

func (s *Server) previewImport(w http.ResponseWriter, r *http.Request) {
	req, err := s.importRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	preview, err := s.deps.Ingestion.Preview(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request) {
	req, err := s.importRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.deps.Ingestion.Import(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

type logsQuery struct {
	Target string `json:"target" validate:"omitempty,oneof=employees fleet"`
	Limit  int    `json:"limit" validate:"gte=1,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}

func parseLogsQuery(r *http.Request) (logsQuery, error) {
	query := logsQuery{
		Target: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("target"))),
		Limit:  defaultLogLimit,
	}
	for name, dest := range map[string]*int{"limit": &query.Limit, "offset": &query.Offset} {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return logsQuery{}, &domain.ValidationError{Fields: []string{name}, Message: name + " must be an integer"}
		}
		*dest = value
	}
	if err := validator.Struct(query); err != nil {
		return logsQuery{}, err
	}
	return query, nil
}

func (s *Server) importLogs(w http.ResponseWriter, r *http.Request) {
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	query, err := parseLogsQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.deps.ImportLogs.List(r.Context(), tenant, query.Target, query.Limit, query.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ImportLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
