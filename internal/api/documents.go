package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/storage"
)

func (s *Server) listLookups(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseLookupKind(mux.Vars(r)["kind"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.deps.Lookups.List(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.Lookup{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := s.deps.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, r, &domain.ValidationError{Fields: []string{"file"}, Message: fmt.Sprintf("invalid form data: %v", err)})
		return
	}

	tenant, err := payloadCompany(r, r.FormValue("company"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.NewMissingFieldsError("file"))
		return
	}
	defer file.Close()

	doc, err := s.deps.Documents.Upload(r.Context(), storage.UploadRequest{
		Section:  strings.TrimSpace(r.FormValue("section")),
		Company:  tenant,
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) documentURL(w http.ResponseWriter, r *http.Request) {
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.deps.Documents.URL(r.Context(), tenant, r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
