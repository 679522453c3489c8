package api

import (
	"net/http"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/storage"
)

func checkDocumentKey(bill domain.Bill) error {
	if bill.DocumentKey == nil || *bill.DocumentKey == "" {
		return nil
	}
	if !storage.KeyBelongsTo(*bill.DocumentKey, bill.Company) {
		return &domain.ValidationError{Fields: []string{"document_key"}, Message: "document_key does not belong to company"}
	}
	return nil
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := s.deps.Bills.List(r.Context(), tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) getBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := s.deps.Bills.GetByID(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) createBill(w http.ResponseWriter, r *http.Request) {
	var bill domain.Bill
	if err := decodeJSON(r, &bill); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, bill.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill.ID = 0
	bill.Company = tenant
	if err := checkDocumentKey(bill); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.deps.Bills.Create(r.Context(), bill)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var bill domain.Bill
	if err := decodeJSON(r, &bill); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, bill.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill.ID = id
	bill.Company = tenant
	if err := checkDocumentKey(bill); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.deps.Bills.Update(r.Context(), bill)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Bills.Delete(r.Context(), tenant, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
