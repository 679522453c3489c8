package api

import (
	"net/http"
	"strings"

	"github.com/rpattn/esgdash/internal/auth"
	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/lookuploader"
	"github.com/rpattn/esgdash/internal/middleware"
)

// payloadCompany settles the tenant of a write. The body wins over the query
// string and both must agree with the session scope.
func payloadCompany(r *http.Request, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return company(r)
	}
	if err := auth.EnforceCompanyScope(r.Context(), body); err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

func loader(r *http.Request) *lookuploader.LookupLoader {
	return middleware.LookupLoaderFromContext(r.Context())
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	employees, err := s.deps.Employees.List(r.Context(), tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if l := loader(r); l != nil {
		views, err := l.Employees(r.Context(), employees)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
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
	employee, err := s.deps.Employees.GetByID(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if l := loader(r); l != nil {
		views, err := l.Employees(r.Context(), []domain.Employee{employee})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views[0])
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var employee domain.Employee
	if err := decodeJSON(r, &employee); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, employee.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	employee.ID = 0
	employee.Company = tenant

	created, err := s.deps.Employees.Create(r.Context(), employee)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type employeeUpdate struct {
	Employee domain.Employee         `json:"employee"`
	Changes  []domain.ChangeLogEntry `json:"changes"`
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var employee domain.Employee
	if err := decodeJSON(r, &employee); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, employee.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	employee.ID = id
	employee.Company = tenant

	updated, changes, err := s.deps.Employees.Update(r.Context(), employee)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if changes == nil {
		changes = []domain.ChangeLogEntry{}
	}
	writeJSON(w, http.StatusOK, employeeUpdate{Employee: updated, Changes: changes})
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
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
	if err := s.deps.Employees.Delete(r.Context(), tenant, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) employeeHistory(w http.ResponseWriter, r *http.Request) {
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
	entries, err := s.deps.Employees.History(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NewEntityHistory(id, entries))
}

func (s *Server) employeeAttributes(w http.ResponseWriter, r *http.Request) {
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
	year, err := yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attributes, err := s.deps.Reports.EmployeeAttributesAt(r.Context(), tenant, id, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attributes)
}
