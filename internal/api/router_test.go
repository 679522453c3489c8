package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/esgdash/internal/auth"
	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/export"
	"github.com/rpattn/esgdash/internal/reports"
	"github.com/rpattn/esgdash/internal/repository"
)

type stubEmployees struct {
	repository.EmployeeRepository
	rows    []domain.Employee
	listErr error
	deleted []int64
}

func (s *stubEmployees) List(_ context.Context, company string) ([]domain.Employee, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Employee
	for _, e := range s.rows {
		if e.BelongsTo(company) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubEmployees) GetByID(_ context.Context, company string, id int64) (domain.Employee, error) {
	for _, e := range s.rows {
		if e.ID == id && e.BelongsTo(company) {
			return e, nil
		}
	}
	return domain.Employee{}, fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
}

func (s *stubEmployees) Create(_ context.Context, e domain.Employee) (domain.Employee, error) {
	if err := e.Validate(); err != nil {
		return domain.Employee{}, err
	}
	e.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, e)
	return e, nil
}

func (s *stubEmployees) Delete(_ context.Context, company string, id int64) error {
	if _, err := s.GetByID(context.Background(), company, id); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubEmployees) ListChangeLog(context.Context, string, []domain.TrackedField) ([]domain.ChangeLogEntry, error) {
	return nil, nil
}

type stubFleet struct {
	repository.FleetRepository
	existing domain.Vehicle
}

func (s *stubFleet) Create(_ context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	if strings.EqualFold(v.RegistrationNumber, s.existing.RegistrationNumber) {
		return domain.Vehicle{}, &domain.ConflictError{Field: "registration_number", Value: v.RegistrationNumber, Existing: s.existing}
	}
	v.ID = 99
	return v, nil
}

func (s *stubFleet) GetByID(_ context.Context, company string, id int64) (domain.Vehicle, error) {
	if id == s.existing.ID && s.existing.BelongsTo(company) {
		return s.existing, nil
	}
	return domain.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, domain.ErrNotFound)
}

type stubRoutes struct {
	repository.RouteRepository
	created []domain.Route
}

func (s *stubRoutes) Create(_ context.Context, r domain.Route) (domain.Route, error) {
	r.ID = int64(len(s.created) + 1)
	s.created = append(s.created, r)
	return r, nil
}

type stubBills struct {
	repository.BillRepository
	created []domain.Bill
}

func (s *stubBills) Create(_ context.Context, b domain.Bill) (domain.Bill, error) {
	if err := b.Validate(); err != nil {
		return domain.Bill{}, err
	}
	b.ID = int64(len(s.created) + 1)
	s.created = append(s.created, b)
	return b, nil
}

type stubLookups struct {
	rows map[domain.LookupKind][]domain.Lookup
}

func (s *stubLookups) List(_ context.Context, kind domain.LookupKind) ([]domain.Lookup, error) {
	return s.rows[kind], nil
}

func (s *stubLookups) GetByIDs(_ context.Context, kind domain.LookupKind, ids []int64) (map[int64]domain.Lookup, error) {
	out := make(map[int64]domain.Lookup)
	for _, row := range s.rows[kind] {
		for _, id := range ids {
			if row.ID == id {
				out[id] = row
			}
		}
	}
	return out, nil
}

type stubImportLogs struct {
	repository.ImportLogRepository
	limit  int
	offset int
}

func (s *stubImportLogs) List(_ context.Context, _ string, _ string, limit int, offset int) ([]domain.ImportLogEntry, error) {
	s.limit, s.offset = limit, offset
	return nil, nil
}

type stubUsers struct {
	users map[string]domain.User
}

func (s *stubUsers) Create(_ context.Context, user domain.User) (domain.User, error) {
	if _, ok := s.users[user.Email]; ok {
		return domain.User{}, &domain.ConflictError{Field: "email", Value: user.Email}
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.Email] = user
	return user, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

type fixture struct {
	handler    http.Handler
	employees  *stubEmployees
	routes     *stubRoutes
	bills      *stubBills
	importLogs *stubImportLogs
	tokens     *auth.Tokens
}

func int64Ptr(v int64) *int64 { return &v }

func datePtr(year int) *domain.Date {
	d := domain.NewDate(year, time.January, 1)
	return &d
}

func newFixture(t *testing.T, mutate func(*Dependencies)) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		employees: &stubEmployees{rows: []domain.Employee{
			{ID: 1, Company: "Acme", FullName: "Ada", EducationID: int64Ptr(1), EmploymentDate: datePtr(2020)},
			{ID: 2, Company: "Acme", FullName: "Grace", EducationID: int64Ptr(2), EmploymentDate: datePtr(2021)},
			{ID: 3, Company: "Globex", FullName: "Hank", EmploymentDate: datePtr(2019)},
		}},
		routes:     &stubRoutes{},
		bills:      &stubBills{},
		importLogs: &stubImportLogs{},
		tokens:     auth.NewTokens("test-secret", time.Hour),
	}
	fleet := &stubFleet{existing: domain.Vehicle{ID: 7, Company: "Acme", RegistrationNumber: "AB-123", VehicleTypeID: int64Ptr(1)}}
	lookups := &stubLookups{rows: map[domain.LookupKind][]domain.Lookup{
		domain.LookupEducation: {{ID: 1, Name: "BSc"}, {ID: 2, Name: "MSc"}},
	}}
	reportService := reports.NewService(f.employees, fleet, f.routes, f.bills, lookups,
		reports.WithClock(func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }),
		reports.WithLogger(logger),
	)

	deps := Dependencies{
		Employees:  f.employees,
		Fleet:      fleet,
		Routes:     f.routes,
		Bills:      f.bills,
		Lookups:    lookups,
		ImportLogs: f.importLogs,
		Reports:    reportService,
		Export:     export.NewService(reportService),
		Auth:       auth.NewService(&stubUsers{users: map[string]domain.User{}}, f.tokens, auth.WithLogger(logger)),
		Logger:     logger,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.handler = NewRouter(deps)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	f = newFixture(t, func(d *Dependencies) {
		d.Ping = func(context.Context) error { return errors.New("pool closed") }
	})
	rec = f.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListEmployeesRequiresCompany(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/employees", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	require.Equal(t, []string{"company"}, resp.Fields)
	require.Equal(t, "missing required fields: company", resp.Error)
}

func TestListEmployeesIsCaseInsensitiveAndLabelled(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/employees?company=acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []struct {
		ID     int64             `json:"id"`
		Labels map[string]string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	require.Equal(t, "BSc", views[0].Labels["education_id"])
	require.Equal(t, "MSc", views[1].Labels["education_id"])
}

func TestGetEmployeeOfOtherCompanyIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/employees/3?company=Acme", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEmployeeValidation(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/employees", map[string]any{"company": "Acme"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"full_name", "employment_date"}, decodeError(t, rec).Fields)

	rec = f.do(t, http.MethodPost, "/api/employees", map[string]any{
		"company":         "Acme",
		"full_name":       "Linus",
		"employment_date": "2023-04-01",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Employee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(4), created.ID)
	require.Equal(t, "2023-04-01", created.EmploymentDate.String())
}

func TestCreateEmployeeRejectsUnknownFields(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/employees", map[string]any{"company": "Acme", "salary": 10}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Error, "salary")
}

func TestDeleteEmployee(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodDelete, "/api/employees/2?company=Acme", nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []int64{2}, f.employees.deleted)
}

func TestUnexpectedErrorCarriesDetails(t *testing.T) {
	f := newFixture(t, nil)
	f.employees.listErr = errors.New("connection refused")

	rec := f.do(t, http.MethodGet, "/api/employees?company=Acme", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeError(t, rec)
	require.Equal(t, "internal server error", resp.Error)
	require.Equal(t, "connection refused", resp.Details)
}

func TestCreateVehicleConflictEchoesExisting(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/fleet", map[string]any{
		"company":             "Acme",
		"registration_number": "ab-123",
		"vehicle_type_id":     1,
	}, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Fields   []string       `json:"fields"`
		Existing domain.Vehicle `json:"existing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"registration_number"}, resp.Fields)
	require.Equal(t, int64(7), resp.Existing.ID)
}

func TestCreateRouteChecksVehicleCompany(t *testing.T) {
	f := newFixture(t, nil)
	route := map[string]any{"fleet_id": 7, "route_date": "2024-02-01", "distance_km": 12.5}

	rec := f.do(t, http.MethodPost, "/api/routes?company=Globex", route, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, f.routes.created)

	rec = f.do(t, http.MethodPost, "/api/routes?company=Acme", route, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.routes.created, 1)
	require.Equal(t, "Acme", f.routes.created[0].Company)
}

func TestCreateBillRejectsForeignDocument(t *testing.T) {
	f := newFixture(t, nil)
	bill := map[string]any{
		"company":      "Acme",
		"utility_id":   1,
		"period_start": "2024-01-01",
		"period_end":   "2024-01-31",
		"consumption":  "120.5",
		"cost":         "40",
		"document_key": "bills/globex/1709632800000-jan.pdf",
	}
	rec := f.do(t, http.MethodPost, "/api/bills", bill, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"document_key"}, decodeError(t, rec).Fields)

	bill["document_key"] = "bills/acme/1709632800000-jan.pdf"
	rec = f.do(t, http.MethodPost, "/api/bills", bill, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.bills.created, 1)
}

func TestSessionScopeIsEnforced(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) { d.AuthRequired = true })

	rec := f.do(t, http.MethodGet, "/api/employees?company=Acme", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := f.tokens.Issue(1, "ada@acme.test", "Acme")
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/employees?company=Globex", nil, token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/employees", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": "ada@acme.test", "password": "correct horse", "company": "Acme",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "correct horse")

	rec = f.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": "ada@acme.test", "password": "correct horse", "company": "Acme",
	}, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "ada@acme.test", "password": "wrong password",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "ada@acme.test", "password": "correct horse",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	claims, err := f.tokens.Parse(session.Token)
	require.NoError(t, err)
	require.Equal(t, "Acme", claims.Company)
}

func TestReportIsDense(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/reports/education?company=acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report reports.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, []int{2021, 2022, 2023, 2024}, report.Years)
	require.Equal(t, []string{"BSc", "MSc"}, report.Categories)
	require.Equal(t, 1, report.Cell(2021, "BSc").Count)
	require.Equal(t, 1, report.Cell(2021, "MSc").Count)
	require.Equal(t, 1, report.Cell(2024, "MSc").Count)
}

func TestReportParameterValidation(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/reports/salaries?company=Acme", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"kind"}, decodeError(t, rec).Fields)

	rec = f.do(t, http.MethodGet, "/api/reports/education?company=Acme&year=abc", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"year"}, decodeError(t, rec).Fields)

	rec = f.do(t, http.MethodGet, "/api/reports/education?company=Acme&year=1200", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"year"}, decodeError(t, rec).Fields)

	rec = f.do(t, http.MethodGet, "/api/reports/education?company=Acme&category=PhD", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"category"}, decodeError(t, rec).Fields)
}

func TestExportReport(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/reports/education/export?company=Acme&year=2023", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "education-")
	require.NotZero(t, rec.Body.Len())
}

func TestImportLogsPaging(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/import/logs?company=Acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
	require.Equal(t, defaultLogLimit, f.importLogs.limit)

	rec = f.do(t, http.MethodGet, "/api/import/logs?company=Acme&limit=10&offset=20", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, f.importLogs.limit)
	require.Equal(t, 20, f.importLogs.offset)

	rec = f.do(t, http.MethodGet, "/api/import/logs?company=Acme&limit=5000", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, []string{"limit"}, decodeError(t, rec).Fields)
}

func TestLookupKinds(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/lookups/education", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "BSc")

	rec = f.do(t, http.MethodGet, "/api/lookups/gender", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/lookups/planets", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
