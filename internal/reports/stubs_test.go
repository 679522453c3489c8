package reports

import (
	"context"
	"errors"
	"sync"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/repository"
)

type stubEmployeeRepo struct {
	employees []domain.Employee
	log       []domain.ChangeLogEntry
}

func (s *stubEmployeeRepo) Create(ctx context.Context, employee domain.Employee) (domain.Employee, error) {
	return domain.Employee{}, errors.New("not implemented")
}

func (s *stubEmployeeRepo) CreateBatch(ctx context.Context, employees []domain.Employee) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *stubEmployeeRepo) GetByID(ctx context.Context, company string, id int64) (domain.Employee, error) {
	for _, employee := range s.employees {
		if employee.ID == id && employee.BelongsTo(company) {
			return employee, nil
		}
	}
	return domain.Employee{}, domain.ErrNotFound
}

func (s *stubEmployeeRepo) List(ctx context.Context, company string) ([]domain.Employee, error) {
	var out []domain.Employee
	for _, employee := range s.employees {
		if employee.BelongsTo(company) {
			out = append(out, employee)
		}
	}
	return out, nil
}

func (s *stubEmployeeRepo) Update(ctx context.Context, employee domain.Employee) (domain.Employee, []domain.ChangeLogEntry, error) {
	return domain.Employee{}, nil, errors.New("not implemented")
}

func (s *stubEmployeeRepo) Delete(ctx context.Context, company string, id int64) error {
	return errors.New("not implemented")
}

func (s *stubEmployeeRepo) History(ctx context.Context, company string, id int64) ([]domain.ChangeLogEntry, error) {
	var out []domain.ChangeLogEntry
	for _, entry := range s.log {
		if entry.EntityID == id {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *stubEmployeeRepo) ListChangeLog(ctx context.Context, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error) {
	wanted := make(map[domain.TrackedField]bool, len(fields))
	for _, field := range fields {
		wanted[field] = true
	}
	var out []domain.ChangeLogEntry
	for _, entry := range s.log {
		if wanted[entry.Field] {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubFleetRepo struct {
	vehicles []domain.Vehicle
	log      []domain.ChangeLogEntry
}

func (s *stubFleetRepo) Create(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, error) {
	return domain.Vehicle{}, errors.New("not implemented")
}

func (s *stubFleetRepo) CreateBatch(ctx context.Context, vehicles []domain.Vehicle) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *stubFleetRepo) GetByID(ctx context.Context, company string, id int64) (domain.Vehicle, error) {
	return domain.Vehicle{}, errors.New("not implemented")
}

func (s *stubFleetRepo) List(ctx context.Context, company string) ([]domain.Vehicle, error) {
	return s.vehicles, nil
}

func (s *stubFleetRepo) Update(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, []domain.ChangeLogEntry, error) {
	return domain.Vehicle{}, nil, errors.New("not implemented")
}

func (s *stubFleetRepo) Delete(ctx context.Context, company string, id int64) error {
	return errors.New("not implemented")
}

func (s *stubFleetRepo) History(ctx context.Context, company string, id int64) ([]domain.ChangeLogEntry, error) {
	return nil, errors.New("not implemented")
}

func (s *stubFleetRepo) ListChangeLog(ctx context.Context, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error) {
	return s.log, nil
}

type stubRouteRepo struct {
	routes []domain.Route
	err    error
}

func (s *stubRouteRepo) Create(ctx context.Context, route domain.Route) (domain.Route, error) {
	return domain.Route{}, errors.New("not implemented")
}

func (s *stubRouteRepo) List(ctx context.Context, company string) ([]domain.Route, error) {
	return s.routes, s.err
}

func (s *stubRouteRepo) Delete(ctx context.Context, company string, id int64) error {
	return errors.New("not implemented")
}

type stubBillRepo struct {
	bills []domain.Bill
}

func (s *stubBillRepo) Create(ctx context.Context, bill domain.Bill) (domain.Bill, error) {
	return domain.Bill{}, errors.New("not implemented")
}

func (s *stubBillRepo) GetByID(ctx context.Context, company string, id int64) (domain.Bill, error) {
	return domain.Bill{}, errors.New("not implemented")
}

func (s *stubBillRepo) List(ctx context.Context, company string) ([]domain.Bill, error) {
	return s.bills, nil
}

func (s *stubBillRepo) Update(ctx context.Context, bill domain.Bill) (domain.Bill, error) {
	return domain.Bill{}, errors.New("not implemented")
}

func (s *stubBillRepo) Delete(ctx context.Context, company string, id int64) error {
	return errors.New("not implemented")
}

type stubLookupRepo struct {
	mu     sync.Mutex
	tables map[domain.LookupKind][]domain.Lookup
	calls  int
}

func (s *stubLookupRepo) List(ctx context.Context, kind domain.LookupKind) ([]domain.Lookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.tables[kind], nil
}

func (s *stubLookupRepo) GetByIDs(ctx context.Context, kind domain.LookupKind, ids []int64) (map[int64]domain.Lookup, error) {
	out := make(map[int64]domain.Lookup, len(ids))
	table := domain.NewLookupTable(s.tables[kind])
	for _, id := range ids {
		if row, ok := table.Get(id); ok {
			out[id] = row
		}
	}
	return out, nil
}

var _ repository.EmployeeRepository = (*stubEmployeeRepo)(nil)
var _ repository.FleetRepository = (*stubFleetRepo)(nil)
var _ repository.RouteRepository = (*stubRouteRepo)(nil)
var _ repository.BillRepository = (*stubBillRepo)(nil)
var _ repository.LookupRepository = (*stubLookupRepo)(nil)
