package repository

import (
	"context"

	"github.com/rpattn/esgdash/internal/domain"
)

// EmployeeRepository defines the interface for employee operations
type EmployeeRepository interface {
	Create(ctx context.Context, employee domain.Employee) (domain.Employee, error)
	CreateBatch(ctx context.Context, employees []domain.Employee) (int, error)
	GetByID(ctx context.Context, company string, id int64) (domain.Employee, error)
	List(ctx context.Context, company string) ([]domain.Employee, error)
	Update(ctx context.Context, employee domain.Employee) (domain.Employee, []domain.ChangeLogEntry, error)
	Delete(ctx context.Context, company string, id int64) error

	// Change log
	History(ctx context.Context, company string, id int64) ([]domain.ChangeLogEntry, error)
	ListChangeLog(ctx context.Context, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error)
}

// FleetRepository defines the interface for vehicle operations
type FleetRepository interface {
	Create(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, error)
	CreateBatch(ctx context.Context, vehicles []domain.Vehicle) (int, error)
	GetByID(ctx context.Context, company string, id int64) (domain.Vehicle, error)
	List(ctx context.Context, company string) ([]domain.Vehicle, error)
	Update(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, []domain.ChangeLogEntry, error)
	Delete(ctx context.Context, company string, id int64) error

	// Change log
	History(ctx context.Context, company string, id int64) ([]domain.ChangeLogEntry, error)
	ListChangeLog(ctx context.Context, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error)
}

// RouteRepository defines the interface for route operations
type RouteRepository interface {
	Create(ctx context.Context, route domain.Route) (domain.Route, error)
	List(ctx context.Context, company string) ([]domain.Route, error)
	Delete(ctx context.Context, company string, id int64) error
}

// BillRepository defines the interface for utility bill operations
type BillRepository interface {
	Create(ctx context.Context, bill domain.Bill) (domain.Bill, error)
	GetByID(ctx context.Context, company string, id int64) (domain.Bill, error)
	List(ctx context.Context, company string) ([]domain.Bill, error)
	Update(ctx context.Context, bill domain.Bill) (domain.Bill, error)
	Delete(ctx context.Context, company string, id int64) error
}

// LookupRepository reads the reference tables.
type LookupRepository interface {
	List(ctx context.Context, kind domain.LookupKind) ([]domain.Lookup, error)
	GetByIDs(ctx context.Context, kind domain.LookupKind, ids []int64) (map[int64]domain.Lookup, error)
}

// UserRepository defines the interface for dashboard accounts
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// ImportLogRepository stores import errors for later inspection.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, company string, target string, limit int, offset int) ([]domain.ImportLogEntry, error)
}
