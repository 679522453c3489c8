package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/history"
	"github.com/rpattn/esgdash/internal/repository"
)

var reportsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "esgdash",
	Subsystem: "reports",
	Name:      "computed_total",
	Help:      "Reports computed broken down by kind and result.",
}, []string{"kind", "result"})

// Kind names a report.
type Kind string

const (
	KindEducation          Kind = "education"
	KindGender             Kind = "gender"
	KindManagerialPosition Kind = "managerial-positions"
	KindAgeFluctuation     Kind = "age-fluctuation"
	KindLeave              Kind = "leave"
	KindFleet              Kind = "fleet"
	KindEmissions          Kind = "emissions"
	KindUtilities          Kind = "utilities"
)

// Kinds lists every report.
var Kinds = []Kind{
	KindEducation,
	KindGender,
	KindManagerialPosition,
	KindAgeFluctuation,
	KindLeave,
	KindFleet,
	KindEmissions,
	KindUtilities,
}

// ParseKind validates a report kind taken from a URL.
func ParseKind(raw string) (Kind, error) {
	for _, kind := range Kinds {
		if string(kind) == raw {
			return kind, nil
		}
	}
	return "", &domain.ValidationError{Fields: []string{"kind"}, Message: fmt.Sprintf("unknown report kind %q", raw)}
}

// Request carries the report parameters.
type Request struct {
	Company  string
	Year     *int
	Category string
}

// Report is a computed report.
type Report struct {
	Kind    Kind   `json:"kind"`
	Company string `json:"company"`
	Matrix
}

// Service computes reports from the current rows and change logs.
type Service struct {
	employees repository.EmployeeRepository
	fleet     repository.FleetRepository
	routes    repository.RouteRepository
	bills     repository.BillRepository
	lookups   repository.LookupRepository
	now       func() time.Time
	logger    logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock that anchors the report window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the report service.
func NewService(
	employees repository.EmployeeRepository,
	fleet repository.FleetRepository,
	routes repository.RouteRepository,
	bills repository.BillRepository,
	lookups repository.LookupRepository,
	opts ...Option,
) *Service {
	s := &Service{
		employees: employees,
		fleet:     fleet,
		routes:    routes,
		bills:     bills,
		lookups:   lookups,
		now:       time.Now,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate computes the report of kind for req.
func (s *Service) Generate(ctx context.Context, kind Kind, req Request) (Report, error) {
	report, err := s.generate(ctx, kind, req)
	result := "ok"
	if err != nil {
		result = "error"
	}
	reportsComputed.WithLabelValues(string(kind), result).Inc()
	return report, err
}

func (s *Service) generate(ctx context.Context, kind Kind, req Request) (Report, error) {
	company := strings.TrimSpace(req.Company)
	if company == "" {
		return Report{}, domain.NewMissingFieldsError("company")
	}
	years := Window(s.now(), req.Year)

	var (
		rows       []Row
		categories []string
		withValues bool
		err        error
	)
	switch kind {
	case KindEducation:
		rows, categories, err = s.attributeReport(ctx, company, domain.FieldEducationID, domain.LookupEducation, years)
	case KindGender:
		rows, categories, err = s.attributeReport(ctx, company, domain.FieldGenderID, domain.LookupGender, years)
	case KindManagerialPosition:
		rows, categories, err = s.attributeReport(ctx, company, domain.FieldManagerialPositionID, domain.LookupManagerialPosition, years)
	case KindAgeFluctuation:
		rows, categories, err = s.ageReport(ctx, company, years)
	case KindLeave:
		rows, categories, err = s.leaveReport(ctx, company, years)
	case KindFleet:
		rows, categories, err = s.fleetReport(ctx, company, years, false)
	case KindEmissions:
		rows, categories, err = s.fleetReport(ctx, company, years, true)
		withValues = true
	case KindUtilities:
		rows, categories, err = s.utilityReport(ctx, company, years)
		withValues = true
	default:
		return Report{}, &domain.ValidationError{Fields: []string{"kind"}, Message: fmt.Sprintf("unknown report kind %q", kind)}
	}
	if err != nil {
		return Report{}, err
	}

	categories, ok := filterCategories(categories, req.Category)
	if !ok {
		return Report{}, &domain.ValidationError{
			Fields:  []string{"category"},
			Message: fmt.Sprintf("unknown category %q for report %s", req.Category, kind),
		}
	}

	s.logger.WithFields(logrus.Fields{
		"kind":    kind,
		"company": company,
		"years":   years,
		"rows":    len(rows),
	}).Debug("report computed")

	return Report{
		Kind:    kind,
		Company: company,
		Matrix:  Densify(rows, years, categories, withValues),
	}, nil
}

func (s *Service) lookupTable(ctx context.Context, kind domain.LookupKind) (domain.LookupTable, error) {
	rows, err := s.lookups.List(ctx, kind)
	if err != nil {
		return domain.LookupTable{}, fmt.Errorf("failed to load %s lookups: %w", kind, err)
	}
	return domain.NewLookupTable(rows), nil
}

func (s *Service) loadEmployees(ctx context.Context, company string, fields ...domain.TrackedField) ([]domain.Employee, *history.Index, error) {
	for _, field := range fields {
		if !domain.IsReportField(field) {
			return nil, nil, fmt.Errorf("field %s is not resolvable for past years", field)
		}
	}
	employees, err := s.employees.List(ctx, company)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load employees: %w", err)
	}
	entries, err := s.employees.ListChangeLog(ctx, company, fields)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load employee change log: %w", err)
	}
	return employees, history.NewIndex(entries), nil
}

func (s *Service) attributeReport(ctx context.Context, company string, field domain.TrackedField, kind domain.LookupKind, years []int) ([]Row, []string, error) {
	employees, idx, err := s.loadEmployees(ctx, company, field)
	if err != nil {
		return nil, nil, err
	}
	labels, err := s.lookupTable(ctx, kind)
	if err != nil {
		return nil, nil, err
	}
	return AttributeDistribution(company, employees, idx, field, labels, years), labels.Names(), nil
}

func (s *Service) ageReport(ctx context.Context, company string, years []int) ([]Row, []string, error) {
	employees, idx, err := s.loadEmployees(ctx, company, domain.FieldManagerialPositionID)
	if err != nil {
		return nil, nil, err
	}
	managerial, err := s.lookupTable(ctx, domain.LookupManagerialPosition)
	if err != nil {
		return nil, nil, err
	}
	return AgeFluctuation(company, employees, idx, managerial, years), AgeCategories, nil
}

func (s *Service) leaveReport(ctx context.Context, company string, years []int) ([]Row, []string, error) {
	employees, idx, err := s.loadEmployees(ctx, company, domain.FieldGenderID)
	if err != nil {
		return nil, nil, err
	}
	genders, err := s.lookupTable(ctx, domain.LookupGender)
	if err != nil {
		return nil, nil, err
	}
	return LeaveDistribution(company, employees, idx, genders, years), genders.Names(), nil
}

// fleetReport loads vehicles, their type history, the type table and, for
// emissions, the routes concurrently before aggregating in memory.
func (s *Service) fleetReport(ctx context.Context, company string, years []int, emissions bool) ([]Row, []string, error) {
	var (
		vehicles     []domain.Vehicle
		entries      []domain.ChangeLogEntry
		vehicleTypes []domain.Lookup
		routes       []domain.Route
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vehicles, err = s.fleet.List(gctx, company)
		if err != nil {
			return fmt.Errorf("failed to load fleet: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.fleet.ListChangeLog(gctx, company, []domain.TrackedField{domain.FieldVehicleTypeID})
		if err != nil {
			return fmt.Errorf("failed to load fleet change log: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vehicleTypes, err = s.lookups.List(gctx, domain.LookupVehicleType)
		if err != nil {
			return fmt.Errorf("failed to load vehicle types: %w", err)
		}
		return nil
	})
	if emissions {
		g.Go(func() error {
			var err error
			routes, err = s.routes.List(gctx, company)
			if err != nil {
				return fmt.Errorf("failed to load routes: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	idx := history.NewIndex(entries)
	table := domain.NewLookupTable(vehicleTypes)
	if emissions {
		return EmissionsByVehicleType(company, vehicles, routes, idx, table, years), table.Names(), nil
	}
	return FleetDistribution(company, vehicles, idx, table, years), table.Names(), nil
}

func (s *Service) utilityReport(ctx context.Context, company string, years []int) ([]Row, []string, error) {
	bills, err := s.bills.List(ctx, company)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bills: %w", err)
	}
	utilities, err := s.lookupTable(ctx, domain.LookupUtility)
	if err != nil {
		return nil, nil, err
	}
	return UtilityConsumption(company, bills, utilities, years), utilities.Names(), nil
}

// Attribute is one resolved field of an entity.
type Attribute struct {
	Field   domain.TrackedField `json:"field"`
	ValueID *int64              `json:"value_id"`
	Label   string              `json:"label,omitempty"`
}

// EmployeeAttributes are an employee's tracked fields as of the end of a year.
type EmployeeAttributes struct {
	EmployeeID int64       `json:"employee_id"`
	Year       int         `json:"year"`
	Attributes []Attribute `json:"attributes"`
}

// EmployeeAttributesAt resolves every report field of one employee for year.
func (s *Service) EmployeeAttributesAt(ctx context.Context, company string, id int64, year *int) (EmployeeAttributes, error) {
	if strings.TrimSpace(company) == "" {
		return EmployeeAttributes{}, domain.NewMissingFieldsError("company")
	}
	target := s.now().Year()
	if year != nil {
		target = *year
	}

	employee, err := s.employees.GetByID(ctx, company, id)
	if err != nil {
		return EmployeeAttributes{}, err
	}
	entries, err := s.employees.History(ctx, company, id)
	if err != nil {
		return EmployeeAttributes{}, fmt.Errorf("failed to load employee history: %w", err)
	}
	idx := history.NewIndex(entries)
	snapshot := employee.Snapshot()

	result := EmployeeAttributes{EmployeeID: id, Year: target}
	for _, field := range domain.EmployeeTrackedFields {
		attribute := Attribute{Field: field}
		if resolved, ok := idx.ResolveID(id, field, snapshot[field], target); ok {
			value := resolved
			attribute.ValueID = &value
			if kind, ok := domain.LookupKindForField(field); ok {
				labels, err := s.lookups.GetByIDs(ctx, kind, []int64{resolved})
				if err != nil {
					return EmployeeAttributes{}, fmt.Errorf("failed to load %s label: %w", kind, err)
				}
				attribute.Label = labels[resolved].Name
			}
		}
		result.Attributes = append(result.Attributes, attribute)
	}
	return result, nil
}
