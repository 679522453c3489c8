package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/esgdash/internal/db"
	"github.com/rpattn/esgdash/internal/domain"
)

const employeeColumns = `id, company, full_name, birth_date, gender_id, education_id,
	managerial_position_id, position_id, marital_status_id, employment_date,
	termination_date, created_at, updated_at`

var employeeCopyColumns = []string{
	"company", "full_name", "birth_date", "gender_id", "education_id",
	"managerial_position_id", "position_id", "marital_status_id",
	"employment_date", "termination_date",
}

type employeeRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewEmployeeRepository wires a repository backed by pgxpool.
func NewEmployeeRepository(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{pool: pool, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var (
		employee        domain.Employee
		birthDate       pgtype.Date
		genderID        pgtype.Int8
		educationID     pgtype.Int8
		managerialID    pgtype.Int8
		positionID      pgtype.Int8
		maritalStatusID pgtype.Int8
		employmentDate  pgtype.Date
		terminationDate pgtype.Date
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)
	if err := row.Scan(
		&employee.ID,
		&employee.Company,
		&employee.FullName,
		&birthDate,
		&genderID,
		&educationID,
		&managerialID,
		&positionID,
		&maritalStatusID,
		&employmentDate,
		&terminationDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Employee{}, err
	}

	employee.BirthDate = dateValue(birthDate)
	employee.GenderID = int8Value(genderID)
	employee.EducationID = int8Value(educationID)
	employee.ManagerialPositionID = int8Value(managerialID)
	employee.PositionID = int8Value(positionID)
	employee.MaritalStatusID = int8Value(maritalStatusID)
	employee.EmploymentDate = dateValue(employmentDate)
	employee.TerminationDate = dateValue(terminationDate)
	if createdAt.Valid {
		employee.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		employee.UpdatedAt = updatedAt.Time
	}
	return employee, nil
}

func employeeArgs(e domain.Employee) []any {
	return []any{
		strings.TrimSpace(e.Company),
		strings.TrimSpace(e.FullName),
		dateArg(e.BirthDate),
		int8Arg(e.GenderID),
		int8Arg(e.EducationID),
		int8Arg(e.ManagerialPositionID),
		int8Arg(e.PositionID),
		int8Arg(e.MaritalStatusID),
		dateArg(e.EmploymentDate),
		dateArg(e.TerminationDate),
	}
}

// Create inserts a new employee
func (r *employeeRepository) Create(ctx context.Context, employee domain.Employee) (domain.Employee, error) {
	if err := employee.Validate(); err != nil {
		return domain.Employee{}, err
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO employee (company, full_name, birth_date, gender_id, education_id,
			managerial_position_id, position_id, marital_status_id, employment_date, termination_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+employeeColumns,
		employeeArgs(employee)...,
	)
	created, err := scanEmployee(row)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return created, nil
}

// CreateBatch inserts every employee in one transaction; nothing is written
// when any row fails.
func (r *employeeRepository) CreateBatch(ctx context.Context, employees []domain.Employee) (int, error) {
	if len(employees) == 0 {
		return 0, nil
	}
	for _, employee := range employees {
		if err := employee.Validate(); err != nil {
			return 0, err
		}
	}

	var inserted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		count, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"employee"},
			employeeCopyColumns,
			pgx.CopyFromSlice(len(employees), func(i int) ([]any, error) {
				return employeeArgs(employees[i]), nil
			}),
		)
		if err != nil {
			return err
		}
		inserted = count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert employee batch: %w", err)
	}
	return int(inserted), nil
}

// GetByID retrieves an employee of company by id
func (r *employeeRepository) GetByID(ctx context.Context, company string, id int64) (domain.Employee, error) {
	return getEmployee(ctx, r.pool, company, id, false)
}

func getEmployee(ctx context.Context, q querier, company string, id int64, forUpdate bool) (domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
		 FROM employee
		 WHERE id = $1 AND lower(company) = lower($2)`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	employee, err := scanEmployee(q.QueryRow(ctx, query, id, company))
	if err != nil {
		return domain.Employee{}, notFound(err, fmt.Sprintf("employee %d", id))
	}
	return employee, nil
}

// List returns the employees of company
func (r *employeeRepository) List(ctx context.Context, company string) ([]domain.Employee, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+employeeColumns+`
		 FROM employee
		 WHERE lower(company) = lower($1)
		 ORDER BY id`,
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []domain.Employee{}
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

// Update locks the current row, logs every changed tracked field and writes
// the new row in a single transaction.
func (r *employeeRepository) Update(ctx context.Context, employee domain.Employee) (domain.Employee, []domain.ChangeLogEntry, error) {
	if err := employee.Validate(); err != nil {
		return domain.Employee{}, nil, err
	}

	var (
		updated domain.Employee
		logged  []domain.ChangeLogEntry
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		before, err := getEmployee(ctx, tx, employee.Company, employee.ID, true)
		if err != nil {
			return err
		}

		now := r.now().UTC()
		changes := domain.DiffSnapshots(domain.EmployeeTrackedFields, before.Snapshot(), employee.Snapshot())
		logged, err = employeeChangeLog.append(ctx, tx, domain.ChangeLogEntries(before.ID, changes, now))
		if err != nil {
			return err
		}

		args := append(employeeArgs(employee)[1:], now, before.ID)
		updated, err = scanEmployee(tx.QueryRow(
			ctx,
			`UPDATE employee
			 SET full_name = $1, birth_date = $2, gender_id = $3, education_id = $4,
			     managerial_position_id = $5, position_id = $6, marital_status_id = $7,
			     employment_date = $8, termination_date = $9, updated_at = $10
			 WHERE id = $11
			 RETURNING `+employeeColumns,
			args...,
		))
		return err
	})
	if err != nil {
		if domain.IsValidation(err) || isNotFound(err) {
			return domain.Employee{}, nil, err
		}
		return domain.Employee{}, nil, fmt.Errorf("failed to update employee: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"employee_id": updated.ID,
		"changes":     len(logged),
	}).Debug("employee updated")
	return updated, logged, nil
}

// Delete removes the employee row; its change log rows are kept.
func (r *employeeRepository) Delete(ctx context.Context, company string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employee WHERE id = $1 AND lower(company) = lower($2)`, id, company)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// History returns the change log of one employee, newest first.
func (r *employeeRepository) History(ctx context.Context, company string, id int64) ([]domain.ChangeLogEntry, error) {
	if _, err := r.GetByID(ctx, company, id); err != nil {
		return nil, err
	}
	return employeeChangeLog.forEntity(ctx, r.pool, id)
}

// ListChangeLog returns the log rows of fields for every employee of company.
func (r *employeeRepository) ListChangeLog(ctx context.Context, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error) {
	return employeeChangeLog.forCompany(ctx, r.pool, company, fields)
}
