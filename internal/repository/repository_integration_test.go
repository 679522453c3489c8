package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/esgdash/internal/db"
	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/history"
)

// integrationConfig starts from db.DefaultConfig and applies the DB_* env vars.
func integrationConfig() db.Config {
	cfg := db.DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("DB_HOST")); v != "" {
		cfg.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		cfg.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DBName = v
	}
	return cfg
}

// integrationPool connects to a migrated database or skips the test.
func integrationPool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	cfg := integrationConfig()
	dial, err := net.DialTimeout("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), time.Second)
	if err != nil {
		tb.Skip("postgres is not reachable; skipping repository integration test")
	}
	_ = dial.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := db.NewConnection(ctx, cfg)
	if err != nil {
		tb.Skipf("postgres is not usable (%v); skipping repository integration test", err)
	}
	tb.Cleanup(conn.Close)

	require.NoError(tb, db.RunMigrations(cfg))
	return conn.Pool
}

// lookupIDs returns the first n ids of a seeded lookup table.
func lookupIDs(tb testing.TB, pool *pgxpool.Pool, table string, n int) []int64 {
	tb.Helper()

	rows, err := pool.Query(context.Background(), fmt.Sprintf(`SELECT id FROM %s ORDER BY id LIMIT $1`, table), n)
	require.NoError(tb, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(tb, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(tb, rows.Err())
	require.Len(tb, ids, n, "seeded %s rows", table)
	return ids
}

func countLogRows(tb testing.TB, pool *pgxpool.Pool, store changeLogStore, entityID int64) int {
	tb.Helper()

	var count int
	err := pool.QueryRow(
		context.Background(),
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1`, store.table, store.entityColumn),
		entityID,
	).Scan(&count)
	require.NoError(tb, err)
	return count
}

func uniqueCompany(prefix string) string {
	return prefix + " " + uuid.NewString()
}

func TestEmployeeRepository_UpdateLogsChangesForPastYears(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	company := uniqueCompany("Acme")
	education := lookupIDs(t, pool, "education", 3)

	repo := NewEmployeeRepository(pool).(*employeeRepository)
	hired := domain.NewDate(2020, time.January, 1)
	created, err := repo.Create(ctx, domain.Employee{
		Company:        company,
		FullName:       "Ada Example",
		EducationID:    &education[0],
		EmploymentDate: &hired,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM employee_update_log WHERE employee_id = $1`, created.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM employee WHERE id = $1`, created.ID)
	})

	repo.now = func() time.Time { return time.Date(2022, time.March, 1, 9, 0, 0, 0, time.UTC) }
	edit := created
	edit.EducationID = &education[1]
	updated, logged, err := repo.Update(ctx, edit)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	require.Equal(t, domain.FieldEducationID, logged[0].Field)
	require.Equal(t, domain.IDText(&education[0]), logged[0].OldValue)
	require.Equal(t, domain.IDText(&education[1]), logged[0].NewValue)

	repo.now = func() time.Time { return time.Date(2023, time.June, 15, 9, 0, 0, 0, time.UTC) }
	edit = updated
	edit.EducationID = &education[2]
	edit.FullName = "Ada Renamed"
	updated, logged, err = repo.Update(ctx, edit)
	require.NoError(t, err)
	require.Len(t, logged, 1, "untracked columns are not logged")
	require.Equal(t, "Ada Renamed", updated.FullName)

	_, logged, err = repo.Update(ctx, updated)
	require.NoError(t, err)
	require.Empty(t, logged)

	entries, err := repo.History(ctx, company, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	current := domain.IDText(updated.EducationID)
	require.Equal(t, current, entries[0].NewValue, "newest entry holds the current value")

	require.Equal(t, domain.IDText(&education[0]), history.Resolve(current, entries, 2021))
	require.Equal(t, domain.IDText(&education[1]), history.Resolve(current, entries, 2022))
	require.Equal(t, current, history.Resolve(current, entries, 2023))

	_, err = repo.History(ctx, uniqueCompany("Other"), created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmployeeRepository_ChangeLogIsCompanyScopedAndSurvivesDelete(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	company := uniqueCompany("Acme")
	other := uniqueCompany("Other")
	genders := lookupIDs(t, pool, "gender", 2)

	repo := NewEmployeeRepository(pool)
	hired := domain.NewDate(2021, time.May, 3)
	created, err := repo.Create(ctx, domain.Employee{
		Company:        company,
		FullName:       "Bob Example",
		GenderID:       &genders[0],
		EmploymentDate: &hired,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM employee_update_log WHERE employee_id = $1`, created.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM employee WHERE id = $1`, created.ID)
	})

	edit := created
	edit.GenderID = &genders[1]
	_, _, err = repo.Update(ctx, edit)
	require.NoError(t, err)

	entries, err := repo.ListChangeLog(ctx, strings.ToUpper(company), []domain.TrackedField{domain.FieldGenderID})
	require.NoError(t, err)
	require.Len(t, entries, 1, "company match is case-insensitive")

	entries, err = repo.ListChangeLog(ctx, company, []domain.TrackedField{domain.FieldEducationID})
	require.NoError(t, err)
	require.Empty(t, entries)

	entries, err = repo.ListChangeLog(ctx, other, []domain.TrackedField{domain.FieldGenderID})
	require.NoError(t, err)
	require.Empty(t, entries)

	require.ErrorIs(t, repo.Delete(ctx, other, created.ID), domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, company, created.ID))

	_, err = repo.GetByID(ctx, company, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, 1, countLogRows(t, pool, employeeChangeLog, created.ID))
}

func TestEmployeeRepository_CreateBatchCopiesRows(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	company := uniqueCompany("Batch")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM employee WHERE company = $1`, company)
	})

	repo := NewEmployeeRepository(pool)
	hired := domain.NewDate(2019, time.September, 1)
	inserted, err := repo.CreateBatch(ctx, []domain.Employee{
		{Company: company, FullName: " First ", EmploymentDate: &hired},
		{Company: company, FullName: "Second", EmploymentDate: &hired},
	})
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	employees, err := repo.List(ctx, company)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	require.Equal(t, "First", employees[0].FullName)
	require.Equal(t, hired.String(), employees[0].EmploymentDate.String())
}

func TestFleetRepository_DuplicateRegistrationRollsBackBatch(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	company := uniqueCompany("Fleet")
	plate := "IT-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM fleet WHERE company = $1`, company)
	})

	repo := NewFleetRepository(pool)
	_, err := repo.CreateBatch(ctx, []domain.Vehicle{
		{Company: company, RegistrationNumber: plate},
		{Company: company, RegistrationNumber: "IT-" + uuid.NewString()[:8]},
		{Company: company, RegistrationNumber: plate},
	})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "expected conflict, got %v", err)
	require.Equal(t, plate, conflict.Value)

	vehicles, err := repo.List(ctx, company)
	require.NoError(t, err)
	require.Empty(t, vehicles, "no row of a failed batch is kept")

	created, err := repo.Create(ctx, domain.Vehicle{Company: company, RegistrationNumber: plate})
	require.NoError(t, err)

	_, err = repo.Create(ctx, domain.Vehicle{Company: company, RegistrationNumber: plate})
	require.True(t, errors.As(err, &conflict), "expected conflict, got %v", err)
	existing, ok := conflict.Existing.(domain.Vehicle)
	require.True(t, ok)
	require.Equal(t, created.ID, existing.ID)
}

func TestFleetRepository_UpdateLogsVehicleType(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	company := uniqueCompany("Fleet")
	types := lookupIDs(t, pool, "vehicle_type", 2)

	repo := NewFleetRepository(pool).(*fleetRepository)
	created, err := repo.Create(ctx, domain.Vehicle{
		Company:            company,
		RegistrationNumber: "IT-" + uuid.NewString()[:8],
		VehicleTypeID:      &types[0],
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM fleet_update_log WHERE fleet_id = $1`, created.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM fleet WHERE id = $1`, created.ID)
	})

	repo.now = func() time.Time { return time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC) }
	edit := created
	edit.VehicleTypeID = &types[1]
	updated, logged, err := repo.Update(ctx, edit)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	require.Equal(t, domain.FieldVehicleTypeID, logged[0].Field)

	entries, err := repo.ListChangeLog(ctx, company, []domain.TrackedField{domain.FieldVehicleTypeID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	current := domain.IDText(updated.VehicleTypeID)
	require.Equal(t, domain.IDText(&types[0]), history.Resolve(current, entries, 2022))
	require.Equal(t, current, history.Resolve(current, entries, 2023))

	require.NoError(t, repo.Delete(ctx, company, created.ID))
	require.Equal(t, 1, countLogRows(t, pool, fleetChangeLog, created.ID))
}
