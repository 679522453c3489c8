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

const (
	fleetColumns = `id, company, registration_number, vehicle_type_id, description,
	acquisition_date, disposal_date, created_at, updated_at`

	registrationConstraint = "fleet_registration_number_key"
)

var fleetCopyColumns = []string{
	"company", "registration_number", "vehicle_type_id", "description",
	"acquisition_date", "disposal_date",
}

type fleetRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewFleetRepository wires a repository backed by pgxpool.
func NewFleetRepository(pool *pgxpool.Pool) FleetRepository {
	return &fleetRepository{pool: pool, now: time.Now}
}

func scanVehicle(row rowScanner) (domain.Vehicle, error) {
	var (
		vehicle         domain.Vehicle
		vehicleTypeID   pgtype.Int8
		acquisitionDate pgtype.Date
		disposalDate    pgtype.Date
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)
	if err := row.Scan(
		&vehicle.ID,
		&vehicle.Company,
		&vehicle.RegistrationNumber,
		&vehicleTypeID,
		&vehicle.Description,
		&acquisitionDate,
		&disposalDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Vehicle{}, err
	}

	vehicle.VehicleTypeID = int8Value(vehicleTypeID)
	vehicle.AcquisitionDate = dateValue(acquisitionDate)
	vehicle.DisposalDate = dateValue(disposalDate)
	if createdAt.Valid {
		vehicle.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		vehicle.UpdatedAt = updatedAt.Time
	}
	return vehicle, nil
}

func vehicleArgs(v domain.Vehicle) []any {
	return []any{
		strings.TrimSpace(v.Company),
		strings.TrimSpace(v.RegistrationNumber),
		int8Arg(v.VehicleTypeID),
		v.Description,
		dateArg(v.AcquisitionDate),
		dateArg(v.DisposalDate),
	}
}

// conflict builds the ConflictError for a taken registration number,
// echoing the vehicle that holds it when it belongs to the same company.
func (r *fleetRepository) conflict(ctx context.Context, vehicle domain.Vehicle) error {
	registration := strings.TrimSpace(vehicle.RegistrationNumber)
	conflictErr := &domain.ConflictError{Field: string(domain.FieldRegistrationNumber), Value: registration}
	existing, lookupErr := scanVehicle(r.pool.QueryRow(
		ctx,
		`SELECT `+fleetColumns+` FROM fleet WHERE registration_number = $1`,
		registration,
	))
	switch {
	case lookupErr != nil:
		logrus.WithError(lookupErr).Warn("failed to load conflicting vehicle")
	case existing.BelongsTo(vehicle.Company):
		conflictErr.Existing = existing
	}
	return conflictErr
}

// Create inserts a new vehicle
func (r *fleetRepository) Create(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, error) {
	if err := vehicle.Validate(); err != nil {
		return domain.Vehicle{}, err
	}

	created, err := scanVehicle(r.pool.QueryRow(
		ctx,
		`INSERT INTO fleet (company, registration_number, vehicle_type_id, description, acquisition_date, disposal_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+fleetColumns,
		vehicleArgs(vehicle)...,
	))
	if err != nil {
		if isUniqueViolation(err, registrationConstraint) {
			return domain.Vehicle{}, r.conflict(ctx, vehicle)
		}
		return domain.Vehicle{}, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return created, nil
}

// CreateBatch inserts every vehicle in one transaction.
func (r *fleetRepository) CreateBatch(ctx context.Context, vehicles []domain.Vehicle) (int, error) {
	if len(vehicles) == 0 {
		return 0, nil
	}
	for _, vehicle := range vehicles {
		if err := vehicle.Validate(); err != nil {
			return 0, err
		}
	}

	var inserted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		count, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"fleet"},
			fleetCopyColumns,
			pgx.CopyFromSlice(len(vehicles), func(i int) ([]any, error) {
				return vehicleArgs(vehicles[i]), nil
			}),
		)
		if err != nil {
			return err
		}
		inserted = count
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, registrationConstraint) {
			return 0, &domain.ConflictError{Field: string(domain.FieldRegistrationNumber), Value: duplicateRegistration(vehicles)}
		}
		return 0, fmt.Errorf("failed to insert vehicle batch: %w", err)
	}
	return int(inserted), nil
}

// duplicateRegistration names the first number repeated inside the batch,
// if any; otherwise the clash is with an existing row.
func duplicateRegistration(vehicles []domain.Vehicle) string {
	seen := make(map[string]struct{}, len(vehicles))
	for _, vehicle := range vehicles {
		registration := strings.TrimSpace(vehicle.RegistrationNumber)
		if _, ok := seen[registration]; ok {
			return registration
		}
		seen[registration] = struct{}{}
	}
	return ""
}

// GetByID retrieves a vehicle of company by id
func (r *fleetRepository) GetByID(ctx context.Context, company string, id int64) (domain.Vehicle, error) {
	return getVehicle(ctx, r.pool, company, id, false)
}

func getVehicle(ctx context.Context, q querier, company string, id int64, forUpdate bool) (domain.Vehicle, error) {
	query := `SELECT ` + fleetColumns + `
		 FROM fleet
		 WHERE id = $1 AND lower(company) = lower($2)`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	vehicle, err := scanVehicle(q.QueryRow(ctx, query, id, company))
	if err != nil {
		return domain.Vehicle{}, notFound(err, fmt.Sprintf("vehicle %d", id))
	}
	return vehicle, nil
}

// List returns the fleet of company
func (r *fleetRepository) List(ctx context.Context, company string) ([]domain.Vehicle, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+fleetColumns+`
		 FROM fleet
		 WHERE lower(company) = lower($1)
		 ORDER BY id`,
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fleet: %w", err)
	}
	defer rows.Close()

	vehicles := []domain.Vehicle{}
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fleet: %w", err)
	}
	return vehicles, nil
}

// Update locks the current row, logs every changed tracked field and writes
// the new row in a single transaction.
func (r *fleetRepository) Update(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, []domain.ChangeLogEntry, error) {
	if err := vehicle.Validate(); err != nil {
		return domain.Vehicle{}, nil, err
	}

	var (
		updated domain.Vehicle
		logged  []domain.ChangeLogEntry
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		before, err := getVehicle(ctx, tx, vehicle.Company, vehicle.ID, true)
		if err != nil {
			return err
		}

		now := r.now().UTC()
		changes := domain.DiffSnapshots(domain.FleetTrackedFields, before.Snapshot(), vehicle.Snapshot())
		logged, err = fleetChangeLog.append(ctx, tx, domain.ChangeLogEntries(before.ID, changes, now))
		if err != nil {
			return err
		}

		args := append(vehicleArgs(vehicle)[1:], now, before.ID)
		updated, err = scanVehicle(tx.QueryRow(
			ctx,
			`UPDATE fleet
			 SET registration_number = $1, vehicle_type_id = $2, description = $3,
			     acquisition_date = $4, disposal_date = $5, updated_at = $6
			 WHERE id = $7
			 RETURNING `+fleetColumns,
			args...,
		))
		return err
	})
	if err != nil {
		if domain.IsValidation(err) || isNotFound(err) {
			return domain.Vehicle{}, nil, err
		}
		if isUniqueViolation(err, registrationConstraint) {
			return domain.Vehicle{}, nil, r.conflict(ctx, vehicle)
		}
		return domain.Vehicle{}, nil, fmt.Errorf("failed to update vehicle: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"fleet_id": updated.ID,
		"changes":  len(logged),
	}).Debug("vehicle updated")
	return updated, logged, nil
}

// Delete removes the vehicle row; its change log rows are kept.
func (r *fleetRepository) Delete(ctx context.Context, company string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fleet WHERE id = $1 AND lower(company) = lower($2)`, id, company)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// History returns the change log of one vehicle, newest first.
func (r *fleetRepository) History(ctx context.Context, company string, id int64) ([]domain.ChangeLogEntry, error) {
	if _, err := r.GetByID(ctx, company, id); err != nil {
		return nil, err
	}
	return fleetChangeLog.forEntity(ctx, r.pool, id)
}

// ListChangeLog returns the log rows of fields for every vehicle of company.
func (r *fleetRepository) ListChangeLog(ctx context.Context, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error) {
	return fleetChangeLog.forCompany(ctx, r.pool, company, fields)
}
