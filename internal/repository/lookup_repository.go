package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/esgdash/internal/domain"
)

// lookupSelects selects every reference table into the same column shape.
var lookupSelects = map[domain.LookupKind]string{
	domain.LookupEducation:          `SELECT id, name, false, '', NULL::text, '' FROM education`,
	domain.LookupGender:             `SELECT id, name, false, '', NULL::text, '' FROM gender`,
	domain.LookupManagerialPosition: `SELECT id, name, is_manager, '', NULL::text, '' FROM managerial_position`,
	domain.LookupPosition:           `SELECT id, name, false, '', NULL::text, '' FROM position`,
	domain.LookupMaritalStatus:      `SELECT id, name, false, '', NULL::text, '' FROM marital_status`,
	domain.LookupVehicleType:        `SELECT id, name, false, fuel_type, co2_g_per_km::text, '' FROM vehicle_type`,
	domain.LookupUtility:            `SELECT id, name, false, '', NULL::text, unit FROM utilities`,
}

type lookupRepository struct {
	pool *pgxpool.Pool
}

// NewLookupRepository wires a repository backed by pgxpool.
func NewLookupRepository(pool *pgxpool.Pool) LookupRepository {
	return &lookupRepository{pool: pool}
}

func lookupSelect(kind domain.LookupKind) (string, error) {
	query, ok := lookupSelects[kind]
	if !ok {
		return "", &domain.ValidationError{Fields: []string{"kind"}, Message: fmt.Sprintf("unknown lookup kind %q", kind)}
	}
	return query, nil
}

// List returns every row of the table, ordered by id
func (r *lookupRepository) List(ctx context.Context, kind domain.LookupKind) ([]domain.Lookup, error) {
	query, err := lookupSelect(kind)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, kind, query+` ORDER BY id`)
}

// GetByIDs returns the rows with the given ids keyed by id; unknown ids are
// absent from the result.
func (r *lookupRepository) GetByIDs(ctx context.Context, kind domain.LookupKind, ids []int64) (map[int64]domain.Lookup, error) {
	result := make(map[int64]domain.Lookup, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, err := lookupSelect(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, kind, query+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}

func (r *lookupRepository) query(ctx context.Context, kind domain.LookupKind, query string, args ...any) ([]domain.Lookup, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s lookups: %w", kind, err)
	}
	defer rows.Close()

	lookups := []domain.Lookup{}
	for rows.Next() {
		var (
			lookup domain.Lookup
			co2    pgtype.Text
		)
		if err := rows.Scan(&lookup.ID, &lookup.Name, &lookup.IsManager, &lookup.FuelType, &co2, &lookup.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan %s lookup: %w", kind, err)
		}
		if co2.Valid {
			value, err := decimalValue(co2)
			if err != nil {
				return nil, fmt.Errorf("invalid emission factor for %s: %w", lookup.Name, err)
			}
			lookup.CO2PerKm = &value
		}
		lookups = append(lookups, lookup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s lookups: %w", kind, err)
	}
	return lookups, nil
}
