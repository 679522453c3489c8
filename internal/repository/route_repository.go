package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/esgdash/internal/domain"
)

const routeColumns = `id, company, fleet_id, route_date, distance_km::text, description`

type routeRepository struct {
	pool *pgxpool.Pool
}

// NewRouteRepository wires a repository backed by pgxpool.
func NewRouteRepository(pool *pgxpool.Pool) RouteRepository {
	return &routeRepository{pool: pool}
}

func scanRoute(row rowScanner) (domain.Route, error) {
	var (
		route     domain.Route
		routeDate pgtype.Date
		distance  pgtype.Text
	)
	if err := row.Scan(&route.ID, &route.Company, &route.FleetID, &routeDate, &distance, &route.Description); err != nil {
		return domain.Route{}, err
	}
	if d := dateValue(routeDate); d != nil {
		route.RouteDate = *d
	}
	value, err := decimalValue(distance)
	if err != nil {
		return domain.Route{}, fmt.Errorf("invalid distance: %w", err)
	}
	route.DistanceKm = value
	return route, nil
}

// Create inserts a route driven by a vehicle of the same company.
func (r *routeRepository) Create(ctx context.Context, route domain.Route) (domain.Route, error) {
	if err := route.Validate(); err != nil {
		return domain.Route{}, err
	}

	if _, err := getVehicle(ctx, r.pool, route.Company, route.FleetID, false); err != nil {
		if isNotFound(err) {
			return domain.Route{}, &domain.ValidationError{
				Fields:  []string{"fleet_id"},
				Message: fmt.Sprintf("vehicle %d does not belong to %s", route.FleetID, route.Company),
			}
		}
		return domain.Route{}, err
	}

	created, err := scanRoute(r.pool.QueryRow(
		ctx,
		`INSERT INTO routes (company, fleet_id, route_date, distance_km, description)
		 VALUES ($1, $2, $3, $4::numeric, $5)
		 RETURNING `+routeColumns,
		strings.TrimSpace(route.Company),
		route.FleetID,
		route.RouteDate.Time,
		route.DistanceKm.String(),
		route.Description,
	))
	if err != nil {
		return domain.Route{}, fmt.Errorf("failed to create route: %w", err)
	}
	return created, nil
}

// List returns the routes of company
func (r *routeRepository) List(ctx context.Context, company string) ([]domain.Route, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+routeColumns+`
		 FROM routes
		 WHERE lower(company) = lower($1)
		 ORDER BY route_date, id`,
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	routes := []domain.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routes: %w", err)
	}
	return routes, nil
}

// Delete removes a route
func (r *routeRepository) Delete(ctx context.Context, company string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1 AND lower(company) = lower($2)`, id, company)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("route %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
