package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/esgdash/internal/domain"
)

// changeLogStore reads and appends rows of one *_update_log table. The log
// has no foreign key to its entity table so rows survive entity deletion.
type changeLogStore struct {
	table        string
	entityColumn string
	entityTable  string
}

var (
	employeeChangeLog = changeLogStore{table: "employee_update_log", entityColumn: "employee_id", entityTable: "employee"}
	fleetChangeLog    = changeLogStore{table: "fleet_update_log", entityColumn: "fleet_id", entityTable: "fleet"}
)

// append inserts one row per change and fills in the generated ids.
func (s changeLogStore) append(ctx context.Context, q querier, entries []domain.ChangeLogEntry) ([]domain.ChangeLogEntry, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (%s, changed_field, old_value, new_value, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.table, s.entityColumn,
	)

	stored := make([]domain.ChangeLogEntry, len(entries))
	for i, entry := range entries {
		if err := q.QueryRow(
			ctx,
			query,
			entry.EntityID,
			string(entry.Field),
			textArg(entry.OldValue),
			textArg(entry.NewValue),
			entry.UpdatedAt,
		).Scan(&entry.ID); err != nil {
			return nil, fmt.Errorf("failed to record %s change: %w", entry.Field, err)
		}
		stored[i] = entry
	}
	return stored, nil
}

// forEntity returns the log of one entity, newest first.
func (s changeLogStore) forEntity(ctx context.Context, q querier, entityID int64) ([]domain.ChangeLogEntry, error) {
	query := fmt.Sprintf(
		`SELECT id, %[2]s, changed_field, old_value, new_value, updated_at
		 FROM %[1]s
		 WHERE %[2]s = $1
		 ORDER BY updated_at DESC, id DESC`,
		s.table, s.entityColumn,
	)
	return s.query(ctx, q, query, entityID)
}

// forCompany returns the log rows of fields for every live entity of company,
// ordered for replay.
func (s changeLogStore) forCompany(ctx context.Context, q querier, company string, fields []domain.TrackedField) ([]domain.ChangeLogEntry, error) {
	query := fmt.Sprintf(
		`SELECT l.id, l.%[2]s, l.changed_field, l.old_value, l.new_value, l.updated_at
		 FROM %[1]s l
		 JOIN %[3]s e ON e.id = l.%[2]s
		 WHERE lower(e.company) = lower($1)
		   AND l.changed_field = ANY($2)
		 ORDER BY l.%[2]s, l.changed_field, l.updated_at, l.id`,
		s.table, s.entityColumn, s.entityTable,
	)
	return s.query(ctx, q, query, company, fieldNames(fields))
}

func (s changeLogStore) query(ctx context.Context, q querier, query string, args ...any) ([]domain.ChangeLogEntry, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	entries := []domain.ChangeLogEntry{}
	for rows.Next() {
		var (
			entry     domain.ChangeLogEntry
			field     string
			oldValue  pgtype.Text
			newValue  pgtype.Text
			updatedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&entry.ID, &entry.EntityID, &field, &oldValue, &newValue, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", s.table, err)
		}
		entry.Field = domain.TrackedField(field)
		entry.OldValue = textValue(oldValue)
		entry.NewValue = textValue(newValue)
		if updatedAt.Valid {
			entry.UpdatedAt = updatedAt.Time
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", s.table, err)
	}
	return entries, nil
}
