package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/esgdash/internal/domain"
)

const billColumns = `id, company, utility_id, period_start, period_end,
	consumption::text, cost::text, document_key, created_at`

type billRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository wires a repository backed by pgxpool.
func NewBillRepository(pool *pgxpool.Pool) BillRepository {
	return &billRepository{pool: pool}
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		bill        domain.Bill
		periodStart pgtype.Date
		periodEnd   pgtype.Date
		consumption pgtype.Text
		cost        pgtype.Text
		documentKey pgtype.Text
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&bill.ID,
		&bill.Company,
		&bill.UtilityID,
		&periodStart,
		&periodEnd,
		&consumption,
		&cost,
		&documentKey,
		&createdAt,
	); err != nil {
		return domain.Bill{}, err
	}

	if d := dateValue(periodStart); d != nil {
		bill.PeriodStart = *d
	}
	if d := dateValue(periodEnd); d != nil {
		bill.PeriodEnd = *d
	}
	var err error
	if bill.Consumption, err = decimalValue(consumption); err != nil {
		return domain.Bill{}, fmt.Errorf("invalid consumption: %w", err)
	}
	if bill.Cost, err = decimalValue(cost); err != nil {
		return domain.Bill{}, fmt.Errorf("invalid cost: %w", err)
	}
	bill.DocumentKey = textValue(documentKey)
	if createdAt.Valid {
		bill.CreatedAt = createdAt.Time
	}
	return bill, nil
}

// Create inserts a utility bill
func (r *billRepository) Create(ctx context.Context, bill domain.Bill) (domain.Bill, error) {
	if err := bill.Validate(); err != nil {
		return domain.Bill{}, err
	}

	created, err := scanBill(r.pool.QueryRow(
		ctx,
		`INSERT INTO bills (company, utility_id, period_start, period_end, consumption, cost, document_key)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
		 RETURNING `+billColumns,
		strings.TrimSpace(bill.Company),
		bill.UtilityID,
		bill.PeriodStart.Time,
		bill.PeriodEnd.Time,
		bill.Consumption.String(),
		bill.Cost.String(),
		textArg(bill.DocumentKey),
	))
	if err != nil {
		return domain.Bill{}, fmt.Errorf("failed to create bill: %w", err)
	}
	return created, nil
}

// GetByID retrieves a bill of company by id
func (r *billRepository) GetByID(ctx context.Context, company string, id int64) (domain.Bill, error) {
	bill, err := scanBill(r.pool.QueryRow(
		ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE id = $1 AND lower(company) = lower($2)`,
		id,
		company,
	))
	if err != nil {
		return domain.Bill{}, notFound(err, fmt.Sprintf("bill %d", id))
	}
	return bill, nil
}

// List returns the bills of company
func (r *billRepository) List(ctx context.Context, company string) ([]domain.Bill, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE lower(company) = lower($1)
		 ORDER BY period_start, id`,
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	bills := []domain.Bill{}
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

// Update overwrites a bill
func (r *billRepository) Update(ctx context.Context, bill domain.Bill) (domain.Bill, error) {
	if err := bill.Validate(); err != nil {
		return domain.Bill{}, err
	}

	updated, err := scanBill(r.pool.QueryRow(
		ctx,
		`UPDATE bills
		 SET utility_id = $3, period_start = $4, period_end = $5,
		     consumption = $6::numeric, cost = $7::numeric, document_key = $8
		 WHERE id = $1 AND lower(company) = lower($2)
		 RETURNING `+billColumns,
		bill.ID,
		bill.Company,
		bill.UtilityID,
		bill.PeriodStart.Time,
		bill.PeriodEnd.Time,
		bill.Consumption.String(),
		bill.Cost.String(),
		textArg(bill.DocumentKey),
	))
	if err != nil {
		if err = notFound(err, fmt.Sprintf("bill %d", bill.ID)); isNotFound(err) {
			return domain.Bill{}, err
		}
		return domain.Bill{}, fmt.Errorf("failed to update bill: %w", err)
	}
	return updated, nil
}

// Delete removes a bill
func (r *billRepository) Delete(ctx context.Context, company string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bills WHERE id = $1 AND lower(company) = lower($2)`, id, company)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
