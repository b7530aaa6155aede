package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pnl_forecast/pkg/core/assumption"
	"pnl_forecast/pkg/core/calc"
)

// Schema assumption (owned by the ledger application):
//
//	categories(id TEXT, tenant_id TEXT, kind TEXT, fixed_cost BOOL, variable_cost BOOL)
//	transactions(id, tenant_id TEXT, occurred_on DATE, amount NUMERIC, category_id TEXT NULL)
//	forecast_assumptions(tenant_id TEXT, month TEXT, revenue_growth_rate NUMERIC NULL, ...)

// LedgerRepo reads the inputs of a forecast for one tenant.
type LedgerRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewLedgerRepo creates a repository. A positive timeout bounds every query.
func NewLedgerRepo(db *sql.DB, timeout time.Duration) *LedgerRepo {
	return &LedgerRepo{db: db, timeout: timeout}
}

func (r *LedgerRepo) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Categories returns the P&L categories of tenantID.
func (r *LedgerRepo) Categories(ctx context.Context, tenantID string) ([]calc.Category, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotConfigured
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		SELECT id, kind, fixed_cost, variable_cost
		FROM categories
		WHERE tenant_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []calc.Category
	for rows.Next() {
		var c calc.Category
		var kind string
		if err := rows.Scan(&c.ID, &kind, &c.FixedCost, &c.VariableCost); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Kind = calc.CategoryKind(kind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return out, nil
}

// Transactions returns the transactions of tenantID dated in the months
// [from, to), oldest first.
func (r *LedgerRepo) Transactions(ctx context.Context, tenantID string, from, to calc.Month) ([]calc.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotConfigured
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		SELECT to_char(occurred_on, 'YYYY-MM-DD'), amount::float8, category_id
		FROM transactions
		WHERE tenant_id = $1 AND occurred_on >= $2 AND occurred_on < $3
		ORDER BY occurred_on, id`

	rows, err := r.db.QueryContext(ctx, query, tenantID, firstDay(from), firstDay(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []calc.Transaction
	for rows.Next() {
		var tx calc.Transaction
		var categoryID sql.NullString
		if err := rows.Scan(&tx.Date, &tx.Amount, &categoryID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.String
			tx.CategoryID = &id
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return out, nil
}

// Assumptions returns the stored overrides of tenantID for month, or nil
// when none were saved.
func (r *LedgerRepo) Assumptions(ctx context.Context, tenantID, month string) (*assumption.Input, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotConfigured
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	query := `
		SELECT revenue_growth_rate, revenue_amount, cogs_percent,
		       fixed_opex, variable_opex_percent, one_off_amount
		FROM forecast_assumptions
		WHERE tenant_id = $1 AND month = $2`

	var vals [6]sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, tenantID, month).Scan(
		&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5],
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assumptions: %w", err)
	}

	return &assumption.Input{
		RevenueGrowthRate:   nullable(vals[0]),
		RevenueAmount:       nullable(vals[1]),
		COGSPercent:         nullable(vals[2]),
		FixedOpex:           nullable(vals[3]),
		VariableOpexPercent: nullable(vals[4]),
		OneOffAmount:        nullable(vals[5]),
	}, nil
}

func firstDay(m calc.Month) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
