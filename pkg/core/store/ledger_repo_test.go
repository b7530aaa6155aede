package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnl_forecast/pkg/core/calc"
)

func newMockRepo(t *testing.T) (*LedgerRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerRepo(db, time.Second), mock
}

func TestLedgerRepo_Categories(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "kind", "fixed_cost", "variable_cost"}).
		AddRow("cat-rent", "opex", true, false).
		AddRow("cat-sales", "revenue", false, false).
		AddRow("cat-shipping", "opex", false, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories")).
		WithArgs("tenant-1").
		WillReturnRows(rows)

	got, err := repo.Categories(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, []calc.Category{
		{ID: "cat-rent", Kind: calc.KindOpex, FixedCost: true},
		{ID: "cat-sales", Kind: calc.KindRevenue},
		{ID: "cat-shipping", Kind: calc.KindOpex, VariableCost: true},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_CategoriesQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM categories").WillReturnError(errors.New("connection reset"))

	_, err := repo.Categories(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestLedgerRepo_Transactions(t *testing.T) {
	repo, mock := newMockRepo(t)

	from := calc.Month{Year: 2021, Month: time.January}
	to := calc.Month{Year: 2024, Month: time.January}
	rows := sqlmock.NewRows([]string{"date", "amount", "category_id"}).
		AddRow("2023-05-02", 1500.5, "cat-sales").
		AddRow("2023-05-03", -20.0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WithArgs("tenant-1", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(rows)

	got, err := repo.Transactions(context.Background(), "tenant-1", from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2023-05-02", got[0].Date)
	assert.Equal(t, 1500.5, got[0].Amount)
	require.NotNil(t, got[0].CategoryID)
	assert.Equal(t, "cat-sales", *got[0].CategoryID)
	assert.Nil(t, got[1].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_TransactionsRowError(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"date", "amount", "category_id"}).
		AddRow("2023-05-02", 10.0, "cat-sales").
		RowError(0, errors.New("bad row"))
	mock.ExpectQuery("FROM transactions").WillReturnRows(rows)

	_, err := repo.Transactions(context.Background(), "tenant-1", calc.Month{Year: 2023, Month: 1}, calc.Month{Year: 2024, Month: 1})
	assert.Error(t, err)
}

func TestLedgerRepo_Assumptions(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"revenue_growth_rate", "revenue_amount", "cogs_percent",
		"fixed_opex", "variable_opex_percent", "one_off_amount",
	}).AddRow(5.0, nil, 35.0, nil, nil, 1200.0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forecast_assumptions")).
		WithArgs("tenant-1", "2024-01").
		WillReturnRows(rows)

	in, err := repo.Assumptions(context.Background(), "tenant-1", "2024-01")
	require.NoError(t, err)
	require.NotNil(t, in)
	require.NotNil(t, in.RevenueGrowthRate)
	assert.Equal(t, 5.0, *in.RevenueGrowthRate)
	assert.Nil(t, in.RevenueAmount)
	assert.Equal(t, 35.0, *in.COGSPercent)
	assert.Nil(t, in.FixedOpex)
	assert.Nil(t, in.VariableOpexPercent)
	assert.Equal(t, 1200.0, *in.OneOffAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_AssumptionsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM forecast_assumptions").
		WithArgs("tenant-1", "2024-01").
		WillReturnRows(sqlmock.NewRows([]string{"revenue_growth_rate"}))

	in, err := repo.Assumptions(context.Background(), "tenant-1", "2024-01")
	require.NoError(t, err)
	assert.Nil(t, in)
}

func TestLedgerRepo_NotConfigured(t *testing.T) {
	var repo *LedgerRepo
	ctx := context.Background()

	_, err := repo.Categories(ctx, "t")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewLedgerRepo(nil, 0).Transactions(ctx, "t", calc.Month{}, calc.Month{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = repo.Assumptions(ctx, "t", "2024-01")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenWithoutURL(t *testing.T) {
	_, err := Open(context.Background(), "", Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
