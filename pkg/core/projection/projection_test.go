package projection

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnl_forecast/pkg/core/assumption"
	"pnl_forecast/pkg/core/calc"
	"pnl_forecast/pkg/core/forecast"
	"pnl_forecast/pkg/core/logger"
)

func ptr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

var ledgerCategories = []calc.Category{
	{ID: "sales", Kind: calc.KindRevenue},
	{ID: "materials", Kind: calc.KindCOGS},
	{ID: "rent", Kind: calc.KindOpex, FixedCost: true},
}

// seasonalLedger books 24 months of seasonal revenue ending the month
// before 2024-01, with COGS at 30% and fixed rent of 1000.
func seasonalLedger() []calc.Transaction {
	var txs []calc.Transaction
	start := calc.Month{Year: 2022, Month: time.January}
	for t := 0; t < 24; t++ {
		m := start.Add(t).String()
		rev := (1000 + 20*float64(t)) * (1 + 0.3*math.Sin(2*math.Pi*float64(t)/12))
		txs = append(txs,
			calc.Transaction{Date: m + "-05", Amount: rev, CategoryID: strPtr("sales")},
			calc.Transaction{Date: m + "-10", Amount: -rev * 0.3, CategoryID: strPtr("materials")},
			calc.Transaction{Date: m + "-01", Amount: -1000, CategoryID: strPtr("rent")},
		)
	}
	return txs
}

func fixedClock() time.Time {
	return time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
}

func TestAssemble_RevenueOverrides(t *testing.T) {
	in := assumption.Input{RevenueAmount: ptr(50000), RevenueGrowthRate: ptr(5)}
	d := assumption.EstimateDrivers(nil, in)
	rows := Assemble(calc.Month{Year: 2024, Month: time.January}, []float64{1, 2, 3}, d, in)

	require.Len(t, rows, 3)
	assert.Equal(t, []float64{50000, 52500, 55125}, []float64{rows[0].Revenue, rows[1].Revenue, rows[2].Revenue})
	assert.Equal(t, []string{"2024-02", "2024-03", "2024-04"}, []string{rows[0].Month, rows[1].Month, rows[2].Month})
}

func TestAssemble_GrowthCompoundsFromForecast(t *testing.T) {
	in := assumption.Input{RevenueGrowthRate: ptr(10)}
	rows := Assemble(calc.Month{Year: 2024, Month: time.January}, []float64{1000, 0, 0}, assumption.DriverBundle{}, in)

	assert.Equal(t, 1000.0, rows[0].Revenue)
	assert.Equal(t, 1100.0, rows[1].Revenue)
	assert.Equal(t, 1210.0, rows[2].Revenue)
}

func TestAssemble_CostsAndMargin(t *testing.T) {
	d := assumption.DriverBundle{COGSPercent: 35, FixedOpex: 9000, VariableOpexPercent: 8, OneOffAmount: 1200}
	rows := Assemble(calc.Month{Year: 2024, Month: time.June}, []float64{50000, 50000}, d, assumption.Input{})

	require.Len(t, rows, 2)
	assert.Equal(t, Projection{
		Month:              "2024-07",
		Revenue:            50000,
		COGS:               17500,
		Opex:               14200,
		EBIT:               18300,
		OperatingMarginPct: 36.6,
	}, rows[0])

	// The one-off only hits the first month.
	assert.Equal(t, 13000.0, rows[1].Opex)
	assert.Equal(t, 19500.0, rows[1].EBIT)
	assert.Equal(t, 39.0, rows[1].OperatingMarginPct)
}

func TestAssemble_ZeroRevenueMargin(t *testing.T) {
	d := assumption.DriverBundle{FixedOpex: 500}
	rows := Assemble(calc.Month{Year: 2024, Month: time.June}, []float64{0}, d, assumption.Input{})

	assert.Equal(t, 0.0, rows[0].OperatingMarginPct)
	assert.Equal(t, -500.0, rows[0].EBIT)
}

func TestAssemble_EBITIdentity(t *testing.T) {
	d := assumption.DriverBundle{COGSPercent: 33.333, FixedOpex: 1234.567, VariableOpexPercent: 7.77}
	rows := Assemble(calc.Month{Year: 2024, Month: time.June}, []float64{9876.543, 12345.678, 0.01}, d, assumption.Input{})

	for _, r := range rows {
		assert.InDelta(t, r.Revenue-r.COGS-r.Opex, r.EBIT, 1e-6, r.Month)
	}
}

func TestHorizonCoercion(t *testing.T) {
	for _, h := range []int{7, -1, 0, 24} {
		assert.Equal(t, 6, NormalizeHorizon(h), "h=%d", h)
	}
	for _, h := range []int{3, 6, 12} {
		assert.Equal(t, h, NormalizeHorizon(h))
	}
	assert.Equal(t, 6, ParseHorizon("abc"))
	assert.Equal(t, 6, ParseHorizon(""))
	assert.Equal(t, 12, ParseHorizon(" 12 "))
}

func TestHorizonUnmarshal(t *testing.T) {
	cases := map[string]int{
		`{"horizon": 3}`:     3,
		`{"horizon": "12"}`:  12,
		`{"horizon": "abc"}`: 6,
		`{"horizon": 7}`:     6,
		`{"horizon": -1}`:    6,
		`{"horizon": 12.5}`:  6,
		`{"horizon": null}`:  6,
		`{}`:                 6,
	}
	e := NewEngine(DefaultConfig(), WithClock(fixedClock))
	for body, want := range cases {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		res := e.Compute(req)
		assert.Equal(t, want, res.Horizon, body)
		assert.Len(t, res.Projections, want, body)
	}
}

func TestCompute_OverridesOnEmptyLedger(t *testing.T) {
	e := NewEngine(DefaultConfig(), WithLogger(logger.NewTest(t)))
	res := e.Compute(Request{
		TargetMonth: "2024-01",
		Horizon:     3,
		Assumptions: &assumption.Input{RevenueAmount: ptr(50000), RevenueGrowthRate: ptr(5)},
	})

	require.Len(t, res.Projections, 3)
	assert.Equal(t, 50000.0, res.Projections[0].Revenue)
	assert.Equal(t, 52500.0, res.Projections[1].Revenue)
	assert.Equal(t, 55125.0, res.Projections[2].Revenue)
	assert.Equal(t, forecast.NameManual, res.Model.Selected)
	assert.Nil(t, res.Model.ValidationMAPE)
	assert.Equal(t, []string{
		"revenue_model:manual_assumptions",
		"assumption:revenue_growth_rate",
		"assumption:revenue_amount",
	}, res.ItemsUsed)
}

func TestCompute_SeasonalHistory(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res := e.Compute(Request{
		TargetMonth:  "2024-01",
		Horizon:      6,
		Categories:   ledgerCategories,
		Transactions: seasonalLedger(),
	})

	assert.NotEqual(t, forecast.NameManual, res.Model.Selected)
	require.NotNil(t, res.Model.ValidationMAPE)
	assert.Less(t, *res.Model.ValidationMAPE, 15.0)
	assert.Equal(t, 24, res.Model.HistoryPoints)
	assert.Equal(t, 4, res.Model.ValidationWindow)

	assert.Equal(t, 36, res.History.LookbackMonths)
	assert.Equal(t, "2021-01", res.History.WindowStart)
	assert.Equal(t, "2023-12", res.History.WindowEnd)
	assert.Equal(t, 24, res.History.MonthsWithData)
	assert.Equal(t, 72, res.History.TransactionsUsed)
	assert.Equal(t, 0, res.History.TransactionsSkipped)
	assert.Equal(t, 24000.0, res.History.TotalOpex)

	assert.InDelta(t, 30, res.Drivers.COGSPercent, 1e-9)
	assert.InDelta(t, 1000, res.Drivers.FixedOpex, 1e-9)
	assert.Equal(t, assumption.SourceDefaultZero, res.Drivers.Sources[assumption.DriverVariableOpexPercent])

	require.Len(t, res.Projections, 6)
	assert.Equal(t, "2024-02", res.Projections[0].Month)
	for _, p := range res.Projections {
		assert.Greater(t, p.Revenue, 0.0)
		assert.InDelta(t, p.Revenue-p.COGS-p.Opex, p.EBIT, 1e-6)
	}

	assert.Equal(t, []string{
		"transactions",
		"categories",
		"monthly_aggregates",
		"revenue_model:" + res.Model.Selected,
		"historical:cogs_percent",
		"historical:fixed_opex",
	}, res.ItemsUsed)
}

func TestCompute_SparseHistory(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res := e.Compute(Request{
		TargetMonth: "2024-01",
		Horizon:     3,
		Categories:  ledgerCategories,
		Transactions: []calc.Transaction{
			{Date: "2023-06-15", Amount: 1200, CategoryID: strPtr("sales")},
			{Date: "2023-11-15", Amount: 1500, CategoryID: strPtr("sales")},
			{Date: "2024-01-02", Amount: 999, CategoryID: strPtr("sales")},
			{Date: "2023-11-20", Amount: 10, CategoryID: nil},
		},
	})

	assert.Equal(t, forecast.NameManual, res.Model.Selected)
	assert.Nil(t, res.Model.ValidationMAPE)
	assert.Equal(t, forecast.ReasonInsufficientHistory, res.Model.FallbackReason)
	assert.Equal(t, 2, res.History.MonthsWithData)
	assert.Equal(t, 2, res.History.TransactionsUsed)
	assert.Equal(t, 2, res.History.TransactionsSkipped)
	assert.Equal(t, 2700.0, res.History.TotalRevenue)
	assert.Equal(t, 1350.0, res.History.AverageMonthlyRevenue)
	assert.Len(t, res.Projections, 3)
}

func TestCompute_MalformedMonthUsesClock(t *testing.T) {
	e := NewEngine(DefaultConfig(), WithClock(fixedClock))
	res := e.Compute(Request{TargetMonth: "May 2024", Horizon: 3})

	assert.Equal(t, "2024-05", res.TargetMonth)
	assert.Equal(t, "2024-06", res.Projections[0].Month)
	assert.Equal(t, "2024-04", res.History.WindowEnd)
}

func TestCompute_IsDeterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	req := Request{
		TargetMonth:  "2024-01",
		Horizon:      12,
		Categories:   ledgerCategories,
		Transactions: seasonalLedger(),
		Assumptions:  &assumption.Input{OneOffAmount: ptr(250)},
	}
	assert.Equal(t, e.Compute(req), e.Compute(req))
	assert.Equal(t, e.Compute(req), NewEngine(DefaultConfig()).Compute(req))
}

type recordingObserver struct {
	models []string
}

func (r *recordingObserver) ObserveForecast(sel forecast.Selection, _ time.Duration) {
	r.models = append(r.models, sel.Model)
}

func TestCompute_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(DefaultConfig(), WithObserver(obs))
	e.Compute(Request{TargetMonth: "2024-01"})
	e.Compute(Request{TargetMonth: "2024-01", Categories: ledgerCategories, Transactions: seasonalLedger()})

	require.Len(t, obs.models, 2)
	assert.Equal(t, forecast.NameManual, obs.models[0])
	assert.NotEqual(t, forecast.NameManual, obs.models[1])
}

func TestCompute_CustomRegistry(t *testing.T) {
	e := NewEngine(DefaultConfig(), WithRegistry(forecast.NewRegistry()))
	res := e.Compute(Request{TargetMonth: "2024-01", Categories: ledgerCategories, Transactions: seasonalLedger()})

	assert.Equal(t, forecast.NameManual, res.Model.Selected)
	assert.Equal(t, forecast.ReasonNoValidCandidate, res.Model.FallbackReason)
	assert.Empty(t, res.Model.Candidates)
}

func TestResultJSONShape(t *testing.T) {
	res := NewEngine(DefaultConfig()).Compute(Request{TargetMonth: "2024-01", Horizon: 3})
	b, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"model", "drivers", "projections", "history", "items_used"} {
		assert.Contains(t, m, key)
	}
	model := m["model"].(map[string]interface{})
	assert.Contains(t, model, "validation_mape_pct")
	assert.Nil(t, model["validation_mape_pct"])
	assert.Equal(t, fmt.Sprint(3), fmt.Sprint(m["horizon"]))
}
