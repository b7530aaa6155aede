// Package projection turns a ledger into a monthly P&L forecast: it builds
// the history window, selects a revenue model, estimates cost drivers and
// assembles the projected rows.
package projection

import (
	"encoding/json"
	"math"

	"pnl_forecast/pkg/core/assumption"
	"pnl_forecast/pkg/core/calc"
	"pnl_forecast/pkg/core/forecast"
)

// Request is the engine input. Horizon accepts a JSON number or string.
type Request struct {
	TargetMonth  string             `json:"target_month"` // YYYY-MM
	Horizon      Horizon            `json:"horizon"`
	Categories   []calc.Category    `json:"categories"`
	Transactions []calc.Transaction `json:"transactions"`
	Assumptions  *assumption.Input  `json:"assumptions,omitempty"`
}

// Horizon is a requested projection length. Values outside {3, 6, 12} are
// coerced when the request is computed, never rejected.
type Horizon int

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else
// decodes to zero, which later resolves to the default horizon.
func (h *Horizon) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > math.MaxInt32 {
			*h = 0
			return nil
		}
		*h = Horizon(int(t))
	case string:
		*h = Horizon(ParseHorizon(t))
	default:
		*h = 0
	}
	return nil
}

// Projection is one forecast month of the P&L.
type Projection struct {
	Month              string  `json:"month"`
	Revenue            float64 `json:"revenue"`
	COGS               float64 `json:"cogs"`
	Opex               float64 `json:"opex"`
	EBIT               float64 `json:"ebit"`
	OperatingMarginPct float64 `json:"operating_margin_pct"`
}

// ModelDiagnostics explains which revenue model was used and why.
type ModelDiagnostics struct {
	Selected         string               `json:"selected"`
	ValidationMAPE   *float64             `json:"validation_mape_pct"`
	ValidationWindow int                  `json:"validation_window"`
	HistoryPoints    int                  `json:"history_points"`
	Candidates       []forecast.Candidate `json:"candidates"`
	FallbackReason   string               `json:"fallback_reason,omitempty"`
}

// HistorySummary describes the lookback window the forecast was built on.
type HistorySummary struct {
	LookbackMonths        int     `json:"lookback_months"`
	WindowStart           string  `json:"window_start"`
	WindowEnd             string  `json:"window_end"`
	MonthsWithData        int     `json:"months_with_data"`
	TransactionsUsed      int     `json:"transactions_used"`
	TransactionsSkipped   int     `json:"transactions_skipped"`
	TotalRevenue          float64 `json:"total_revenue"`
	TotalCOGS             float64 `json:"total_cogs"`
	TotalOpex             float64 `json:"total_opex"`
	AverageMonthlyRevenue float64 `json:"average_monthly_revenue"`
}

// Result is the full forecast for one request. It is derived data and is
// recomputed on every call.
type Result struct {
	TargetMonth string                  `json:"target_month"`
	Horizon     int                     `json:"horizon"`
	Model       ModelDiagnostics        `json:"model"`
	Drivers     assumption.DriverBundle `json:"drivers"`
	Projections []Projection            `json:"projections"`
	History     HistorySummary          `json:"history"`
	ItemsUsed   []string                `json:"items_used"`
}
