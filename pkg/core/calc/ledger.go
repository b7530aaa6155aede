package calc

import "math"

// CategoryKind classifies a ledger category for P&L purposes.
type CategoryKind string

const (
	KindRevenue CategoryKind = "revenue"
	KindCOGS    CategoryKind = "cogs"
	KindOpex    CategoryKind = "opex"
)

// Category is the subset of a ledger category the aggregator needs.
type Category struct {
	ID           string       `json:"id"`
	Kind         CategoryKind `json:"kind"`
	FixedCost    bool         `json:"fixed_cost"`
	VariableCost bool         `json:"variable_cost"`
}

// Transaction is a single dated ledger movement. CategoryID is nil for
// uncategorised entries.
type Transaction struct {
	Date       string  `json:"date"` // YYYY-MM-DD (only the YYYY-MM prefix is used)
	Amount     float64 `json:"amount"`
	CategoryID *string `json:"category_id"`
}

// MonthlyAggregate holds the P&L totals for one calendar month.
type MonthlyAggregate struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	COGS         float64 `json:"cogs"`
	Opex         float64 `json:"opex"`
	FixedOpex    float64 `json:"fixed_opex"`
	VariableOpex float64 `json:"variable_opex"`
}

// HasData reports whether any P&L activity was booked in the month.
func (a MonthlyAggregate) HasData() bool {
	return a.Revenue != 0 || a.COGS != 0 || a.Opex != 0
}

// History is the aggregated lookback window handed to the forecast engine.
type History struct {
	Aggregates       []MonthlyAggregate
	MonthsWithData   int
	TransactionsUsed int
	Skipped          int
}

// BuildMonthlyAggregates folds transactions into one aggregate per month of
// the lookback window ending the month before target. Transactions outside
// the window, without a category, with an unknown category or a non-P&L kind
// are skipped.
func BuildMonthlyAggregates(target Month, lookback int, categories []Category, transactions []Transaction) History {
	months := MonthRange(target, lookback)
	aggs := make([]MonthlyAggregate, len(months))
	index := make(map[string]int, len(months))
	for i, m := range months {
		key := m.String()
		aggs[i] = MonthlyAggregate{Month: key}
		index[key] = i
	}

	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	h := History{}
	for _, tx := range transactions {
		if tx.CategoryID == nil || len(tx.Date) < 7 {
			h.Skipped++
			continue
		}
		cat, ok := byID[*tx.CategoryID]
		if !ok {
			h.Skipped++
			continue
		}
		i, ok := index[tx.Date[:7]]
		if !ok {
			h.Skipped++
			continue
		}

		amount := math.Abs(tx.Amount)
		switch cat.Kind {
		case KindRevenue:
			aggs[i].Revenue += amount
		case KindCOGS:
			aggs[i].COGS += amount
		case KindOpex:
			aggs[i].Opex += amount
			if cat.VariableCost && !cat.FixedCost {
				aggs[i].VariableOpex += amount
			} else {
				aggs[i].FixedOpex += amount
			}
		default:
			h.Skipped++
			continue
		}
		h.TransactionsUsed++
	}

	for _, a := range aggs {
		if a.HasData() {
			h.MonthsWithData++
		}
	}
	h.Aggregates = aggs
	return h
}

// RevenueSeries extracts the monthly revenue values.
func RevenueSeries(aggs []MonthlyAggregate) []float64 {
	out := make([]float64, len(aggs))
	for i, a := range aggs {
		out[i] = a.Revenue
	}
	return out
}

// TrimLeadingZeros drops the values before the first nonzero entry.
func TrimLeadingZeros(series []float64) []float64 {
	for i, v := range series {
		if v != 0 {
			return series[i:]
		}
	}
	return series[:0]
}

// Trailing returns the last n aggregates (or all of them when fewer exist).
func Trailing(aggs []MonthlyAggregate, n int) []MonthlyAggregate {
	if n <= 0 {
		return nil
	}
	if len(aggs) <= n {
		return aggs
	}
	return aggs[len(aggs)-n:]
}
