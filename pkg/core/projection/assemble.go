package projection

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pnl_forecast/pkg/core/assumption"
	"pnl_forecast/pkg/core/calc"
)

// DefaultHorizon is used whenever a requested horizon is not supported.
const DefaultHorizon = 6

var hundred = decimal.NewFromInt(100)

// NormalizeHorizon returns h when it is 3, 6 or 12 and DefaultHorizon
// otherwise.
func NormalizeHorizon(h int) int {
	switch h {
	case 3, 6, 12:
		return h
	}
	return DefaultHorizon
}

// ParseHorizon normalizes a horizon given as text, e.g. from a query string.
func ParseHorizon(s string) int {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultHorizon
	}
	return NormalizeHorizon(h)
}

// Assemble combines a revenue forecast with drivers into P&L rows for the
// months following target. Revenue overrides apply before any cost is
// derived: revenue_amount replaces the first month and revenue_growth_rate
// compounds every later month from it. Amounts are rounded to cents.
func Assemble(target calc.Month, revenue []float64, d assumption.DriverBundle, in assumption.Input) []Projection {
	in = in.Sanitized()

	rev := make([]decimal.Decimal, len(revenue))
	for i, v := range revenue {
		rev[i] = decimal.NewFromFloat(v).Round(2)
	}
	if len(rev) > 0 && in.RevenueAmount != nil {
		rev[0] = decimal.NewFromFloat(*in.RevenueAmount).Round(2)
	}
	if in.RevenueGrowthRate != nil {
		growth := decimal.NewFromInt(1).Add(decimal.NewFromFloat(*in.RevenueGrowthRate).Div(hundred))
		for i := 1; i < len(rev); i++ {
			rev[i] = rev[i-1].Mul(growth).Round(2)
		}
	}

	cogsPct := decimal.NewFromFloat(d.COGSPercent)
	varPct := decimal.NewFromFloat(d.VariableOpexPercent)
	fixed := decimal.NewFromFloat(d.FixedOpex)
	oneOff := decimal.NewFromFloat(d.OneOffAmount)

	out := make([]Projection, len(rev))
	for i, r := range rev {
		cogs := r.Mul(cogsPct).Div(hundred).Round(2)
		opex := fixed.Add(r.Mul(varPct).Div(hundred))
		if i == 0 {
			opex = opex.Add(oneOff)
		}
		opex = opex.Round(2)
		ebit := r.Sub(cogs).Sub(opex)

		margin := decimal.Zero
		if !r.IsZero() {
			margin = ebit.Div(r).Mul(hundred).Round(2)
		}

		out[i] = Projection{
			Month:              target.Add(i + 1).String(),
			Revenue:            r.InexactFloat64(),
			COGS:               cogs.InexactFloat64(),
			Opex:               opex.InexactFloat64(),
			EBIT:               ebit.InexactFloat64(),
			OperatingMarginPct: margin.InexactFloat64(),
		}
	}
	return out
}
