// Package assumption derives the cost drivers of a forecast from recent
// history and merges them with user supplied overrides.
package assumption

import "math"

// Source records where a driver value came from.
type Source string

const (
	SourceAssumption  Source = "assumption"
	SourceHistorical  Source = "historical"
	SourceDefaultZero Source = "default_zero"
)

// Driver names, also used as keys of DriverBundle.Sources.
const (
	DriverCOGSPercent         = "cogs_percent"
	DriverFixedOpex           = "fixed_opex"
	DriverVariableOpexPercent = "variable_opex_percent"
	DriverOneOffAmount        = "one_off_amount"
)

// DriverNames lists the drivers in reporting order.
var DriverNames = []string{
	DriverCOGSPercent,
	DriverFixedOpex,
	DriverVariableOpexPercent,
	DriverOneOffAmount,
}

// Override field names as they appear in the request body.
const (
	FieldRevenueGrowthRate = "revenue_growth_rate"
	FieldRevenueAmount     = "revenue_amount"
)

// Input carries optional manual overrides. A nil field means "derive it".
type Input struct {
	RevenueGrowthRate   *float64 `json:"revenue_growth_rate,omitempty"`   // % per month after the first
	RevenueAmount       *float64 `json:"revenue_amount,omitempty"`        // first forecast month only
	COGSPercent         *float64 `json:"cogs_percent,omitempty"`          // % of revenue
	FixedOpex           *float64 `json:"fixed_opex,omitempty"`            // per month
	VariableOpexPercent *float64 `json:"variable_opex_percent,omitempty"` // % of revenue
	OneOffAmount        *float64 `json:"one_off_amount,omitempty"`        // first forecast month only
}

// Sanitized returns a copy with NaN and infinite overrides cleared.
func (in Input) Sanitized() Input {
	clean := func(v *float64) *float64 {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil
		}
		c := *v
		return &c
	}
	return Input{
		RevenueGrowthRate:   clean(in.RevenueGrowthRate),
		RevenueAmount:       clean(in.RevenueAmount),
		COGSPercent:         clean(in.COGSPercent),
		FixedOpex:           clean(in.FixedOpex),
		VariableOpexPercent: clean(in.VariableOpexPercent),
		OneOffAmount:        clean(in.OneOffAmount),
	}
}

// Overrides returns the names of the fields that are set, in a fixed order.
func (in Input) Overrides() []string {
	fields := []struct {
		name string
		v    *float64
	}{
		{FieldRevenueGrowthRate, in.RevenueGrowthRate},
		{FieldRevenueAmount, in.RevenueAmount},
		{DriverCOGSPercent, in.COGSPercent},
		{DriverFixedOpex, in.FixedOpex},
		{DriverVariableOpexPercent, in.VariableOpexPercent},
		{DriverOneOffAmount, in.OneOffAmount},
	}
	var out []string
	for _, f := range fields {
		if f.v != nil {
			out = append(out, f.name)
		}
	}
	return out
}

// DriverBundle is the resolved set of cost drivers for a projection.
type DriverBundle struct {
	COGSPercent         float64           `json:"cogs_percent"`
	FixedOpex           float64           `json:"fixed_opex"`
	VariableOpexPercent float64           `json:"variable_opex_percent"`
	OneOffAmount        float64           `json:"one_off_amount"`
	Sources             map[string]Source `json:"sources"`
}

// Historical returns the names of drivers derived from history, in
// reporting order.
func (d DriverBundle) Historical() []string {
	var out []string
	for _, name := range DriverNames {
		if d.Sources[name] == SourceHistorical {
			out = append(out, name)
		}
	}
	return out
}
