package assumption

import (
	"gonum.org/v1/gonum/stat"

	"pnl_forecast/pkg/core/calc"
	"pnl_forecast/pkg/core/numeric"
)

// EstimateDrivers derives the cost drivers from window (normally the trailing
// twelve months) and applies any overrides in in. It never fails: drivers
// with no usable history default to zero.
func EstimateDrivers(window []calc.MonthlyAggregate, in Input) DriverBundle {
	in = in.Sanitized()
	d := DriverBundle{Sources: make(map[string]Source, len(DriverNames))}

	var cogsRatios, varRatios, fixed, opex []float64
	for _, a := range window {
		if a.Revenue > 0 {
			cogsRatios = append(cogsRatios, a.COGS/a.Revenue*100)
			if a.VariableOpex > 0 {
				varRatios = append(varRatios, a.VariableOpex/a.Revenue*100)
			}
		}
		if a.FixedOpex > 0 {
			fixed = append(fixed, a.FixedOpex)
		}
		if a.Opex > 0 {
			opex = append(opex, a.Opex)
		}
	}

	// COGS share of revenue.
	if len(cogsRatios) > 0 {
		d.set(DriverCOGSPercent, stat.Mean(cogsRatios, nil), SourceHistorical)
	} else {
		d.set(DriverCOGSPercent, 0, SourceDefaultZero)
	}

	// Fixed OPEX, then the variable share of revenue.
	intercept, slope, fitted := opexRegression(window)
	fixedFromHistory := false
	switch {
	case len(fixed) > 0:
		d.set(DriverFixedOpex, stat.Mean(fixed, nil), SourceHistorical)
		fixedFromHistory = true
	case fitted:
		d.set(DriverFixedOpex, nonNegative(intercept), SourceHistorical)
	case len(opex) > 0:
		d.set(DriverFixedOpex, stat.Mean(opex, nil), SourceHistorical)
	default:
		d.set(DriverFixedOpex, 0, SourceDefaultZero)
	}

	switch {
	case len(varRatios) > 0:
		d.set(DriverVariableOpexPercent, stat.Mean(varRatios, nil), SourceHistorical)
	case fitted && !fixedFromHistory:
		d.set(DriverVariableOpexPercent, nonNegative(slope*100), SourceHistorical)
	default:
		d.set(DriverVariableOpexPercent, 0, SourceDefaultZero)
	}

	d.set(DriverOneOffAmount, 0, SourceDefaultZero)

	if in.COGSPercent != nil {
		d.set(DriverCOGSPercent, *in.COGSPercent, SourceAssumption)
	}
	if in.FixedOpex != nil {
		d.set(DriverFixedOpex, *in.FixedOpex, SourceAssumption)
	}
	if in.VariableOpexPercent != nil {
		d.set(DriverVariableOpexPercent, *in.VariableOpexPercent, SourceAssumption)
	}
	if in.OneOffAmount != nil {
		d.set(DriverOneOffAmount, *in.OneOffAmount, SourceAssumption)
	}
	return d
}

func (d *DriverBundle) set(name string, v float64, src Source) {
	switch name {
	case DriverCOGSPercent:
		d.COGSPercent = v
	case DriverFixedOpex:
		d.FixedOpex = v
	case DriverVariableOpexPercent:
		d.VariableOpexPercent = v
	case DriverOneOffAmount:
		d.OneOffAmount = v
	}
	d.Sources[name] = src
}

// opexRegression fits opex = intercept + slope*revenue over months with
// activity. It needs at least two such months and two distinct revenue
// levels.
func opexRegression(window []calc.MonthlyAggregate) (intercept, slope float64, ok bool) {
	var x [][]float64
	var y []float64
	distinct := false
	for _, a := range window {
		if !a.HasData() {
			continue
		}
		if len(x) > 0 && a.Revenue != x[0][1] {
			distinct = true
		}
		x = append(x, []float64{1, a.Revenue})
		y = append(y, a.Opex)
	}
	if len(y) < 2 || !distinct {
		return 0, 0, false
	}
	coef := numeric.FitLinearRegression(x, y)
	if coef == nil || !numeric.AllFinite(coef) {
		return 0, 0, false
	}
	return coef[0], coef[1], true
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
