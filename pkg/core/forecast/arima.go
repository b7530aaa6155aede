package forecast

import "pnl_forecast/pkg/core/numeric"

// ARIMAModel fits an AR(2) with intercept on the first differences of the
// series and integrates the recursive forecast back onto the last level.
type ARIMAModel struct {
	p Params
}

func (m *ARIMAModel) Name() string        { return NameARIMA }
func (m *ARIMAModel) MinTrainLength() int { return m.p.ARIMAMinTrain }

func (m *ARIMAModel) Fit(series []float64, steps int) ([]float64, error) {
	if err := checkInput(series); err != nil {
		return nil, err
	}

	fallback := func() ([]float64, error) {
		return holt(series, steps, m.p.HoltAlpha, m.p.HoltBeta), nil
	}

	n := len(series)
	if n < m.p.ARIMAMinPoints {
		return fallback()
	}
	diffs := difference(series, 1)
	coef := fitAR2(diffs, m.p.MinDiffPoints)
	if coef == nil {
		return fallback()
	}

	out := make([]float64, steps0(steps))
	d1, d2 := diffs[len(diffs)-1], diffs[len(diffs)-2]
	level := series[n-1]
	for h := range out {
		next := numeric.Predict(coef, []float64{1, d1, d2})
		level += next
		out[h] = level
		d2, d1 = d1, next
	}
	if !numeric.AllFinite(out) {
		return fallback()
	}
	return clamp(out), nil
}

// SARIMAModel fits an AR(2) with intercept on the seasonal difference
// y(t) - y(t-season) and rebuilds levels from the value one season back.
// Short series fall back to Holt-Winters.
type SARIMAModel struct {
	p Params
}

func (m *SARIMAModel) Name() string        { return NameSARIMA }
func (m *SARIMAModel) MinTrainLength() int { return m.p.SARIMAMinTrain }

func (m *SARIMAModel) Fit(series []float64, steps int) ([]float64, error) {
	if err := checkInput(series); err != nil {
		return nil, err
	}

	fallback := func() ([]float64, error) {
		return holtWinters(series, steps, m.p), nil
	}

	period := m.p.SeasonLength
	n := len(series)
	if n < period+m.p.SARIMAMinExtra {
		return fallback()
	}
	diffs := difference(series, period)
	coef := fitAR2(diffs, m.p.MinDiffPoints)
	if coef == nil {
		return fallback()
	}

	working := make([]float64, n, n+steps0(steps))
	copy(working, series)

	out := make([]float64, steps0(steps))
	d1, d2 := diffs[len(diffs)-1], diffs[len(diffs)-2]
	for h := range out {
		next := numeric.Predict(coef, []float64{1, d1, d2})
		value := working[len(working)-period] + next
		working = append(working, value)
		out[h] = value
		d2, d1 = d1, next
	}
	if !numeric.AllFinite(out) {
		return fallback()
	}
	return clamp(out), nil
}

// difference returns y(t) - y(t-lag) for every t >= lag.
func difference(series []float64, lag int) []float64 {
	if lag <= 0 || len(series) <= lag {
		return nil
	}
	out := make([]float64, len(series)-lag)
	for i := range out {
		out[i] = series[i+lag] - series[i]
	}
	return out
}

// fitAR2 regresses d(t) on [1, d(t-1), d(t-2)]. Returns nil when the
// differenced series is shorter than minPoints or the system is singular.
func fitAR2(diffs []float64, minPoints int) []float64 {
	if len(diffs) < minPoints || len(diffs) < 3 {
		return nil
	}
	x := make([][]float64, 0, len(diffs)-2)
	y := make([]float64, 0, len(diffs)-2)
	for t := 2; t < len(diffs); t++ {
		x = append(x, []float64{1, diffs[t-1], diffs[t-2]})
		y = append(y, diffs[t])
	}
	return numeric.FitLinearRegression(x, y)
}
