package forecast

import "gonum.org/v1/gonum/stat"

// HoltWintersModel is additive triple exponential smoothing with a yearly
// season. Series shorter than two full seasons fall back to Holt.
type HoltWintersModel struct {
	p Params
}

func (m *HoltWintersModel) Name() string        { return NameHoltWinters }
func (m *HoltWintersModel) MinTrainLength() int { return m.p.HWMinTrain }

func (m *HoltWintersModel) Fit(series []float64, steps int) ([]float64, error) {
	if err := checkInput(series); err != nil {
		return nil, err
	}
	return holtWinters(series, steps, m.p), nil
}

func holtWinters(series []float64, steps int, p Params) []float64 {
	period := p.SeasonLength
	n := len(series)
	if n < p.HWMinPoints || n < 2*period {
		return holt(series, steps, p.HoltAlpha, p.HoltBeta)
	}

	first := stat.Mean(series[:period], nil)
	second := stat.Mean(series[period:2*period], nil)

	level := first
	trend := (second - first) / float64(period)
	seasonal := make([]float64, period)
	for i := 0; i < period; i++ {
		seasonal[i] = ((series[i] - first) + (series[i+period] - second)) / 2
	}

	alpha, beta, gamma := p.HWAlpha, p.HWBeta, p.HWGamma
	for t := 0; t < n; t++ {
		s := seasonal[t%period]
		prev := level
		level = alpha*(series[t]-s) + (1-alpha)*(level+trend)
		trend = beta*(level-prev) + (1-beta)*trend
		seasonal[t%period] = gamma*(series[t]-level) + (1-gamma)*s
	}

	out := make([]float64, steps0(steps))
	for h := range out {
		out[h] = level + trend*float64(h+1) + seasonal[(n+h)%period]
	}
	return clamp(out)
}
