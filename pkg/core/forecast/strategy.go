// Package forecast implements the revenue forecasting strategies and the
// backtest-driven selector that picks between them.
//
// Every strategy takes a monthly series and a step count and returns exactly
// that many non-negative values. Strategies that cannot work with the data
// they are given degrade to a simpler strategy rather than failing.
package forecast

import (
	"errors"
	"fmt"

	"pnl_forecast/pkg/core/numeric"
)

// Strategy names as reported in model diagnostics.
const (
	NameManual       = "manual_assumptions"
	NameHolt         = "holt"
	NameHoltWinters  = "holt_winters"
	NameARIMA        = "arima_like"
	NameSARIMA       = "sarima_like"
	NameRandomForest = "random_forest_like"
)

// ErrNonFiniteInput is returned when a series contains NaN or ±Inf.
var ErrNonFiniteInput = errors.New("series contains non-finite values")

// =============================================================================
// MODEL INTERFACE
// =============================================================================

// Model is a pluggable forecasting strategy.
type Model interface {
	// Name is the identifier reported in diagnostics.
	Name() string

	// MinTrainLength is the shortest training series the selector will
	// backtest this model on.
	MinTrainLength() int

	// Fit trains on series and forecasts steps periods ahead.
	Fit(series []float64, steps int) ([]float64, error)
}

// Registry is the ordered set of selector candidates. Evaluation order
// breaks MAPE ties, so registration order matters.
type Registry struct {
	models []Model
}

// NewRegistry creates a registry holding models in the given order.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{}
	for _, m := range models {
		r.Register(m)
	}
	return r
}

// DefaultRegistry returns the standard candidates: Holt-Winters, ARIMA-like,
// SARIMA-like and random-forest-like.
func DefaultRegistry(p Params) *Registry {
	p = p.withDefaults()
	return NewRegistry(
		&HoltWintersModel{p: p},
		&ARIMAModel{p: p},
		&SARIMAModel{p: p},
		&RandomForestModel{p: p},
	)
}

// Register appends m. Nil models are ignored.
func (r *Registry) Register(m Model) {
	if m == nil {
		return
	}
	r.models = append(r.models, m)
}

// Models returns the candidates in evaluation order.
func (r *Registry) Models() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

// Lookup returns the named model, including the non-candidate manual trend
// and Holt strategies.
func Lookup(name string, p Params) (Model, error) {
	p = p.withDefaults()
	switch name {
	case NameManual:
		return &ManualTrendModel{p: p}, nil
	case NameHolt:
		return &HoltModel{p: p}, nil
	case NameHoltWinters:
		return &HoltWintersModel{p: p}, nil
	case NameARIMA:
		return &ARIMAModel{p: p}, nil
	case NameSARIMA:
		return &SARIMAModel{p: p}, nil
	case NameRandomForest:
		return &RandomForestModel{p: p}, nil
	}
	return nil, fmt.Errorf("unknown forecast model: %s", name)
}

func checkInput(series []float64) error {
	if !numeric.AllFinite(series) {
		return ErrNonFiniteInput
	}
	return nil
}

// clamp replaces negative values with zero in place.
func clamp(out []float64) []float64 {
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		}
	}
	return out
}

func steps0(steps int) int {
	if steps < 0 {
		return 0
	}
	return steps
}

// =============================================================================
// MANUAL TREND
// =============================================================================

// ManualTrendModel compounds the last observation at the average recent
// period-over-period growth rate. It is the fallback when nothing else can be
// validated.
type ManualTrendModel struct {
	p Params
}

func (m *ManualTrendModel) Name() string        { return NameManual }
func (m *ManualTrendModel) MinTrainLength() int { return 0 }

func (m *ManualTrendModel) Fit(series []float64, steps int) ([]float64, error) {
	if err := checkInput(series); err != nil {
		return nil, err
	}
	return manualTrend(series, steps, m.p.ManualWindow), nil
}

func manualTrend(series []float64, steps, window int) []float64 {
	out := make([]float64, steps0(steps))
	n := len(series)
	if n == 0 {
		return out
	}

	start := n - window
	if start < 0 {
		start = 0
	}
	recent := series[start:]

	var sum float64
	var count int
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1]
		if prev == 0 {
			continue
		}
		sum += (recent[i] - prev) / prev
		count++
	}
	growth := 0.0
	if count > 0 {
		growth = sum / float64(count)
	}

	value := series[n-1]
	for i := range out {
		value *= 1 + growth
		out[i] = value
	}
	return clamp(out)
}

// =============================================================================
// HOLT (DOUBLE EXPONENTIAL SMOOTHING)
// =============================================================================

// HoltModel is level + trend exponential smoothing. It is never a selector
// candidate on its own but is what stricter models fall back to.
type HoltModel struct {
	p Params
}

func (m *HoltModel) Name() string        { return NameHolt }
func (m *HoltModel) MinTrainLength() int { return 2 }

func (m *HoltModel) Fit(series []float64, steps int) ([]float64, error) {
	if err := checkInput(series); err != nil {
		return nil, err
	}
	return holt(series, steps, m.p.HoltAlpha, m.p.HoltBeta), nil
}

func holt(series []float64, steps int, alpha, beta float64) []float64 {
	out := make([]float64, steps0(steps))
	n := len(series)
	switch n {
	case 0:
		return out
	case 1:
		for i := range out {
			out[i] = series[0]
		}
		return clamp(out)
	}

	level := series[0]
	trend := series[1] - series[0]
	for t := 1; t < n; t++ {
		prev := level
		level = alpha*series[t] + (1-alpha)*(level+trend)
		trend = beta*(level-prev) + (1-beta)*trend
	}

	for h := range out {
		out[h] = level + trend*float64(h+1)
	}
	return clamp(out)
}
