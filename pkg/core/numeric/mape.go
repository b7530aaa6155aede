package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MAPE returns the mean absolute percentage error of predicted against
// actual. Pairs whose actual is (near) zero or where either side is not finite
// are skipped. A nil result means no pair survived.
func MAPE(actual, predicted []float64) *float64 {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}

	errs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		a, p := actual[i], predicted[i]
		if !IsFinite(a) || !IsFinite(p) || math.Abs(a) < 1e-9 {
			continue
		}
		errs = append(errs, math.Abs(a-p)/math.Abs(a)*100)
	}
	if len(errs) == 0 {
		return nil
	}

	mape := stat.Mean(errs, nil)
	return &mape
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every value in vs is finite.
func AllFinite(vs []float64) bool {
	for _, v := range vs {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
