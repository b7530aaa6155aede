// Package numeric holds the small linear-algebra and scoring helpers the
// forecast models are built on.
package numeric

import "math"

// PivotTolerance is the smallest pivot magnitude Solve accepts before it
// reports the system as ill-conditioned.
const PivotTolerance = 1e-9

// Solve solves a·x = b using Gaussian elimination with partial pivoting.
// The inputs are left untouched. ok is false when the system is not square or
// a pivot falls below PivotTolerance; callers are expected to fall back to a
// simpler model in that case.
func Solve(a [][]float64, b []float64) (x []float64, ok bool) {
	n := len(b)
	if n == 0 || len(a) != n {
		return nil, false
	}

	// Augmented matrix [A | b]
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(a[i]) != n {
			return nil, false
		}
		aug[i] = make([]float64, n+1)
		copy(aug[i], a[i])
		aug[i][n] = b[i]
	}

	for k := 0; k < n; k++ {
		maxRow := k
		for i := k + 1; i < n; i++ {
			if math.Abs(aug[i][k]) > math.Abs(aug[maxRow][k]) {
				maxRow = i
			}
		}
		if maxRow != k {
			aug[k], aug[maxRow] = aug[maxRow], aug[k]
		}

		pivot := aug[k][k]
		if math.Abs(pivot) < PivotTolerance || math.IsNaN(pivot) {
			return nil, false
		}

		for i := k + 1; i < n; i++ {
			factor := aug[i][k] / pivot
			if factor == 0 {
				continue
			}
			for j := k; j <= n; j++ {
				aug[i][j] -= factor * aug[k][j]
			}
		}
	}

	// Back substitution
	x = make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}

	return x, true
}
