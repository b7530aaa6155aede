package numeric

// RidgeLambda is added to the diagonal of XᵗX so near-collinear feature sets
// (constant lags, flat series) still produce a solvable system.
const RidgeLambda = 1e-6

// FitLinearRegression returns coefficients β solving (XᵗX + λI)β = Xᵗy.
// Rows of x must all have the same width; include a leading 1 column for an
// intercept. Returns nil on empty, ragged or mismatched input and when the
// system cannot be solved.
func FitLinearRegression(x [][]float64, y []float64) []float64 {
	rows := len(x)
	if rows == 0 || rows != len(y) {
		return nil
	}
	cols := len(x[0])
	if cols == 0 {
		return nil
	}
	for _, row := range x {
		if len(row) != cols {
			return nil
		}
	}

	xtx := make([][]float64, cols)
	for i := 0; i < cols; i++ {
		xtx[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			var sum float64
			for k := 0; k < rows; k++ {
				sum += x[k][i] * x[k][j]
			}
			xtx[i][j] = sum
		}
		xtx[i][i] += RidgeLambda
	}

	xty := make([]float64, cols)
	for i := 0; i < cols; i++ {
		var sum float64
		for k := 0; k < rows; k++ {
			sum += x[k][i] * y[k]
		}
		xty[i] = sum
	}

	beta, ok := Solve(xtx, xty)
	if !ok {
		return nil
	}
	return beta
}

// Predict evaluates a fitted linear model on one feature row.
func Predict(coef, row []float64) float64 {
	var out float64
	for i := 0; i < len(coef) && i < len(row); i++ {
		out += coef[i] * row[i]
	}
	return out
}
