package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// VarianceInflation regresses every column of x on the remaining columns and returns 1/(1-R²)
// keyed by feature name. A column that is perfectly explained maps to +Inf and a constant column,
// whose R² is undefined, maps to NaN.
func VarianceInflation(features []string, x mat.Matrix) (map[string]float64, error) {
	if x == nil {
		return nil, ErrNoTrainingMatrix
	}
	m, n := x.Dims()
	if n != len(features) {
		return nil, fmt.Errorf("got %d columns for %d features, %w", n, len(features), ErrFeatureLenMismatch)
	}
	if n < 2 {
		return nil, ErrMinimumFeatures
	}
	if m < 2 {
		return nil, fmt.Errorf("%d rows, %w", m, ErrNoTrainingMatrix)
	}

	others := mat.NewDense(m, n-1, nil)
	target := mat.NewDense(m, 1, nil)
	col := make([]float64, m)

	vif := make(map[string]float64, n)
	for i, name := range features {
		mat.Col(col, i, x)
		target.SetCol(0, col)
		c := 0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			mat.Col(col, j, x)
			others.SetCol(c, col)
			c++
		}

		reg, err := NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		if err := reg.Fit(others, target); err != nil {
			return nil, fmt.Errorf("regressing %s on remaining features, %w", name, err)
		}
		r2, err := reg.Score(others, target)
		if err != nil {
			return nil, err
		}
		switch {
		case math.IsNaN(r2) || math.IsInf(r2, 0):
			vif[name] = math.NaN()
		case r2 >= 1:
			vif[name] = math.Inf(1)
		default:
			vif[name] = 1 / (1 - r2)
		}
	}
	return vif, nil
}
