package serving

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScores(t *testing.T) {
	testData := map[string]struct {
		predicted []float64
		actual    []float64
		expected  *Scores
		err       error
	}{
		"perfect": {
			predicted: []float64{1, 2, 3},
			actual:    []float64{1, 2, 3},
			expected:  &Scores{MAE: 0, RMSE: 0, MAPE: 0, R2: 1},
		},
		"constant offset": {
			predicted: []float64{2, 3, 4, 5},
			actual:    []float64{1, 2, 3, 4},
			expected:  &Scores{MAE: 1, RMSE: 1, MAPE: 100 * (1 + 0.5 + 1.0/3 + 0.25) / 4, R2: 0.2},
		},
		"all zero actuals": {
			predicted: []float64{2, 2},
			actual:    []float64{0, 0},
			expected:  &Scores{MAE: 2, RMSE: 2, MAPE: 200, R2: 0},
		},
		"nan skipped": {
			predicted: []float64{1, math.NaN(), 4, 3},
			actual:    []float64{2, 5, 2, 5},
			expected:  &Scores{MAE: 5.0 / 3, RMSE: math.Sqrt(3), MAPE: 100 * 1.9 / 3, R2: -0.5},
		},
		"length mismatch": {
			predicted: []float64{1},
			actual:    []float64{1, 2},
			err:       ErrResLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			scores, err := NewScores(td.predicted, td.actual)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, td.expected.MAE, scores.MAE, 1e-9, "mae")
			assert.InDelta(t, td.expected.RMSE, scores.RMSE, 1e-9, "rmse")
			assert.InDelta(t, td.expected.MAPE, scores.MAPE, 1e-9, "mape")
			assert.InDelta(t, td.expected.R2, scores.R2, 1e-9, "r2")
		})
	}
}

func TestMAPEZeroActualUsesUnitDivisor(t *testing.T) {
	mape, err := MAPE([]float64{3, 0, 1}, []float64{0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 100*(3+0+1)/3.0, mape, 1e-9)
}
