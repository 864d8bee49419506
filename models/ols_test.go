package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func denseFromRows(t testing.TB, rows [][]float64) *mat.Dense {
	require.NotEmpty(t, rows)
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for _, row := range rows {
		require.Len(t, row, n)
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), n, data)
}

func testModel(t *testing.T, model Model, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol)

	c := model.Coef()
	assert.InDeltaSlice(t, coef, c, tol)

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

func TestOLSOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *OLSOptions
		expected *OLSOptions
	}{
		"nil": {nil, NewDefaultOLSOptions()},
		"valid": {
			&OLSOptions{
				FitIntercept: false,
			},
			&OLSOptions{
				FitIntercept: false,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestOLSRegression(t *testing.T) {
	tol := 1e-5
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"ols model intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"ols model no intercept": {
			x: [][]float64{
				{1, 0, 0},
				{1, 3, 5},
				{1, 9, 20},
				{1, 12, 6},
				{1, 15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: &OLSOptions{
				FitIntercept: false,
			},
			intercept: 0.0,
			coef:      []float64{2.0, 3.0, 4.0},
		},
		"constant zero feature": {
			x: [][]float64{
				{0, 0},
				{3, 0},
				{9, 0},
				{12, 0},
			},
			y:         []float64{1, 7, 19, 25},
			intercept: 1.0,
			coef:      []float64{2.0, 0.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x := denseFromRows(t, td.x)
			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewOLSRegression(td.opt)
			require.Nil(t, err)

			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestOLSRegressionErrors(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.NoError(t, err)

	_, err = model.Predict(mat.NewDense(1, 1, []float64{1}))
	assert.ErrorIs(t, err, ErrNotFit)

	assert.ErrorIs(t, model.Fit(nil, nil), ErrNoTrainingMatrix)
	assert.ErrorIs(t, model.Fit(mat.NewDense(2, 1, nil), nil), ErrNoTargetMatrix)
	assert.ErrorIs(t, model.Fit(mat.NewDense(2, 1, nil), mat.NewDense(3, 1, nil)), ErrTargetLenMismatch)

	x := denseFromRows(t, [][]float64{{1}, {2}, {3}})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})
	require.NoError(t, model.Fit(x, y))

	_, err = model.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}

func BenchmarkOLSRegression(b *testing.B) {
	nObs, nFeat := 1000, 20
	rows := make([][]float64, nObs)
	y := make([]float64, nObs)
	for i := range rows {
		rows[i] = make([]float64, nFeat)
		for j := range rows[i] {
			rows[i][j] = float64((i*nFeat + j*j) % 97)
		}
		y[i] = float64(i)
	}
	x := denseFromRows(b, rows)
	yMx := mat.NewDense(nObs, 1, y)

	for i := 0; i < b.N; i++ {
		model, err := NewOLSRegression(
			&OLSOptions{
				FitIntercept: true,
			},
		)
		if err != nil {
			b.Error(err)
			continue
		}
		if err := model.Fit(x, yMx); err != nil {
			b.Error(err)
			continue
		}
	}
}
