package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitLinear(t *testing.T) {
	x := denseFromRows(t, [][]float64{
		{0, 0},
		{3, 5},
		{9, 20},
		{12, 6},
		{15, 10},
	})
	y := mat.NewDense(5, 1, []float64{2, 31, 109, 62, 87})

	l, err := FitLinear([]string{"lag_1", "hour"}, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, l.Intercept(), 1e-6)
	assert.InDeltaSlice(t, []float64{3, 4}, l.Coef(), 1e-6)
	assert.Equal(t, []string{"lag_1", "hour"}, l.Features())
	assert.False(t, l.TrainedAt().IsZero())

	res, err := l.Predict(denseFromRows(t, [][]float64{{1, 1}, {2, 0}}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{9, 8}, res, 1e-6)
}

func TestFitLinearErrors(t *testing.T) {
	x := denseFromRows(t, [][]float64{{1, 2}, {3, 4}})
	y := mat.NewDense(2, 1, []float64{1, 2})

	_, err := FitLinear(nil, x, y)
	assert.ErrorIs(t, err, ErrNoFeatures)

	_, err = FitLinear([]string{"lag_1"}, x, y)
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	_, err = FitLinear([]string{"lag_1", "hour"}, nil, y)
	assert.ErrorIs(t, err, ErrNoTrainingMatrix)
}

func TestNewLinear(t *testing.T) {
	testData := map[string]struct {
		features    []string
		coef        []float64
		expectedErr error
	}{
		"valid": {
			features: []string{"a", "b"},
			coef:     []float64{1, 2},
		},
		"no features": {
			expectedErr: ErrNoFeatures,
		},
		"coefficient mismatch": {
			features:    []string{"a", "b"},
			coef:        []float64{1},
			expectedErr: ErrFeatureLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewLinear(td.features, 0, td.coef)
			if td.expectedErr != nil {
				assert.ErrorIs(t, err, td.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLinearSaveLoad(t *testing.T) {
	l, err := NewLinear([]string{"lag_1", "is_rain"}, 1.5, []float64{0.9, -3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "linear.json")
	require.NoError(t, l.Save(path))

	loaded, err := LoadLinear(path)
	require.NoError(t, err)
	assert.Equal(t, l.Features(), loaded.Features())
	assert.Equal(t, l.Intercept(), loaded.Intercept())
	assert.Equal(t, l.Coef(), loaded.Coef())

	var _ Predictor = loaded
}

func TestLoadLinearUnavailable(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLinear(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrModelUnavailable)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"kind":"xgb","features":["a"],"coef":[1]}`), 0o644))
	_, err = LoadLinear(bad)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLinearUnmarshalJSON(t *testing.T) {
	testData := map[string]struct {
		data        string
		expectedErr error
	}{
		"valid":         {data: `{"kind":"linear","features":["a"],"intercept":1,"coef":[2]}`},
		"wrong kind":    {data: `{"kind":"xgb","features":["a"],"coef":[2]}`, expectedErr: ErrInvalidArtifact},
		"not json":      {data: `nope`, expectedErr: ErrInvalidArtifact},
		"no features":   {data: `{"kind":"linear"}`, expectedErr: ErrNoFeatures},
		"coef mismatch": {data: `{"kind":"linear","features":["a","b"],"coef":[2]}`, expectedErr: ErrFeatureLenMismatch},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var l Linear
			err := l.UnmarshalJSON([]byte(td.data))
			if td.expectedErr != nil {
				assert.ErrorIs(t, err, td.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, l.Features())
		})
	}
}
