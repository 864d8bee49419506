package models

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

const linearKind = "linear"

var ErrInvalidArtifact = errors.New("invalid model artifact")

// Linear is a fitted linear demand model over a named, ordered feature list.
type Linear struct {
	features  []string
	intercept float64
	coef      []float64
	trainedAt time.Time
	rows      int
}

// linearArtifact is the persisted form of a Linear model
type linearArtifact struct {
	Kind      string    `json:"kind"`
	Features  []string  `json:"features"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
	TrainedAt time.Time `json:"trained_at"`
	Rows      int       `json:"rows"`
}

// NewLinear creates a model from known coefficients
func NewLinear(features []string, intercept float64, coef []float64) (*Linear, error) {
	l := &Linear{
		features:  slices.Clone(features),
		intercept: intercept,
		coef:      slices.Clone(coef),
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// FitLinear fits an intercept and one coefficient per feature using ordinary least squares. x
// must have one column per feature in the given order.
func FitLinear(features []string, x, y mat.Matrix) (*Linear, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	if x == nil {
		return nil, ErrNoTrainingMatrix
	}
	m, n := x.Dims()
	if n != len(features) {
		return nil, fmt.Errorf("design matrix has %d columns for %d features, %w", n, len(features), ErrFeatureLenMismatch)
	}

	ols, err := NewOLSRegression(NewDefaultOLSOptions())
	if err != nil {
		return nil, err
	}
	if err := ols.Fit(x, y); err != nil {
		return nil, fmt.Errorf("fitting linear model, %w", err)
	}

	return &Linear{
		features:  slices.Clone(features),
		intercept: ols.Intercept(),
		coef:      ols.Coef(),
		trainedAt: time.Now().UTC(),
		rows:      m,
	}, nil
}

func (l *Linear) validate() error {
	if len(l.features) == 0 {
		return ErrNoFeatures
	}
	if len(l.features) != len(l.coef) {
		return fmt.Errorf("%d features and %d coefficients, %w", len(l.features), len(l.coef), ErrFeatureLenMismatch)
	}
	if math.IsNaN(l.intercept) || math.IsInf(l.intercept, 0) {
		return fmt.Errorf("intercept %f, %w", l.intercept, ErrInvalidArtifact)
	}
	for i, c := range l.coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient of %s is %f, %w", l.features[i], c, ErrInvalidArtifact)
		}
	}
	return nil
}

// Predict returns one prediction per row of x
func (l *Linear) Predict(x mat.Matrix) ([]float64, error) {
	return predictLinear(x, l.intercept, l.coef)
}

// Features returns the feature columns in the order Predict expects them
func (l *Linear) Features() []string {
	return slices.Clone(l.features)
}

func (l *Linear) Intercept() float64 {
	return l.intercept
}

func (l *Linear) Coef() []float64 {
	return slices.Clone(l.coef)
}

// TrainedAt returns when the model was fit. Zero for models built from known coefficients.
func (l *Linear) TrainedAt() time.Time {
	return l.trainedAt
}

func (l *Linear) MarshalJSON() ([]byte, error) {
	return json.Marshal(linearArtifact{
		Kind:      linearKind,
		Features:  l.features,
		Intercept: l.intercept,
		Coef:      l.coef,
		TrainedAt: l.trainedAt,
		Rows:      l.rows,
	})
}

func (l *Linear) UnmarshalJSON(data []byte) error {
	var a linearArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("%w, %s", ErrInvalidArtifact, err.Error())
	}
	if a.Kind != linearKind {
		return fmt.Errorf("kind %q, %w", a.Kind, ErrInvalidArtifact)
	}
	next := Linear{
		features:  a.Features,
		intercept: a.Intercept,
		coef:      a.Coef,
		trainedAt: a.TrainedAt,
		rows:      a.Rows,
	}
	if err := next.validate(); err != nil {
		return err
	}
	*l = next
	return nil
}

// Save writes the model artifact to path, replacing any existing file
func (l *Linear) Save(path string) error {
	out, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadLinear reads a model artifact. Any failure is reported as ErrModelUnavailable.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w, %s", ErrModelUnavailable, err.Error())
	}
	var l Linear
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w, %s: %w", ErrModelUnavailable, path, err)
	}
	return &l, nil
}
