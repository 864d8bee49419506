package feature

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrNoFeatures = errors.New("no features requested")

// Set represents a mapping to each feature data keyed by the string representation
// of the feature. Every column has the same number of rows. Labels keep insertion order.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of rows of the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores the column for a feature, replacing an existing one with the same name. Columns
// shorter than the set are padded with NaN, and existing columns are padded when a longer column
// is added.
func (s *Set) Set(f Feature, data []float64) *Set {
	name := f.String()
	if _, exists := s.set[name]; !exists {
		s.labels = append(s.labels, f)
	}

	if len(data) > s.m {
		for label, col := range s.set {
			s.set[label] = padNaN(col, len(data))
		}
		s.m = len(data)
	}
	s.set[name] = padNaN(data, s.m)
	return s
}

func padNaN(data []float64, m int) []float64 {
	if len(data) >= m {
		return data
	}
	res := make([]float64, m)
	copy(res, data)
	for i := len(data); i < m; i++ {
		res[i] = math.NaN()
	}
	return res
}

// Del removes a feature column from the set
func (s *Set) Del(f Feature) *Set {
	name := f.String()
	if _, exists := s.set[name]; !exists {
		return s
	}
	delete(s.set, name)
	for i, label := range s.labels {
		if label.String() == name {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			break
		}
	}
	if len(s.labels) == 0 {
		s.labels = nil
		s.m = 0
	}
	return s
}

// Update sets every column of the other set into this one
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s.Set(f, other.set[f.String()])
	}
	return s
}

// Get returns the column of a feature
func (s *Set) Get(f Feature) ([]float64, bool) {
	col, exists := s.set[f.String()]
	return col, exists
}

// Labels returns the tracked features in insertion order
func (s *Set) Labels() *Labels {
	if s == nil {
		return nil
	}
	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	return NewLabels(labels)
}

// Complete reports whether row i has a defined value for every requested feature. Unknown
// features are never complete.
func (s *Set) Complete(i int, feats []Feature) bool {
	if i < 0 || i >= s.m {
		return false
	}
	for _, f := range feats {
		col, exists := s.set[f.String()]
		if !exists || math.IsNaN(col[i]) {
			return false
		}
	}
	return true
}

// Matrix returns the requested rows as a matrix with one column per feature in the given order.
// A nil rows slice selects every row.
func (s *Set) Matrix(feats []Feature, rows []int) (*mat.Dense, error) {
	if len(feats) == 0 {
		return nil, ErrNoFeatures
	}
	cols := make([][]float64, len(feats))
	for j, f := range feats {
		col, exists := s.set[f.String()]
		if !exists {
			return nil, fmt.Errorf("%s not in feature set, %w", f, ErrUnknownFeature)
		}
		cols[j] = col
	}

	if rows == nil {
		rows = make([]int, s.m)
		for i := range rows {
			rows[i] = i
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	n := len(feats)
	obs := make([]float64, len(rows)*n)
	for i, r := range rows {
		for j, col := range cols {
			obs[n*i+j] = col[r]
		}
	}
	return mat.NewDense(len(rows), n, obs), nil
}
