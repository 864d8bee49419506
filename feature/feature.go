// Package feature derives the supervised learning columns of the hourly demand table and
// arranges them into ordered feature matrices.
package feature

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownFeature = errors.New("unknown feature")

type FeatureType int

const (
	FeatureTypeCalendar FeatureType = iota
	FeatureTypeWeather
	FeatureTypeEvent
	FeatureTypeLag
	FeatureTypeRolling
	FeatureTypeDiff
)

func (ft FeatureType) String() string {
	switch ft {
	case FeatureTypeCalendar:
		return "calendar"
	case FeatureTypeWeather:
		return "weather"
	case FeatureTypeEvent:
		return "event"
	case FeatureTypeLag:
		return "lag"
	case FeatureTypeRolling:
		return "rolling"
	case FeatureTypeDiff:
		return "diff"
	}
	return "unknown"
}

// Feature is a named column of the feature table. String is the stable column name.
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

var named = map[string]Feature{}

func register(feats ...Feature) {
	for _, f := range feats {
		named[f.String()] = f
	}
}

// Parse resolves a column name such as "lag_24" or "is_holiday" to its feature.
func Parse(name string) (Feature, error) {
	if f, exists := named[name]; exists {
		return f, nil
	}

	prefixes := []struct {
		prefix string
		build  func(int) Feature
	}{
		{"lag_", func(k int) Feature { return NewLag(k) }},
		{"roll_mean_", func(w int) Feature { return NewRolling(w) }},
		{"diff_", func(k int) Feature { return NewDiff(k) }},
	}
	for _, p := range prefixes {
		suffix, found := strings.CutPrefix(name, p.prefix)
		if !found {
			continue
		}
		k, err := strconv.Atoi(suffix)
		if err != nil || k <= 0 {
			return nil, fmt.Errorf("%q, %w", name, ErrUnknownFeature)
		}
		return p.build(k), nil
	}
	return nil, fmt.Errorf("%q, %w", name, ErrUnknownFeature)
}

// ParseAll resolves every column name in order
func ParseAll(names []string) ([]Feature, error) {
	feats := make([]Feature, 0, len(names))
	for _, name := range names {
		f, err := Parse(name)
		if err != nil {
			return nil, err
		}
		feats = append(feats, f)
	}
	return feats, nil
}

// Names returns the column names of the features in order
func Names(feats []Feature) []string {
	names := make([]string, len(feats))
	for i, f := range feats {
		names[i] = f.String()
	}
	return names
}
