package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// Lag is the target value k hours before the current row
type Lag struct {
	K int `json:"k"`
}

func NewLag(k int) *Lag {
	return &Lag{k}
}

func (l Lag) String() string {
	return fmt.Sprintf("lag_%d", l.K)
}

func (l Lag) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "k":
		return strconv.Itoa(l.K), true
	}
	return "", false
}

func (l Lag) Type() FeatureType {
	return FeatureTypeLag
}

func (l Lag) Decode() map[string]string {
	return map[string]string{"k": strconv.Itoa(l.K)}
}

// Rolling is the mean target value over a window of W hours
type Rolling struct {
	W int `json:"w"`
}

func NewRolling(w int) *Rolling {
	return &Rolling{w}
}

func (r Rolling) String() string {
	return fmt.Sprintf("roll_mean_%d", r.W)
}

func (r Rolling) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "w":
		return strconv.Itoa(r.W), true
	}
	return "", false
}

func (r Rolling) Type() FeatureType {
	return FeatureTypeRolling
}

func (r Rolling) Decode() map[string]string {
	return map[string]string{"w": strconv.Itoa(r.W)}
}

// Diff is the change of the target value over the last K hours, current row included
type Diff struct {
	K int `json:"k"`
}

func NewDiff(k int) *Diff {
	return &Diff{k}
}

func (d Diff) String() string {
	return fmt.Sprintf("diff_%d", d.K)
}

func (d Diff) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "k":
		return strconv.Itoa(d.K), true
	}
	return "", false
}

func (d Diff) Type() FeatureType {
	return FeatureTypeDiff
}

func (d Diff) Decode() map[string]string {
	return map[string]string{"k": strconv.Itoa(d.K)}
}
