package ridedemand

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const ManifestFile = "manifest.json"

// Stages of a pipeline build
const (
	StageTaxi    = "taxi"
	StageWeather = "weather"
	StageEvents  = "events"
	StageBase    = "base"
	StageTrain   = "train"
)

// StageRecord describes the last run of a build stage
type StageRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Rows       int       `json:"rows"`
	First      time.Time `json:"first,omitempty"`
	Last       time.Time `json:"last,omitempty"`

	MissingPartitions []string    `json:"missing_partitions,omitempty"`
	DroppedPickups    int         `json:"dropped_pickups,omitempty"`
	OutlierHours      []time.Time `json:"outlier_hours,omitempty"`
	ClampedEvents     int         `json:"clamped_events,omitempty"`
	WeatherGaps       int         `json:"weather_gaps,omitempty"`
	Output            string      `json:"output,omitempty"`
}

// Manifest records the last run of every stage written to a data directory
type Manifest struct {
	Stages map[string]*StageRecord `json:"stages"`
}

var manifestMu sync.Mutex

// ReadManifest loads the manifest of a data directory. A missing manifest is empty.
func ReadManifest(dir string) (*Manifest, error) {
	m := &Manifest{Stages: make(map[string]*StageRecord)}
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("reading %s, %w", ManifestFile, err)
	}
	if m.Stages == nil {
		m.Stages = make(map[string]*StageRecord)
	}
	return m, nil
}

// recordStage replaces the record of a stage and rewrites the manifest
func recordStage(dir, stage string, rec *StageRecord) error {
	manifestMu.Lock()
	defer manifestMu.Unlock()

	m, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	m.Stages[stage] = rec

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
