// Package store persists the hourly tables as parquet files keyed by a UTC millisecond
// timestamp column. Undefined values are written as parquet nulls.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const (
	TaxiFile       = "hourly_taxi.parquet"
	WeatherFile    = "hourly_weather.parquet"
	EventsFile     = "hourly_events.parquet"
	BaseFile       = "base_hourly.parquet"
	ModelReadyFile = "model_ready_hourly.parquet"

	defaultParallelism = 4
)

var (
	ErrNotFound = errors.New("table not found")
	ErrNoDir    = errors.New("no data directory")
)

// Store reads and writes the pipeline tables in a single directory
type Store struct {
	dir string
	np  int64
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	return &Store{dir: dir, np: defaultParallelism}, nil
}

// Dir returns the directory holding the tables
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of a table file
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a table file has been written
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// writeRows writes all rows to a temporary file next to the destination and renames it into
// place once the parquet footer is written.
func writeRows[T any](s *Store, name string, rows []T) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := s.Path(name)
	tmp := path + ".tmp"

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("creating %s, %w", tmp, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(T), s.np)
	if err != nil {
		fw.Close()
		return fmt.Errorf("creating parquet writer for %s, %w", name, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(tmp)
			return fmt.Errorf("writing row %d of %s, %w", i, name, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("finalizing %s, %w", name, err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	slog.Debug("wrote table", "path", path, "rows", len(rows))
	return nil
}

func readRows[T any](s *Store, name string) ([]T, error) {
	path := s.Path(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s, %w", path, ErrNotFound)
		}
		return nil, err
	}
	return ReadParquet[T](path, s.np)
}

// ReadParquet reads every row of a parquet file into T. Columns of the file missing from T are
// ignored.
func ReadParquet[T any](path string, np int64) ([]T, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s, %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), np)
	if err != nil {
		return nil, fmt.Errorf("creating parquet reader for %s, %w", path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]T, n)
	if n == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("reading %s, %w", path, err)
	}
	return rows, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func value(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
