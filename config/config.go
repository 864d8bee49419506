// Package config loads the single immutable configuration of a pipeline run from a YAML file,
// a .env file and RIDEDEMAND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrBadRange      = errors.New("range start is after range end")
)

// Environment overrides
const (
	EnvDataDir    = "RIDEDEMAND_DATA_DIR"
	EnvListenAddr = "RIDEDEMAND_LISTEN_ADDR"
	EnvLogLevel   = "RIDEDEMAND_LOG_LEVEL"
	EnvModelPath  = "RIDEDEMAND_MODEL_PATH"
)

const (
	dateLayout     = "2006-01-02"
	floatingLayout = "2006-01-02T15:04:05"
)

var validate = validator.New()

type Config struct {
	DataDir  string `yaml:"data_dir" validate:"required"`
	Timezone string `yaml:"timezone" validate:"required"`

	Taxi      TaxiConfig      `yaml:"taxi"`
	Weather   WeatherConfig   `yaml:"weather"`
	Events    EventsConfig    `yaml:"events"`
	HTTP      HTTPConfig      `yaml:"http"`
	Join      JoinConfig      `yaml:"join"`
	Features  FeaturesConfig  `yaml:"features"`
	Model     ModelConfig     `yaml:"model"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`

	location *time.Location
}

type TaxiConfig struct {
	StartYear   int    `yaml:"start_year" validate:"min=2009"`
	EndYear     int    `yaml:"end_year" validate:"gtefield=StartYear"`
	URLFormat   string `yaml:"url_format" validate:"required"`
	Parallelism int    `yaml:"parallelism" validate:"min=1,max=32"`
}

type WeatherConfig struct {
	BaseURL   string  `yaml:"base_url" validate:"required,url"`
	Latitude  float64 `yaml:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `yaml:"longitude" validate:"min=-180,max=180"`
	StartDate string  `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string  `yaml:"end_date" validate:"required,datetime=2006-01-02"`
}

type EventsConfig struct {
	// BaseURL overrides https://<domain>
	BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
	Domain   string `yaml:"domain" validate:"required,hostname"`
	Dataset  string `yaml:"dataset" validate:"required"`
	Start    string `yaml:"start" validate:"required,datetime=2006-01-02T15:04:05"`
	End      string `yaml:"end" validate:"required,datetime=2006-01-02T15:04:05"`
	PageSize int    `yaml:"page_size" validate:"min=1"`
}

type HTTPConfig struct {
	Timeout                time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxConsecutiveFailures uint32        `yaml:"max_consecutive_failures" validate:"min=1"`
	OpenTimeout            time.Duration `yaml:"open_timeout" validate:"gte=0"`
}

type JoinConfig struct {
	AllowWeatherGaps bool `yaml:"allow_weather_gaps"`
}

type FeaturesConfig struct {
	RollingIncludeCurrent bool  `yaml:"rolling_include_current"`
	HeavyEventThreshold   int64 `yaml:"heavy_event_threshold" validate:"min=1"`
}

type ModelConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type DashboardConfig struct {
	ListenAddr  string `yaml:"listen_addr" validate:"required"`
	DefaultDays int    `yaml:"default_days" validate:"min=1"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration of the NYC yellow taxi pipeline for 2015 through 2024
func Default() *Config {
	return &Config{
		DataDir:  "data/processed",
		Timezone: "America/New_York",
		Taxi: TaxiConfig{
			StartYear:   2015,
			EndYear:     2024,
			URLFormat:   "https://d37ci6vzurychx.cloudfront.net/trip-data/yellow_tripdata_%04d-%02d.parquet",
			Parallelism: 1,
		},
		Weather: WeatherConfig{
			BaseURL:   "https://archive-api.open-meteo.com/v1/era5",
			Latitude:  40.7128,
			Longitude: -74.0060,
			StartDate: "2015-01-01",
			EndDate:   "2024-12-31",
		},
		Events: EventsConfig{
			Domain:   "data.cityofnewyork.us",
			Dataset:  "bkfu-528j",
			Start:    "2015-01-01T00:00:00",
			End:      "2025-01-01T00:00:00",
			PageSize: 50000,
		},
		HTTP: HTTPConfig{
			Timeout:                60 * time.Second,
			MaxConsecutiveFailures: 5,
			OpenTimeout:            time.Minute,
		},
		Features: FeaturesConfig{
			HeavyEventThreshold: 5,
		},
		Model: ModelConfig{
			Path: "models/ridedemand.json",
		},
		Dashboard: DashboardConfig{
			ListenAddr:  ":8080",
			DefaultDays: 7,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from the defaults, the YAML file at path when given, the .env
// file and the environment, in increasing order of precedence.
func Load(path, envFile string) (*Config, error) {
	loadEnvFile(envFile)

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s, %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s, %w: %s", path, ErrInvalidConfig, err.Error())
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) {
	if envFile == "" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "error", err.Error())
		}
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("unable to load env file", "path", envFile, "error", err.Error())
	}
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvDataDir:    &c.DataDir,
		EnvListenAddr: &c.Dashboard.ListenAddr,
		EnvLogLevel:   &c.Log.Level,
		EnvModelPath:  &c.Model.Path,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// Validate checks the field constraints, the timezone and the order of every configured range
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w, %s", ErrInvalidConfig, err.Error())
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q, %w: %s", c.Timezone, ErrInvalidConfig, err.Error())
	}
	c.location = loc

	wStart, wEnd := c.WeatherDates()
	if wStart.After(wEnd) {
		return fmt.Errorf("weather %s to %s, %w", c.Weather.StartDate, c.Weather.EndDate, ErrBadRange)
	}
	eStart, eEnd := c.EventsRange()
	if !eStart.Before(eEnd) {
		return fmt.Errorf("events %s to %s, %w", c.Events.Start, c.Events.End, ErrBadRange)
	}
	return nil
}

// Location is the timezone of the naive source timestamps and of the calendar features
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// WeatherDates returns the inclusive weather date range
func (c *Config) WeatherDates() (time.Time, time.Time) {
	start, _ := time.Parse(dateLayout, c.Weather.StartDate)
	end, _ := time.Parse(dateLayout, c.Weather.EndDate)
	return start, end
}

// EventsRange returns the [start, end) range of event start times as absolute instants
func (c *Config) EventsRange() (time.Time, time.Time) {
	start, _ := time.ParseInLocation(floatingLayout, c.Events.Start, c.Location())
	end, _ := time.ParseInLocation(floatingLayout, c.Events.End, c.Location())
	return start.UTC(), end.UTC()
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
