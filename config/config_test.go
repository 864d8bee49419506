package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", cfg.Location().String())
	assert.Equal(t, 2015, cfg.Taxi.StartYear)
	assert.Equal(t, 2024, cfg.Taxi.EndYear)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, int64(5), cfg.Features.HeavyEventThreshold)
	assert.False(t, cfg.Features.RollingIncludeCurrent)
	assert.False(t, cfg.Join.AllowWeatherGaps)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	start, end := cfg.EventsRange()
	assert.Equal(t, time.Date(2015, 1, 1, 5, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC), end)

	wStart, wEnd := cfg.WeatherDates()
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), wStart)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), wEnd)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ridedemand.yaml", `
data_dir: /srv/ridedemand
taxi:
  start_year: 2023
  end_year: 2023
  parallelism: 4
http:
  timeout: 30s
features:
  rolling_include_current: true
  heavy_event_threshold: 3
join:
  allow_weather_gaps: true
log:
  level: debug
`)

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "/srv/ridedemand", cfg.DataDir)
	assert.Equal(t, 2023, cfg.Taxi.StartYear)
	assert.Equal(t, 4, cfg.Taxi.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.True(t, cfg.Features.RollingIncludeCurrent)
	assert.Equal(t, int64(3), cfg.Features.HeavyEventThreshold)
	assert.True(t, cfg.Join.AllowWeatherGaps)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	// untouched sections keep their defaults
	assert.Equal(t, "bkfu-528j", cfg.Events.Dataset)
	assert.Equal(t, 40.7128, cfg.Weather.Latitude)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "ridedemand.yaml", "data_dir: /from/yaml\n")
	t.Setenv(EnvDataDir, "/from/env")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvListenAddr, ":9090")

	// set by the env file only
	t.Setenv(EnvModelPath, "")
	require.NoError(t, os.Unsetenv(EnvModelPath))
	envFile := writeFile(t, ".env", EnvModelPath+"=/models/linear.json\n"+EnvDataDir+"=/from/dotenv\n")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, ":9090", cfg.Dashboard.ListenAddr)
	assert.Equal(t, "/models/linear.json", cfg.Model.Path)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoadInvalid(t *testing.T) {
	testData := map[string]struct {
		yaml string
		err  error
	}{
		"unknown timezone": {
			yaml: "timezone: Mars/Olympus_Mons\n",
			err:  ErrInvalidConfig,
		},
		"bad log level": {
			yaml: "log:\n  level: verbose\n",
			err:  ErrInvalidConfig,
		},
		"taxi years reversed": {
			yaml: "taxi:\n  start_year: 2020\n  end_year: 2019\n",
			err:  ErrInvalidConfig,
		},
		"zero heavy event threshold": {
			yaml: "features:\n  heavy_event_threshold: 0\n",
			err:  ErrInvalidConfig,
		},
		"bad weather date": {
			yaml: "weather:\n  start_date: 01/01/2015\n",
			err:  ErrInvalidConfig,
		},
		"weather range reversed": {
			yaml: "weather:\n  start_date: \"2024-01-02\"\n  end_date: \"2024-01-01\"\n",
			err:  ErrBadRange,
		},
		"empty events range": {
			yaml: "events:\n  start: \"2024-01-01T00:00:00\"\n  end: \"2024-01-01T00:00:00\"\n",
			err:  ErrBadRange,
		},
		"not yaml": {
			yaml: "taxi: [1, 2\n",
			err:  ErrInvalidConfig,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "ridedemand.yaml", td.yaml), noEnvFile(t))
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
