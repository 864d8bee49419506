package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-ridedemand/aggregate"
	"github.com/goccy/go-json"
)

const (
	DefaultWeatherURL = "https://archive-api.open-meteo.com/v1/era5"

	weatherTimeLayout = "2006-01-02T15:04"
)

// WeatherVariables are the hourly variables requested from the archive
var WeatherVariables = []string{"temperature_2m", "precipitation", "weathercode", "windspeed_10m"}

// WeatherConfig configures the weather archive source
type WeatherConfig struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	// StartDate and EndDate are inclusive YYYY-MM-DD dates
	StartDate string
	EndDate   string
}

type WeatherSource struct {
	cfg    WeatherConfig
	client *Client
}

func NewWeatherSource(cfg WeatherConfig, client *Client) *WeatherSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultWeatherURL
	}
	return &WeatherSource{cfg: cfg, client: client}
}

// openMeteoResponse is the archive payload. Each hourly variable is a column aligned with time.
type openMeteoResponse struct {
	Hourly *struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		Precipitation []*float64 `json:"precipitation"`
		WeatherCode   []*float64 `json:"weathercode"`
		Windspeed     []*float64 `json:"windspeed_10m"`
	} `json:"hourly"`
}

// URL returns the archive request. Hours are requested in GMT so that every hour exists exactly
// once.
func (ws *WeatherSource) URL() string {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(ws.cfg.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(ws.cfg.Longitude, 'f', -1, 64))
	values.Set("start_date", ws.cfg.StartDate)
	values.Set("end_date", ws.cfg.EndDate)
	values.Set("hourly", strings.Join(WeatherVariables, ","))
	values.Set("timezone", "GMT")
	return fmt.Sprintf("%s?%s", ws.cfg.BaseURL, values.Encode())
}

// Fetch requests the archive and returns one observation per reported hour
func (ws *WeatherSource) Fetch(ctx context.Context) ([]aggregate.WeatherObservation, error) {
	resp, err := ws.client.Get(ctx, ws.URL())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return DecodeWeather(body)
}

// DecodeWeather parses an archive payload. Every variable column must have one value per
// timestamp; null values become NaN.
func DecodeWeather(body []byte) ([]aggregate.WeatherObservation, error) {
	var payload openMeteoResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w, %s", ErrSchemaViolation, err.Error())
	}
	if payload.Hourly == nil {
		return nil, fmt.Errorf("no hourly field in weather response, %w", ErrSchemaViolation)
	}
	h := payload.Hourly
	n := len(h.Time)
	for name, col := range map[string][]*float64{
		"temperature_2m": h.Temperature,
		"precipitation":  h.Precipitation,
		"weathercode":    h.WeatherCode,
		"windspeed_10m":  h.Windspeed,
	} {
		if len(col) != n {
			return nil, fmt.Errorf("%s has %d values for %d timestamps, %w", name, len(col), n, ErrSchemaViolation)
		}
	}

	obs := make([]aggregate.WeatherObservation, n)
	for i, ts := range h.Time {
		t, err := time.ParseInLocation(weatherTimeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("weather time %q, %w", ts, ErrSchemaViolation)
		}
		obs[i] = aggregate.WeatherObservation{
			T:             t,
			Temperature:   orNaN(h.Temperature[i]),
			Precipitation: orNaN(h.Precipitation[i]),
			Windspeed:     orNaN(h.Windspeed[i]),
			WeatherCode:   orNaN(h.WeatherCode[i]),
		}
	}
	return obs, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
