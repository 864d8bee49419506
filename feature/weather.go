package feature

import "strings"

// Weather feature holding an hourly weather reading or a value derived from one
type Weather struct {
	Name string `json:"name"`
}

var (
	Temperature   = NewWeather("temperature_2m")
	Precipitation = NewWeather("precipitation")
	Windspeed     = NewWeather("windspeed_10m")
	WeatherCode   = NewWeather("weathercode")
	IsRain        = NewWeather("is_rain")
)

func init() {
	register(Temperature, Precipitation, Windspeed, WeatherCode, IsRain)
}

func NewWeather(name string) *Weather {
	return &Weather{name}
}

func (w Weather) String() string {
	return w.Name
}

func (w Weather) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return w.Name, true
	}
	return "", false
}

func (w Weather) Type() FeatureType {
	return FeatureTypeWeather
}

func (w Weather) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = w.Name
	return res
}
