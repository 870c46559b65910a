package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/surfreport/hub/internal/models"
)

// Source names.
const (
	SourceMarine      = "marine"
	SourceAtmospheric = "atmospheric"
)

// openMeteoTimeLayout is the hourly timestamp format returned with timezone=auto.
const openMeteoTimeLayout = "2006-01-02T15:04"

var (
	marineVariables = []string{
		models.VarWaveHeight, models.VarWaveDirection, models.VarWavePeriod,
		models.VarSwellHeight, models.VarSwellDirection, models.VarSwellPeriod,
		models.VarWindWaveHeight, models.VarWindWaveDirection,
		models.VarSeaLevel, models.VarSeaSurfaceTemp,
	}
	atmosphericVariables = []string{
		models.VarTemperature, models.VarWindSpeed, models.VarWindDirection,
		models.VarWindGusts, models.VarCloudCover, models.VarPrecipitation,
	}
)

// openMeteoEnvelope holds the fields shared by every Open-Meteo answer.
type openMeteoEnvelope struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	UTCOffsetSeconds int     `json:"utc_offset_seconds"`
	Timezone         string  `json:"timezone"`
	Error            bool    `json:"error"`
	Reason           string  `json:"reason"`
}

type marineResponse struct {
	openMeteoEnvelope
	Hourly struct {
		Time              []string   `json:"time"`
		WaveHeight        []*float64 `json:"wave_height"`
		WaveDirection     []*float64 `json:"wave_direction"`
		WavePeriod        []*float64 `json:"wave_period"`
		SwellHeight       []*float64 `json:"swell_wave_height"`
		SwellDirection    []*float64 `json:"swell_wave_direction"`
		SwellPeriod       []*float64 `json:"swell_wave_period"`
		WindWaveHeight    []*float64 `json:"wind_wave_height"`
		WindWaveDirection []*float64 `json:"wind_wave_direction"`
		SeaLevel          []*float64 `json:"sea_level_height_msl"`
		SeaSurfaceTemp    []*float64 `json:"sea_surface_temperature"`
	} `json:"hourly"`
}

type atmosphericResponse struct {
	openMeteoEnvelope
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		WindSpeed     []*float64 `json:"wind_speed_10m"`
		WindDirection []*float64 `json:"wind_direction_10m"`
		WindGusts     []*float64 `json:"wind_gusts_10m"`
		CloudCover    []*float64 `json:"cloud_cover"`
		Precipitation []*float64 `json:"precipitation"`
	} `json:"hourly"`
}

// OpenMeteoSource is an Open-Meteo endpoint (marine or atmospheric).
type OpenMeteoSource struct {
	name      string
	baseURL   string
	timezone  string
	variables []string
}

// NewMarineSource returns the Open-Meteo marine source.
func NewMarineSource(baseURL, timezone string) *OpenMeteoSource {
	return &OpenMeteoSource{name: SourceMarine, baseURL: baseURL, timezone: timezone, variables: marineVariables}
}

// NewAtmosphericSource returns the Open-Meteo atmospheric source.
func NewAtmosphericSource(baseURL, timezone string) *OpenMeteoSource {
	return &OpenMeteoSource{name: SourceAtmospheric, baseURL: baseURL, timezone: timezone, variables: atmosphericVariables}
}

// Name implements Source.
func (s *OpenMeteoSource) Name() string { return s.name }

// URL implements Source.
func (s *OpenMeteoSource) URL(point models.Point, horizonDays int) (string, error) {
	if horizonDays <= 0 {
		return "", fmt.Errorf("horizon must be positive, got %d", horizonDays)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(point.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(point.Longitude, 'f', 4, 64))
	q.Set("hourly", strings.Join(s.variables, ","))
	q.Set("forecast_days", strconv.Itoa(horizonDays))

	if s.timezone != "" {
		q.Set("timezone", s.timezone)
	}

	if s.name == SourceAtmospheric {
		q.Set("wind_speed_unit", "kmh")
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Decode implements Source.
func (s *OpenMeteoSource) Decode(body []byte) (models.RawSeries, error) {
	switch s.name {
	case SourceMarine:
		var resp marineResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return models.RawSeries{}, fmt.Errorf("unmarshal marine response: %w", err)
		}

		h := resp.Hourly

		return buildSeries(s.name, resp.openMeteoEnvelope, h.Time, map[string][]*float64{
			models.VarWaveHeight:        h.WaveHeight,
			models.VarWaveDirection:     h.WaveDirection,
			models.VarWavePeriod:        h.WavePeriod,
			models.VarSwellHeight:       h.SwellHeight,
			models.VarSwellDirection:    h.SwellDirection,
			models.VarSwellPeriod:       h.SwellPeriod,
			models.VarWindWaveHeight:    h.WindWaveHeight,
			models.VarWindWaveDirection: h.WindWaveDirection,
			models.VarSeaLevel:          h.SeaLevel,
			models.VarSeaSurfaceTemp:    h.SeaSurfaceTemp,
		})
	case SourceAtmospheric:
		var resp atmosphericResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return models.RawSeries{}, fmt.Errorf("unmarshal atmospheric response: %w", err)
		}

		h := resp.Hourly

		return buildSeries(s.name, resp.openMeteoEnvelope, h.Time, map[string][]*float64{
			models.VarTemperature:   h.Temperature,
			models.VarWindSpeed:     h.WindSpeed,
			models.VarWindDirection: h.WindDirection,
			models.VarWindGusts:     h.WindGusts,
			models.VarCloudCover:    h.CloudCover,
			models.VarPrecipitation: h.Precipitation,
		})
	default:
		return models.RawSeries{}, fmt.Errorf("unknown source %q", s.name)
	}
}

// buildSeries converts typed hourly arrays into a RawSeries. Variables absent from the answer
// are omitted; null entries become NaN; a present variable whose length differs from time is an error.
func buildSeries(source string, env openMeteoEnvelope, rawTimes []string, vars map[string][]*float64) (models.RawSeries, error) {
	if env.Error {
		return models.RawSeries{}, fmt.Errorf("upstream error: %s", env.Reason)
	}

	if len(rawTimes) == 0 {
		return models.RawSeries{}, errors.New("response has no hourly time entries")
	}

	loc := time.FixedZone(env.Timezone, env.UTCOffsetSeconds)

	times := make([]time.Time, len(rawTimes))
	for i, raw := range rawTimes {
		t, err := time.ParseInLocation(openMeteoTimeLayout, raw, loc)
		if err != nil {
			return models.RawSeries{}, fmt.Errorf("parse time %q: %w", raw, err)
		}

		times[i] = t
	}

	values := make(map[string][]float64, len(vars))

	for name, arr := range vars {
		if arr == nil {
			continue
		}

		if len(arr) != len(times) {
			return models.RawSeries{}, fmt.Errorf("variable %s has %d entries, time has %d", name, len(arr), len(times))
		}

		out := make([]float64, len(arr))
		for i, v := range arr {
			if v == nil {
				out[i] = math.NaN()
			} else {
				out[i] = *v
			}
		}

		values[name] = out
	}

	return models.RawSeries{Source: source, Time: times, Values: values}, nil
}
