// Package forecasttest builds Open-Meteo style response bodies for tests.
package forecasttest

import (
	"encoding/json"
	"math"
	"time"
)

// Start is the first hour used by the fixtures.
var Start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func hourly(hours int, fn func(i int) float64) []float64 {
	out := make([]float64, hours)
	for i := range out {
		out[i] = math.Round(fn(i)*100) / 100
	}

	return out
}

func times(hours int) []string {
	out := make([]string, hours)
	for i := range out {
		out[i] = Start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
	}

	return out
}

func envelope(hourlyFields map[string]any) []byte {
	body, err := json.Marshal(map[string]any{
		"latitude":           -38.0,
		"longitude":          -57.5,
		"utc_offset_seconds": 0,
		"timezone":           "GMT",
		"hourly":             hourlyFields,
	})
	if err != nil {
		panic(err)
	}

	return body
}

// MarineBody returns a marine answer with hours entries of slowly varying wave data.
func MarineBody(hours int) []byte {
	return envelope(map[string]any{
		"time":                 times(hours),
		"wave_height":          hourly(hours, func(i int) float64 { return 1.2 + 0.3*math.Sin(float64(i)/6) }),
		"wave_direction":       hourly(hours, func(int) float64 { return 170 }),
		"wave_period":          hourly(hours, func(i int) float64 { return 9 + math.Cos(float64(i)/8) }),
		"swell_wave_height":    hourly(hours, func(i int) float64 { return 0.9 + 0.2*math.Cos(float64(i)/5) }),
		"swell_wave_direction": hourly(hours, func(int) float64 { return 180 }),
		"swell_wave_period":    hourly(hours, func(int) float64 { return 11 }),
		"sea_level_height_msl": hourly(hours, func(i int) float64 { return 0.6 * math.Sin(float64(i)*math.Pi/6.2) }),
	})
}

// AtmosphericBody returns an atmospheric answer with hours entries.
func AtmosphericBody(hours int) []byte {
	return envelope(map[string]any{
		"time":               times(hours),
		"temperature_2m":     hourly(hours, func(i int) float64 { return 16 + 4*math.Sin(float64(i)/4) }),
		"wind_speed_10m":     hourly(hours, func(i int) float64 { return 15 + 5*math.Cos(float64(i)/7) }),
		"wind_direction_10m": hourly(hours, func(int) float64 { return 315 }),
		"wind_gusts_10m":     hourly(hours, func(i int) float64 { return 25 + 5*math.Cos(float64(i)/7) }),
		"cloud_cover":        hourly(hours, func(i int) float64 { return float64(i % 100) }),
		"precipitation":      hourly(hours, func(int) float64 { return 0 }),
	})
}
