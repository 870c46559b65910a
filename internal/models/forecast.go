package models

import (
	"time"
)

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Hourly variable names shared by forecast sources, the merger and the summarizer.
const (
	VarWaveHeight        = "wave_height"
	VarWaveDirection     = "wave_direction"
	VarWavePeriod        = "wave_period"
	VarSwellHeight       = "swell_wave_height"
	VarSwellDirection    = "swell_wave_direction"
	VarSwellPeriod       = "swell_wave_period"
	VarSeaLevel          = "sea_level_height_msl"
	VarTemperature       = "temperature_2m"
	VarWindSpeed         = "wind_speed_10m"
	VarWindDirection     = "wind_direction_10m"
	VarWindGusts         = "wind_gusts_10m"
	VarCloudCover        = "cloud_cover"
	VarPrecipitation     = "precipitation"
	VarSeaSurfaceTemp    = "sea_surface_temperature"
	VarWindWaveHeight    = "wind_wave_height"
	VarWindWaveDirection = "wind_wave_direction"
)

// RawSeries is the hourly output of one forecast source. Every slice in Values has the
// same length as Time. Missing upstream values are stored as NaN.
type RawSeries struct {
	Source string
	Time   []time.Time
	Values map[string][]float64
}

// Len returns the number of hourly entries.
func (r RawSeries) Len() int {
	return len(r.Time)
}

// CombinedSeries is the element-wise merge of several RawSeries truncated to their shortest
// common length. Time comes from the canonical (first) source.
type CombinedSeries struct {
	Sources []string
	Time    []time.Time
	Values  map[string][]float64
}

// Len returns the number of hourly entries.
func (c CombinedSeries) Len() int {
	return len(c.Time)
}

// Has reports whether the series carries variable name.
func (c CombinedSeries) Has(name string) bool {
	_, ok := c.Values[name]

	return ok
}
