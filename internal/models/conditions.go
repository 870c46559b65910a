package models

import (
	"time"
)

// SurfCondition is the per-hour qualitative bucket derived from wave and swell height.
type SurfCondition string

// Surf condition buckets, smallest to largest.
const (
	ConditionFlat      SurfCondition = "flat"
	ConditionSmall     SurfCondition = "small"
	ConditionMedium    SurfCondition = "medium"
	ConditionGood      SurfCondition = "good"
	ConditionExcellent SurfCondition = "excellent"
	ConditionEpic      SurfCondition = "epic"
)

// HourlyCondition is one forecast hour with its derived condition label.
type HourlyCondition struct {
	Time           time.Time     `json:"time"`
	WaveHeight     float64       `json:"wave_height"`
	WavePeriod     float64       `json:"wave_period"`
	SwellHeight    float64       `json:"swell_height"`
	SwellDirection string        `json:"swell_direction,omitempty"`
	WindSpeed      float64       `json:"wind_speed"`
	WindDirection  string        `json:"wind_direction,omitempty"`
	Temperature    float64       `json:"temperature"`
	Condition      SurfCondition `json:"condition"`
}

// WeatherSummary holds the scalar statistics of a CombinedSeries. Averages and Maxima are keyed
// by variable name; all numbers are rounded to two decimals.
type WeatherSummary struct {
	Averages   map[string]float64 `json:"averages"`
	Maxima     map[string]float64 `json:"maxima"`
	TotalHours int                `json:"total_hours"`
	Hourly     []HourlyCondition  `json:"hourly"`

	// Representative cardinal directions (mode of the hourly buckets). Empty when the
	// variable was not present in the series.
	WindDirection  string `json:"wind_direction,omitempty"`
	SwellDirection string `json:"swell_direction,omitempty"`
	TideState      string `json:"tide_state,omitempty"`

	// ConditionCounts counts hours per condition label.
	ConditionCounts map[SurfCondition]int `json:"condition_counts"`
}

// Tide states derived from the sea level series.
const (
	TideHigh    = "high"
	TideLow     = "low"
	TideRising  = "rising"
	TideFalling = "falling"
)

// ConditionFingerprint is the compact named-feature summary that gets embedded and compared.
// Optional fields are nil or empty when the source data did not carry them.
type ConditionFingerprint struct {
	WaveHeightAvg  float64  `json:"wave_height_avg"`
	WavePeriodAvg  *float64 `json:"wave_period_avg,omitempty"`
	WindSpeedAvg   float64  `json:"wind_speed_avg"`
	WindDirection  string   `json:"wind_direction,omitempty"`
	SwellDirection string   `json:"swell_direction,omitempty"`
	TideState      string   `json:"tide_state,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	CloudCover     *float64 `json:"cloud_cover,omitempty"`
}
