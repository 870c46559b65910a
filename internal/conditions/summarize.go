// Package conditions turns combined forecast series into weather summaries and condition
// fingerprints. Everything here is pure.
package conditions

import (
	"math"

	"github.com/surfreport/hub/internal/models"
)

// Surf condition thresholds in meters, applied to max(wave height, swell height) per hour.
// These are fixed policy values: the labels they produce feed the report text.
const (
	FlatBelow      = 0.5
	SmallBelow     = 1.0
	MediumBelow    = 1.5
	GoodBelow      = 2.5
	ExcellentBelow = 3.5
)

// Tide position bounds within the forecast sea level range.
const (
	tideHighFrom = 0.75
	tideLowUpTo  = 0.25
)

// Classify buckets a wave height into a surf condition.
func Classify(height float64) models.SurfCondition {
	switch {
	case height < FlatBelow:
		return models.ConditionFlat
	case height < SmallBelow:
		return models.ConditionSmall
	case height < MediumBelow:
		return models.ConditionMedium
	case height < GoodBelow:
		return models.ConditionGood
	case height < ExcellentBelow:
		return models.ConditionExcellent
	default:
		return models.ConditionEpic
	}
}

// Summarize computes means and maxima for every variable in the series, a per-hour condition
// record, representative directions and the tide state. Missing values count as 0.
func Summarize(series models.CombinedSeries) models.WeatherSummary {
	n := series.Len()

	summary := models.WeatherSummary{
		Averages:        make(map[string]float64, len(series.Values)),
		Maxima:          make(map[string]float64, len(series.Values)),
		TotalHours:      n,
		Hourly:          make([]models.HourlyCondition, 0, n),
		ConditionCounts: make(map[models.SurfCondition]int),
	}

	for name, values := range series.Values {
		avg, maxV := meanMax(values[:min(n, len(values))])
		summary.Averages[name] = round2(avg)
		summary.Maxima[name] = round2(maxV)
	}

	at := func(name string, i int) float64 {
		values, ok := series.Values[name]
		if !ok || i >= len(values) {
			return 0
		}

		return orZero(values[i])
	}

	direction := func(name string, i int) string {
		values, ok := series.Values[name]
		if !ok || i >= len(values) {
			return ""
		}

		return Cardinal(values[i])
	}

	for i := range n {
		wave := at(models.VarWaveHeight, i)
		swell := at(models.VarSwellHeight, i)
		condition := Classify(math.Max(wave, swell))

		summary.Hourly = append(summary.Hourly, models.HourlyCondition{
			Time:           series.Time[i],
			WaveHeight:     round2(wave),
			WavePeriod:     round2(at(models.VarWavePeriod, i)),
			SwellHeight:    round2(swell),
			SwellDirection: direction(models.VarSwellDirection, i),
			WindSpeed:      round2(at(models.VarWindSpeed, i)),
			WindDirection:  direction(models.VarWindDirection, i),
			Temperature:    round2(at(models.VarTemperature, i)),
			Condition:      condition,
		})
		summary.ConditionCounts[condition]++
	}

	if values, ok := series.Values[models.VarWindDirection]; ok {
		summary.WindDirection = ModeCardinal(values[:min(n, len(values))])
	}

	if values, ok := series.Values[models.VarSwellDirection]; ok {
		summary.SwellDirection = ModeCardinal(values[:min(n, len(values))])
	}

	if values, ok := series.Values[models.VarSeaLevel]; ok {
		summary.TideState = TideState(values[:min(n, len(values))])
	}

	return summary
}

// TideState derives the tide at the first hour from the sea level series: high or low when the
// level sits in the top or bottom quarter of the forecast range, otherwise rising or falling by
// the next hour's change. Returns "" when fewer than two usable values exist or the range is flat.
func TideState(levels []float64) string {
	usable := make([]float64, 0, len(levels))

	for _, v := range levels {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			usable = append(usable, v)
		}
	}

	if len(usable) < 2 {
		return ""
	}

	lo, hi := usable[0], usable[0]
	for _, v := range usable[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if hi-lo == 0 {
		return ""
	}

	position := (usable[0] - lo) / (hi - lo)

	switch {
	case position >= tideHighFrom:
		return models.TideHigh
	case position <= tideLowUpTo:
		return models.TideLow
	case usable[1] >= usable[0]:
		return models.TideRising
	default:
		return models.TideFalling
	}
}

func meanMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64

	maxV := math.Inf(-1)

	for _, v := range values {
		v = orZero(v)
		sum += v
		maxV = math.Max(maxV, v)
	}

	return sum / float64(len(values)), maxV
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
