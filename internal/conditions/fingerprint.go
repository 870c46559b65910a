package conditions

import (
	"github.com/surfreport/hub/internal/models"
)

// Fingerprint extracts the comparison features from a summary. Optional fields stay nil or empty
// when the underlying variable was not in the forecast.
func Fingerprint(summary models.WeatherSummary) models.ConditionFingerprint {
	fp := models.ConditionFingerprint{
		WaveHeightAvg:  summary.Averages[models.VarWaveHeight],
		WindSpeedAvg:   summary.Averages[models.VarWindSpeed],
		WindDirection:  summary.WindDirection,
		SwellDirection: summary.SwellDirection,
		TideState:      summary.TideState,
	}

	fp.WavePeriodAvg = optional(summary.Averages, models.VarWavePeriod)
	fp.Temperature = optional(summary.Averages, models.VarTemperature)
	fp.CloudCover = optional(summary.Averages, models.VarCloudCover)

	return fp
}

func optional(values map[string]float64, name string) *float64 {
	v, ok := values[name]
	if !ok {
		return nil
	}

	return &v
}
