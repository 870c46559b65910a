package conditions

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfreport/hub/internal/models"
)

func TestCardinal(t *testing.T) {
	tests := []struct {
		degrees  float64
		expected string
	}{
		{0, "N"},
		{22.4, "N"},
		{22.5, "NE"},
		{67.49, "NE"},
		{90, "E"},
		{180, "S"},
		{202.5, "SW"},
		{315, "NW"},
		{337.4, "NW"},
		{337.5, "N"},
		{359.9, "N"},
		{360, "N"},
		{-45, "NW"},
		{720 + 90, "E"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Cardinal(tt.degrees), "degrees=%v", tt.degrees)
	}
}

func TestModeCardinal(t *testing.T) {
	// A circular mean of these would land near N; the mode must not.
	assert.Equal(t, "NW", ModeCardinal([]float64{350, 315, 320, 10, 310}))
	assert.Equal(t, "N", ModeCardinal([]float64{350, 5}))
	assert.Equal(t, "E", ModeCardinal([]float64{90, 180}), "ties go to the first label clockwise from north")
	assert.Equal(t, "", ModeCardinal(nil))
	assert.Equal(t, "", ModeCardinal([]float64{math.NaN()}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		height   float64
		expected models.SurfCondition
	}{
		{0, models.ConditionFlat},
		{0.49, models.ConditionFlat},
		{0.5, models.ConditionSmall},
		{0.99, models.ConditionSmall},
		{1.0, models.ConditionMedium},
		{1.5, models.ConditionGood},
		{2.49, models.ConditionGood},
		{2.5, models.ConditionExcellent},
		{3.5, models.ConditionEpic},
		{8, models.ConditionEpic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.height), "height=%v", tt.height)
	}
}

func series(hours int, values map[string][]float64) models.CombinedSeries {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, hours)

	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}

	return models.CombinedSeries{Sources: []string{"marine", "atmospheric"}, Time: times, Values: values}
}

func TestSummarize(t *testing.T) {
	s := series(3, map[string][]float64{
		models.VarWaveHeight:     {0.4, 1.2, 2.0},
		models.VarSwellHeight:    {0.6, 0.8, math.NaN()},
		models.VarWindSpeed:      {10, 20, 30.333},
		models.VarWindDirection:  {300, 310, 90},
		models.VarSwellDirection: {math.NaN(), math.NaN(), math.NaN()},
	})

	summary := Summarize(s)

	assert.Equal(t, 3, summary.TotalHours)
	assert.InDelta(t, 1.2, summary.Averages[models.VarWaveHeight], 1e-9)
	assert.InDelta(t, 2.0, summary.Maxima[models.VarWaveHeight], 1e-9)
	assert.InDelta(t, 0.47, summary.Averages[models.VarSwellHeight], 1e-9, "NaN counts as 0, rounded to 2 decimals")
	assert.InDelta(t, 20.11, summary.Averages[models.VarWindSpeed], 1e-9)
	assert.InDelta(t, 30.33, summary.Maxima[models.VarWindSpeed], 1e-9)

	require.Len(t, summary.Hourly, 3)
	assert.Equal(t, models.ConditionSmall, summary.Hourly[0].Condition, "swell 0.6 beats wave 0.4")
	assert.Equal(t, models.ConditionMedium, summary.Hourly[1].Condition)
	assert.Equal(t, models.ConditionGood, summary.Hourly[2].Condition)
	assert.Equal(t, "E", summary.Hourly[2].WindDirection)
	assert.Equal(t, "", summary.Hourly[0].SwellDirection)

	assert.Equal(t, "NW", summary.WindDirection)
	assert.Equal(t, "", summary.SwellDirection)
	assert.Equal(t, "", summary.TideState, "no sea level variable")
	assert.Equal(t, 1, summary.ConditionCounts[models.ConditionGood])
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(models.CombinedSeries{})

	assert.Equal(t, 0, summary.TotalHours)
	assert.Empty(t, summary.Hourly)
	assert.Empty(t, summary.Averages)
}

func TestSummarize_NoNaN(t *testing.T) {
	s := series(4, map[string][]float64{
		models.VarWaveHeight:  {math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		models.VarTemperature: {math.Inf(1), 10, 12, 14},
	})

	summary := Summarize(s)

	for name, v := range summary.Averages {
		assert.False(t, math.IsNaN(v), name)
	}

	for name, v := range summary.Maxima {
		assert.False(t, math.IsNaN(v), name)
	}
}

func TestTideState(t *testing.T) {
	tests := []struct {
		name     string
		levels   []float64
		expected string
	}{
		{"high", []float64{0.9, 0.7, 0, -0.5}, models.TideHigh},
		{"low", []float64{-0.5, -0.3, 0.4, 0.9}, models.TideLow},
		{"rising", []float64{0, 0.2, 0.6, -0.6}, models.TideRising},
		{"falling", []float64{0, -0.2, 0.6, -0.6}, models.TideFalling},
		{"flat", []float64{0.1, 0.1, 0.1}, ""},
		{"too short", []float64{0.1}, ""},
		{"nan skipped", []float64{math.NaN(), 0.9, 0.7, -0.5}, models.TideHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TideState(tt.levels))
		})
	}
}

func TestFingerprint(t *testing.T) {
	s := series(2, map[string][]float64{
		models.VarWaveHeight:    {1.0, 1.4},
		models.VarWavePeriod:    {10, 12},
		models.VarWindSpeed:     {14, 16},
		models.VarWindDirection: {315, 320},
		models.VarSeaLevel:      {0.5, -0.5},
	})

	fp := Fingerprint(Summarize(s))

	assert.InDelta(t, 1.2, fp.WaveHeightAvg, 1e-9)
	require.NotNil(t, fp.WavePeriodAvg)
	assert.InDelta(t, 11.0, *fp.WavePeriodAvg, 1e-9)
	assert.InDelta(t, 15.0, fp.WindSpeedAvg, 1e-9)
	assert.Equal(t, "NW", fp.WindDirection)
	assert.Equal(t, models.TideHigh, fp.TideState)
	assert.Nil(t, fp.Temperature, "temperature absent from the series")
	assert.Nil(t, fp.CloudCover)
	assert.Empty(t, fp.SwellDirection)
}

func TestFingerprint_EmptySummary(t *testing.T) {
	fp := Fingerprint(Summarize(models.CombinedSeries{}))

	assert.Zero(t, fp.WaveHeightAvg)
	assert.Nil(t, fp.WavePeriodAvg)
	assert.Empty(t, fp.WindDirection)
}
