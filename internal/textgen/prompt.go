package textgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/surfreport/hub/internal/conditions"
	"github.com/surfreport/hub/internal/models"
)

const systemPrompt = "You are a surf forecaster. Write a concise, practical surf report in plain prose " +
	"(no markdown headings) from the forecast data provided. Mention the best windows, wind quality " +
	"and anything a surfer should watch out for. Do not invent data that is not given."

// conditionOrder lists labels smallest to largest for stable output.
var conditionOrder = []models.SurfCondition{
	models.ConditionFlat, models.ConditionSmall, models.ConditionMedium,
	models.ConditionGood, models.ConditionExcellent, models.ConditionEpic,
}

// BuildPrompt renders the system and user messages for an LLM backend.
func BuildPrompt(req Request) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Spot: %s\n", req.SpotName)
	fmt.Fprintf(&b, "Forecast window: %d days (%d hours)\n", req.HorizonDays, req.Summary.TotalHours)

	writeStat(&b, "Wave height", req.Summary, models.VarWaveHeight, "m")
	writeStat(&b, "Swell height", req.Summary, models.VarSwellHeight, "m")
	writeStat(&b, "Wave period", req.Summary, models.VarWavePeriod, "s")
	writeStat(&b, "Wind speed", req.Summary, models.VarWindSpeed, "km/h")
	writeStat(&b, "Wind gusts", req.Summary, models.VarWindGusts, "km/h")
	writeStat(&b, "Air temperature", req.Summary, models.VarTemperature, "C")

	if req.Fingerprint.WindDirection != "" {
		fmt.Fprintf(&b, "Prevailing wind: %s\n", req.Fingerprint.WindDirection)
	}

	if req.Fingerprint.SwellDirection != "" {
		fmt.Fprintf(&b, "Prevailing swell: %s\n", req.Fingerprint.SwellDirection)
	}

	if req.Fingerprint.TideState != "" {
		fmt.Fprintf(&b, "Tide now: %s\n", req.Fingerprint.TideState)
	}

	if counts := conditionCounts(req.Summary); counts != "" {
		fmt.Fprintf(&b, "Hours by condition (flat <%.1fm, small <%.1fm, medium <%.1fm, good <%.1fm, excellent <%.1fm, epic above): %s\n",
			conditions.FlatBelow, conditions.SmallBelow, conditions.MediumBelow,
			conditions.GoodBelow, conditions.ExcellentBelow, counts)
	}

	if p := req.Preferences; p != nil {
		b.WriteString("Surfer preferences:\n")

		if p.SkillLevel != "" {
			fmt.Fprintf(&b, "- skill level: %s\n", p.SkillLevel)
		}

		if p.BoardType != "" {
			fmt.Fprintf(&b, "- board: %s\n", p.BoardType)
		}

		if len(p.PreferredWind) > 0 {
			fmt.Fprintf(&b, "- preferred wind: %s\n", strings.Join(p.PreferredWind, ", "))
		}

		if p.MinWaveHeight != nil || p.MaxWaveHeight != nil {
			fmt.Fprintf(&b, "- wave range: %s to %s m\n", optionalNumber(p.MinWaveHeight), optionalNumber(p.MaxWaveHeight))
		}

		if p.BestConditions != "" {
			fmt.Fprintf(&b, "- best conditions at this spot: %s\n", p.BestConditions)
		}

		if p.BadConditions != "" {
			fmt.Fprintf(&b, "- conditions to avoid: %s\n", p.BadConditions)
		}
	}

	return systemPrompt, b.String()
}

func writeStat(b *strings.Builder, label string, summary models.WeatherSummary, name, unit string) {
	avg, ok := summary.Averages[name]
	if !ok {
		return
	}

	fmt.Fprintf(b, "%s: avg %.2f %s, max %.2f %s\n", label, avg, unit, summary.Maxima[name], unit)
}

func conditionCounts(summary models.WeatherSummary) string {
	parts := make([]string, 0, len(summary.ConditionCounts))

	for _, c := range conditionOrder {
		if n := summary.ConditionCounts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", c, n))
		}
	}

	return strings.Join(parts, ", ")
}

func optionalNumber(v *float64) string {
	if v == nil {
		return "any"
	}

	return fmt.Sprintf("%.1f", *v)
}

// dominantCondition returns the label with the most hours, larger label winning ties.
func dominantCondition(summary models.WeatherSummary) models.SurfCondition {
	type entry struct {
		condition models.SurfCondition
		rank      int
		hours     int
	}

	entries := make([]entry, 0, len(conditionOrder))
	for rank, c := range conditionOrder {
		entries = append(entries, entry{condition: c, rank: rank, hours: summary.ConditionCounts[c]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].hours != entries[j].hours {
			return entries[i].hours > entries[j].hours
		}

		return entries[i].rank > entries[j].rank
	})

	if entries[0].hours == 0 {
		return ""
	}

	return entries[0].condition
}
