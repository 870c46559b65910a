package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/surfreport/hub/internal/models"
)

// TemplateGenerator writes a short deterministic report without any AI backend.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a TemplateGenerator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate implements Generator. It never fails.
func (g *TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	var sentences []string

	sentences = append(sentences, fmt.Sprintf("%d-day outlook for %s.", req.HorizonDays, req.SpotName))

	waves := fmt.Sprintf("Waves average %.1f m (up to %.1f m)",
		req.Summary.Averages[models.VarWaveHeight], req.Summary.Maxima[models.VarWaveHeight])
	if req.Fingerprint.SwellDirection != "" {
		waves += " on a " + req.Fingerprint.SwellDirection + " swell"
	}

	sentences = append(sentences, waves+".")

	wind := fmt.Sprintf("Wind averages %.0f km/h", req.Fingerprint.WindSpeedAvg)
	if req.Fingerprint.WindDirection != "" {
		wind += " from the " + req.Fingerprint.WindDirection
	}

	sentences = append(sentences, wind+".")

	if dominant := dominantCondition(req.Summary); dominant != "" {
		sentences = append(sentences, fmt.Sprintf("Mostly %s conditions (%d of %d hours).",
			dominant, req.Summary.ConditionCounts[dominant], req.Summary.TotalHours))
	}

	if req.Fingerprint.TideState != "" {
		sentences = append(sentences, "Tide is currently "+req.Fingerprint.TideState+".")
	}

	if p := req.Preferences; p != nil && len(p.PreferredWind) > 0 && req.Fingerprint.WindDirection != "" {
		if containsFold(p.PreferredWind, req.Fingerprint.WindDirection) {
			sentences = append(sentences, "The prevailing wind matches your preferred direction.")
		} else {
			sentences = append(sentences, "The prevailing wind is not one of your preferred directions.")
		}
	}

	return strings.Join(sentences, " "), nil
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}

	return false
}

var _ Generator = (*TemplateGenerator)(nil)
