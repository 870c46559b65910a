package embeddings

import (
	"math"
	"strconv"
	"strings"

	"github.com/surfreport/hub/internal/models"
)

// RenderPhrase describes a fingerprint in a short sentence for text embedding backends, e.g.
// "wave height 1.2 meters, wind speed 15 km/h, wind direction NW, swell direction S".
// Field order is fixed so equal fingerprints render equal phrases.
func RenderPhrase(fp models.ConditionFingerprint) string {
	parts := []string{"wave height " + number(fp.WaveHeightAvg) + " meters"}

	if fp.WavePeriodAvg != nil {
		parts = append(parts, "wave period "+number(*fp.WavePeriodAvg)+" seconds")
	}

	parts = append(parts, "wind speed "+number(fp.WindSpeedAvg)+" km/h")

	if fp.WindDirection != "" {
		parts = append(parts, "wind direction "+fp.WindDirection)
	}

	if fp.SwellDirection != "" {
		parts = append(parts, "swell direction "+fp.SwellDirection)
	}

	if fp.TideState != "" {
		parts = append(parts, "tide "+fp.TideState)
	}

	if fp.Temperature != nil {
		parts = append(parts, "temperature "+number(*fp.Temperature)+" celsius")
	}

	if fp.CloudCover != nil {
		parts = append(parts, "cloud cover "+number(*fp.CloudCover)+" percent")
	}

	return strings.Join(parts, ", ")
}

func number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}

	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
