package embeddings

import (
	"context"
	"math"

	"github.com/surfreport/hub/internal/conditions"
	"github.com/surfreport/hub/internal/models"
	pkgembeddings "github.com/surfreport/hub/pkg/embeddings"
)

// projectionSegments is the number of equal slices the vector is split into, one per feature.
const projectionSegments = 6

// Projection is the deterministic numeric fallback. It needs no I/O and never fails: the same
// fingerprint always yields the bit-identical vector. It is a placeholder, not a trained model.
type Projection struct {
	dims int
}

// NewProjection creates a projection producing vectors of length dims.
func NewProjection(dims int) *Projection {
	return &Projection{dims: dims}
}

// Name implements Strategy.
func (p *Projection) Name() string { return StrategyProjection }

// Embed implements Strategy.
func (p *Projection) Embed(_ context.Context, fp models.ConditionFingerprint) ([]float32, error) {
	return p.Project(fp), nil
}

// Project maps the fingerprint's features into [0,1] and fills one segment per feature, modulated
// by a sine on even segments and a cosine on odd ones, then L2-normalizes the whole vector.
// Trailing positions that do not fill a whole segment stay zero.
func (p *Projection) Project(fp models.ConditionFingerprint) []float32 {
	vector := make([]float32, max(p.dims, 0))
	if len(vector) == 0 {
		return vector
	}

	features := projectionFeatures(fp)

	segLen := max(len(vector)/projectionSegments, 1)
	step := 2 * math.Pi / float64(segLen)

	for s, feature := range features {
		for j := range segLen {
			idx := s*segLen + j
			if idx >= len(vector) {
				break
			}

			var wave float64
			if s%2 == 0 {
				wave = math.Sin(float64(j) * step)
			} else {
				wave = math.Cos(float64(j) * step)
			}

			// Shift the carrier into [0,1] so segments stay non-negative.
			vector[idx] = float32(feature * (0.5 + 0.5*wave))
		}
	}

	if pkgembeddings.Magnitude(vector) == 0 {
		uniform := float32(1 / math.Sqrt(float64(len(vector))))
		for i := range vector {
			vector[i] = uniform
		}

		return vector
	}

	pkgembeddings.NormalizeL2(vector)

	return vector
}

// projectionFeatures returns the six scaled features. Absent optional values contribute 0.
func projectionFeatures(fp models.ConditionFingerprint) [projectionSegments]float64 {
	var period, temperature, cloud float64

	if fp.WavePeriodAvg != nil {
		period = unit(*fp.WavePeriodAvg / 20.0)
	}

	if fp.Temperature != nil {
		temperature = unit((*fp.Temperature + 10) / 50.0)
	}

	if fp.CloudCover != nil {
		cloud = unit(*fp.CloudCover / 100.0)
	}

	var direction float64
	if idx := conditions.CardinalIndex(fp.WindDirection); idx >= 0 {
		direction = float64(idx+1) / float64(len(conditions.Cardinals))
	}

	return [projectionSegments]float64{
		unit(fp.WaveHeightAvg / 5.0),
		period,
		unit(fp.WindSpeedAvg / 50.0),
		temperature,
		cloud,
		direction,
	}
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}

	return math.Min(math.Max(v, 0), 1)
}
