package conditions

import "math"

// Cardinals are the 8-way compass labels in clockwise order starting at north.
var Cardinals = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

const sectorDegrees = 45.0

// Cardinal maps a direction in degrees to its 8-way label. Each sector is half-open and centered
// on its label, so N covers [337.5, 360) and [0, 22.5). Values outside [0, 360) are wrapped.
// NaN and infinities return "".
func Cardinal(degrees float64) string {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return ""
	}

	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}

	idx := int(math.Floor((d+sectorDegrees/2)/sectorDegrees)) % len(Cardinals)

	return Cardinals[idx]
}

// CardinalIndex returns the position of label in Cardinals, or -1.
func CardinalIndex(label string) int {
	for i, c := range Cardinals {
		if c == label {
			return i
		}
	}

	return -1
}

// ModeCardinal returns the most frequent cardinal bucket across degrees. Ties go to the label that
// comes first clockwise from north. Returns "" when no value maps to a bucket.
func ModeCardinal(degrees []float64) string {
	var counts [len(Cardinals)]int

	seen := false

	for _, d := range degrees {
		label := Cardinal(d)
		if label == "" {
			continue
		}

		counts[CardinalIndex(label)]++
		seen = true
	}

	if !seen {
		return ""
	}

	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}

	return Cardinals[best]
}
