package models

import (
	"time"

	"github.com/google/uuid"
)

// Embedding is a fixed-length vector plus the strategy that produced it.
type Embedding struct {
	Vector     []float32 `json:"vector"`
	Dimensions int       `json:"dimensions"`
	Strategy   string    `json:"strategy"`
}

// SimilarityRecord is the indexed form of one report. There is at most one record per OwnerID.
type SimilarityRecord struct {
	OwnerID        uuid.UUID `json:"owner_id"`
	SpotID         string    `json:"spot_id"`
	Embedding      []float32 `json:"-"`
	Strategy       string    `json:"strategy"`
	WaveHeight     float64   `json:"wave_height"`
	WavePeriod     *float64  `json:"wave_period,omitempty"`
	WindSpeed      float64   `json:"wind_speed"`
	WindDirection  string    `json:"wind_direction,omitempty"`
	SwellDirection string    `json:"swell_direction,omitempty"`
	TideState      string    `json:"tide_state,omitempty"`
	AverageRating  float64   `json:"average_rating"`
	FeedbackCount  int       `json:"feedback_count"`
	ConditionsDate time.Time `json:"conditions_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SimilarityResult is one query hit. When Estimated is true, Similarity is the fixed sentinel
// from the attribute-based ranking, not a vector score.
type SimilarityResult struct {
	OwnerID        uuid.UUID `json:"owner_id"`
	Similarity     float64   `json:"similarity"`
	Estimated      bool      `json:"estimated"`
	AverageRating  float64   `json:"average_rating"`
	FeedbackCount  int       `json:"feedback_count"`
	WaveHeight     float64   `json:"wave_height"`
	WavePeriod     *float64  `json:"wave_period,omitempty"`
	WindSpeed      float64   `json:"wind_speed"`
	WindDirection  string    `json:"wind_direction,omitempty"`
	SwellDirection string    `json:"swell_direction,omitempty"`
	TideState      string    `json:"tide_state,omitempty"`
	ConditionsDate time.Time `json:"conditions_date"`
}

// SimilarityQuery holds the parameters of a nearest-neighbor lookup.
type SimilarityQuery struct {
	Target        []float32
	SpotID        string
	MinSimilarity float64
	Limit         int
	ExcludeOwner  *uuid.UUID
}

// EmbeddingStats summarizes the similarity index.
type EmbeddingStats struct {
	Total                int     `json:"total"`
	WithFeedback         int     `json:"with_feedback"`
	AverageRating        float64 `json:"average_rating"`
	DistinctSpotsCovered int     `json:"distinct_spots_covered"`
}
