// Package similarity indexes report embeddings per spot and answers "which past reports had
// conditions like these and were rated well" queries.
package similarity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/surfreport/hub/internal/models"
)

var (
	// ErrRecordNotFound is returned by stores when no record exists for an owner.
	ErrRecordNotFound = errors.New("similarity record not found")
	// ErrNoComparableVectors is returned by Nearest when gated candidates exist but none has a
	// vector of the target's length, e.g. after EMBEDDING_DIMENSIONS changed.
	ErrNoComparableVectors = errors.New("no candidate vectors of the target's length")
)

// QualityGate is the candidate filter applied to every query. Only records with at least
// MinFeedback ratings averaging MinRating or more are ever returned.
type QualityGate struct {
	MinRating   float64
	MinFeedback int
}

// DefaultQualityGate is 4.0 stars over at least one rating.
var DefaultQualityGate = QualityGate{MinRating: 4.0, MinFeedback: 1}

// Passes reports whether a record with the given aggregate clears the gate.
func (g QualityGate) Passes(averageRating float64, feedbackCount int) bool {
	minFeedback := max(g.MinFeedback, 1)

	return feedbackCount >= minFeedback && averageRating >= g.MinRating
}

// CandidateFilter selects the gated candidate set of one spot.
type CandidateFilter struct {
	SpotID       string
	Gate         QualityGate
	ExcludeOwner *uuid.UUID
	Limit        int
}

// VectorFilter is a CandidateFilter ranked by cosine similarity to Target.
type VectorFilter struct {
	CandidateFilter

	Target        []float32
	MinSimilarity float64
}

// Store persists similarity records. Implementations must be safe for concurrent use.
type Store interface {
	// Upsert inserts rec or replaces every field of the existing record with the same OwnerID.
	Upsert(ctx context.Context, rec models.SimilarityRecord) error
	Get(ctx context.Context, ownerID uuid.UUID) (models.SimilarityRecord, error)
	Delete(ctx context.Context, ownerID uuid.UUID) error
	// UpdateFeedback overwrites the rating aggregate. A missing record is not an error.
	UpdateFeedback(ctx context.Context, ownerID uuid.UUID, agg models.FeedbackAggregate) error
	// Nearest returns gated candidates with similarity >= MinSimilarity, most similar first, or
	// ErrNoComparableVectors when no candidate can be compared with Target.
	Nearest(ctx context.Context, f VectorFilter) ([]models.SimilarityResult, error)
	// TopRated returns gated candidates ordered by average rating then feedback count, both descending.
	TopRated(ctx context.Context, f CandidateFilter) ([]models.SimilarityResult, error)
	Stats(ctx context.Context) (models.EmbeddingStats, error)
}
