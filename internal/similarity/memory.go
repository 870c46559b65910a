package similarity

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/pkg/embeddings"
)

// MemoryStore is an in-process Store. Queries scan every record of the spot.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.SimilarityRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]models.SimilarityRecord)}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, rec models.SimilarityRecord) error {
	rec.Embedding = slices.Clone(rec.Embedding)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.OwnerID]; ok && rec.CreatedAt.IsZero() {
		rec.CreatedAt = existing.CreatedAt
	}

	s.records[rec.OwnerID] = rec

	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, ownerID uuid.UUID) (models.SimilarityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[ownerID]
	if !ok {
		return models.SimilarityRecord{}, ErrRecordNotFound
	}

	rec.Embedding = slices.Clone(rec.Embedding)

	return rec, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, ownerID)

	return nil
}

// UpdateFeedback implements Store.
func (s *MemoryStore) UpdateFeedback(_ context.Context, ownerID uuid.UUID, agg models.FeedbackAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[ownerID]
	if !ok {
		return nil
	}

	rec.AverageRating = agg.AverageRating
	rec.FeedbackCount = agg.FeedbackCount
	s.records[ownerID] = rec

	return nil
}

// Nearest implements Store.
func (s *MemoryStore) Nearest(_ context.Context, f VectorFilter) ([]models.SimilarityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.SimilarityResult, 0, f.Limit)
	candidates := s.candidates(f.CandidateFilter)
	compared := 0

	for _, rec := range candidates {
		if len(rec.Embedding) != len(f.Target) || len(f.Target) == 0 {
			continue
		}

		compared++

		score := embeddings.CosineSimilarity(f.Target, rec.Embedding)
		if score < f.MinSimilarity {
			continue
		}

		r := toResult(rec)
		r.Similarity = score
		results = append(results, r)
	}

	slices.SortStableFunc(results, func(a, b models.SimilarityResult) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})

	if compared == 0 && len(candidates) > 0 {
		return nil, ErrNoComparableVectors
	}

	return truncate(results, f.Limit), nil
}

// TopRated implements Store.
func (s *MemoryStore) TopRated(_ context.Context, f CandidateFilter) ([]models.SimilarityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.candidates(f)

	slices.SortStableFunc(recs, func(a, b models.SimilarityRecord) int {
		if a.AverageRating != b.AverageRating {
			if a.AverageRating > b.AverageRating {
				return -1
			}

			return 1
		}

		return b.FeedbackCount - a.FeedbackCount
	})

	results := make([]models.SimilarityResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, toResult(rec))
	}

	return truncate(results, f.Limit), nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (models.EmbeddingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats     models.EmbeddingStats
		ratingSum float64
		spots     = make(map[string]struct{})
	)

	for _, rec := range s.records {
		stats.Total++
		spots[rec.SpotID] = struct{}{}

		if rec.FeedbackCount > 0 {
			stats.WithFeedback++
			ratingSum += rec.AverageRating
		}
	}

	if stats.WithFeedback > 0 {
		stats.AverageRating = math.Round(ratingSum/float64(stats.WithFeedback)*100) / 100
	}

	stats.DistinctSpotsCovered = len(spots)

	return stats, nil
}

// candidates returns the gated records of f.SpotID in a stable order. Caller holds s.mu.
func (s *MemoryStore) candidates(f CandidateFilter) []models.SimilarityRecord {
	var out []models.SimilarityRecord

	for _, rec := range s.records {
		if rec.SpotID != f.SpotID || !f.Gate.Passes(rec.AverageRating, rec.FeedbackCount) {
			continue
		}

		if f.ExcludeOwner != nil && rec.OwnerID == *f.ExcludeOwner {
			continue
		}

		out = append(out, rec)
	}

	slices.SortFunc(out, func(a, b models.SimilarityRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return slices.Compare(a.OwnerID[:], b.OwnerID[:])
	})

	return out
}

func toResult(rec models.SimilarityRecord) models.SimilarityResult {
	return models.SimilarityResult{
		OwnerID:        rec.OwnerID,
		AverageRating:  rec.AverageRating,
		FeedbackCount:  rec.FeedbackCount,
		WaveHeight:     rec.WaveHeight,
		WavePeriod:     rec.WavePeriod,
		WindSpeed:      rec.WindSpeed,
		WindDirection:  rec.WindDirection,
		SwellDirection: rec.SwellDirection,
		TideState:      rec.TideState,
		ConditionsDate: rec.ConditionsDate,
	}
}

func truncate(results []models.SimilarityResult, limit int) []models.SimilarityResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}

	return results
}

var _ Store = (*MemoryStore)(nil)
