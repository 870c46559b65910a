package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/observability"
)

// Query modes, also used as metric labels.
const (
	ModeVector    = "vector"
	ModeEstimated = "estimated"
	modeFailed    = "failed"
)

// DefaultSentinel is the similarity assigned to estimated results.
const DefaultSentinel = 0.5

// Index is the SimilarityIndex: a Store plus the quality gate, the estimated ranking fallback
// and per-owner write serialization.
type Index struct {
	store    Store
	gate     QualityGate
	sentinel float64
	locks    ownerLocks
	logger   *slog.Logger
	metrics  observability.SimilarityMetrics
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithQualityGate overrides DefaultQualityGate.
func WithQualityGate(gate QualityGate) IndexOption {
	return func(ix *Index) {
		ix.gate = gate
	}
}

// WithSentinel overrides DefaultSentinel.
func WithSentinel(sentinel float64) IndexOption {
	return func(ix *Index) {
		ix.sentinel = sentinel
	}
}

// WithIndexLogger sets the logger. Default slog.Default().
func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(ix *Index) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithIndexMetrics sets similarity metrics. Nil disables them.
func WithIndexMetrics(metrics observability.SimilarityMetrics) IndexOption {
	return func(ix *Index) {
		ix.metrics = metrics
	}
}

// NewIndex creates an Index over store.
func NewIndex(store Store, opts ...IndexOption) *Index {
	ix := &Index{
		store:    store,
		gate:     DefaultQualityGate,
		sentinel: DefaultSentinel,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(ix)
	}

	return ix
}

// Gate returns the active quality gate.
func (ix *Index) Gate() QualityGate {
	return ix.gate
}

// Upsert writes rec, replacing any existing record for rec.OwnerID.
func (ix *Index) Upsert(ctx context.Context, rec models.SimilarityRecord) error {
	return ix.Replace(ctx, rec.OwnerID, func(context.Context) (models.SimilarityRecord, error) {
		return rec, nil
	})
}

// Replace builds the owner's record with build and upserts it, holding the owner's write lock
// for both steps. Use it when the record depends on state a concurrent ApplyFeedback may change.
func (ix *Index) Replace(
	ctx context.Context, ownerID uuid.UUID, build func(ctx context.Context) (models.SimilarityRecord, error),
) error {
	unlock := ix.locks.lock(ownerID)
	defer unlock()

	rec, err := build(ctx)
	if err != nil {
		return err
	}

	rec.OwnerID = ownerID

	if err := ix.store.Upsert(ctx, rec); err != nil {
		ix.recordUpsert(ctx, "failed")

		return fmt.Errorf("upsert similarity record: %w", err)
	}

	ix.recordUpsert(ctx, "success")

	return nil
}

// ApplyFeedback runs compute and writes the aggregate it returns to the owner's record, holding
// the owner's write lock throughout so concurrent ratings and upserts cannot interleave.
func (ix *Index) ApplyFeedback(
	ctx context.Context, ownerID uuid.UUID, compute func(ctx context.Context) (models.FeedbackAggregate, error),
) (models.FeedbackAggregate, error) {
	unlock := ix.locks.lock(ownerID)
	defer unlock()

	agg, err := compute(ctx)
	if err != nil {
		return models.FeedbackAggregate{}, err
	}

	if err := ix.store.UpdateFeedback(ctx, ownerID, agg); err != nil {
		return agg, fmt.Errorf("update similarity feedback: %w", err)
	}

	return agg, nil
}

// Get returns the record of ownerID, or ErrRecordNotFound.
func (ix *Index) Get(ctx context.Context, ownerID uuid.UUID) (models.SimilarityRecord, error) {
	rec, err := ix.store.Get(ctx, ownerID)
	if err != nil {
		return models.SimilarityRecord{}, fmt.Errorf("get similarity record: %w", err)
	}

	return rec, nil
}

// Delete removes the record of ownerID. Missing records are ignored.
func (ix *Index) Delete(ctx context.Context, ownerID uuid.UUID) error {
	return ix.DeleteOwner(ctx, ownerID, nil)
}

// DeleteOwner runs deleteOwner and then removes the owner's record, holding the owner's write lock
// for both steps so a concurrent Replace cannot write the record back in between. When
// deleteOwner fails its error is returned unchanged and the record is kept.
func (ix *Index) DeleteOwner(ctx context.Context, ownerID uuid.UUID, deleteOwner func(ctx context.Context) error) error {
	unlock := ix.locks.lock(ownerID)
	defer unlock()

	if deleteOwner != nil {
		if err := deleteOwner(ctx); err != nil {
			return err
		}
	}

	if err := ix.store.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("delete similarity record: %w", err)
	}

	return nil
}

// Query returns gated records of q.SpotID ranked by cosine similarity to q.Target. Candidates
// scoring below q.MinSimilarity are left out, so the result may be empty. When the vector
// ranking cannot run (backend error, or no candidate vector of the target's length) the same
// candidate set is ranked by rating instead and every result carries the sentinel similarity
// with Estimated set. An error is returned only when the fallback ranking fails too.
func (ix *Index) Query(ctx context.Context, q models.SimilarityQuery) ([]models.SimilarityResult, error) {
	candidates := CandidateFilter{
		SpotID:       q.SpotID,
		Gate:         ix.gate,
		ExcludeOwner: q.ExcludeOwner,
		Limit:        q.Limit,
	}

	if q.Limit <= 0 {
		return []models.SimilarityResult{}, nil
	}

	results, err := ix.store.Nearest(ctx, VectorFilter{
		CandidateFilter: candidates,
		Target:          q.Target,
		MinSimilarity:   q.MinSimilarity,
	})

	switch {
	case err == nil:
		ix.recordQuery(ctx, ModeVector)

		return results, nil
	case errors.Is(err, ErrNoComparableVectors):
		ix.logger.DebugContext(ctx, "similarity: no comparable vectors, using estimated ranking",
			"spot_id", q.SpotID, "dimensions", len(q.Target))
	default:
		ix.logger.WarnContext(ctx, "similarity: vector query failed, using estimated ranking",
			"spot_id", q.SpotID, "error", huberrors.NewSimilarityBackendUnavailableError(err))
	}

	estimated, err := ix.store.TopRated(ctx, candidates)
	if err != nil {
		ix.recordQuery(ctx, modeFailed)

		return nil, fmt.Errorf("estimated similarity ranking: %w", err)
	}

	for i := range estimated {
		estimated[i].Similarity = ix.sentinel
		estimated[i].Estimated = true
	}

	ix.recordQuery(ctx, ModeEstimated)

	return estimated, nil
}

// Stats summarizes the index.
func (ix *Index) Stats(ctx context.Context) (models.EmbeddingStats, error) {
	stats, err := ix.store.Stats(ctx)
	if err != nil {
		return models.EmbeddingStats{}, fmt.Errorf("similarity stats: %w", err)
	}

	return stats, nil
}

func (ix *Index) recordQuery(ctx context.Context, mode string) {
	if ix.metrics != nil {
		ix.metrics.RecordQuery(ctx, mode)
	}
}

func (ix *Index) recordUpsert(ctx context.Context, outcome string) {
	if ix.metrics != nil {
		ix.metrics.RecordUpsert(ctx, outcome)
	}
}
