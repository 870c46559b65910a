package similarity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

func record(spot string, vec []float32, rating float64, count int, created time.Time) models.SimilarityRecord {
	return models.SimilarityRecord{
		OwnerID:       uuid.New(),
		SpotID:        spot,
		Embedding:     vec,
		Strategy:      "projection",
		WaveHeight:    1.2,
		WindSpeed:     15,
		AverageRating: rating,
		FeedbackCount: count,
		CreatedAt:     created,
	}
}

func seed(t *testing.T, store Store, recs ...models.SimilarityRecord) {
	t.Helper()

	for _, rec := range recs {
		require.NoError(t, store.Upsert(context.Background(), rec))
	}
}

func ownerIDs(results []models.SimilarityResult) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.OwnerID)
	}

	return ids
}

func TestQualityGate_Passes(t *testing.T) {
	tests := []struct {
		name   string
		gate   QualityGate
		rating float64
		count  int
		want   bool
	}{
		{"default good", DefaultQualityGate, 4.0, 1, true},
		{"default low rating", DefaultQualityGate, 3.99, 10, false},
		{"default no feedback", DefaultQualityGate, 5, 0, false},
		{"zero min feedback still needs one", QualityGate{MinRating: 0, MinFeedback: 0}, 5, 0, false},
		{"stricter count", QualityGate{MinRating: 3, MinFeedback: 3}, 4.5, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.gate.Passes(tt.rating, tt.count))
		})
	}
}

func TestIndex_QueryVectorRanking(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	best := record("mdp", []float32{1, 0, 0}, 4.5, 2, now)
	near := record("mdp", []float32{0.8, 0.6, 0}, 4.0, 1, now)
	far := record("mdp", []float32{0, 0, 1}, 5.0, 9, now)
	poorlyRated := record("mdp", []float32{1, 0, 0}, 3.9, 4, now)
	unrated := record("mdp", []float32{1, 0, 0}, 0, 0, now)
	otherSpot := record("biarritz", []float32{1, 0, 0}, 5, 3, now)
	seed(t, store, best, near, far, poorlyRated, unrated, otherSpot)

	ix := NewIndex(store)

	results, err := ix.Query(ctx, models.SimilarityQuery{
		Target: []float32{1, 0, 0}, SpotID: "mdp", MinSimilarity: 0.5, Limit: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{best.OwnerID, near.OwnerID}, ownerIDs(results))
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.8, results[1].Similarity, 1e-6)

	for _, r := range results {
		assert.False(t, r.Estimated)
		assert.Positive(t, r.FeedbackCount)
		assert.GreaterOrEqual(t, r.AverageRating, 4.0)
	}
}

func TestIndex_QueryLimitAndExclude(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	a := record("mdp", []float32{1, 0}, 5, 1, now)
	b := record("mdp", []float32{1, 0.1}, 5, 1, now)
	c := record("mdp", []float32{1, 0.2}, 5, 1, now)
	seed(t, store, a, b, c)

	ix := NewIndex(store)

	results, err := ix.Query(ctx, models.SimilarityQuery{
		Target: []float32{1, 0}, SpotID: "mdp", Limit: 1, ExcludeOwner: &a.OwnerID,
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.OwnerID}, ownerIDs(results))

	results, err = ix.Query(ctx, models.SimilarityQuery{Target: []float32{1, 0}, SpotID: "mdp", Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, results)
}

type failingNearest struct {
	*MemoryStore

	nearestErr  error
	topRatedErr error
}

func (f *failingNearest) Nearest(ctx context.Context, vf VectorFilter) ([]models.SimilarityResult, error) {
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}

	return f.MemoryStore.Nearest(ctx, vf)
}

func (f *failingNearest) TopRated(ctx context.Context, cf CandidateFilter) ([]models.SimilarityResult, error) {
	if f.topRatedErr != nil {
		return nil, f.topRatedErr
	}

	return f.MemoryStore.TopRated(ctx, cf)
}

func TestIndex_QueryFallsBackToEstimatedRanking(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	top := record("mdp", []float32{0, 1}, 5.0, 2, now)
	moreVotes := record("mdp", []float32{1, 0}, 4.5, 8, now)
	fewerVotes := record("mdp", []float32{1, 0}, 4.5, 3, now)
	gatedOut := record("mdp", []float32{1, 0}, 2.0, 8, now)

	store := &failingNearest{MemoryStore: NewMemoryStore(), nearestErr: errors.New("connection refused")}
	seed(t, store, top, moreVotes, fewerVotes, gatedOut)

	var logs bytes.Buffer
	ix := NewIndex(store, WithSentinel(0.42), WithIndexLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	results, err := ix.Query(ctx, models.SimilarityQuery{Target: []float32{1, 0}, SpotID: "mdp", Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{top.OwnerID, moreVotes.OwnerID, fewerVotes.OwnerID}, ownerIDs(results))

	for _, r := range results {
		assert.True(t, r.Estimated)
		assert.InDelta(t, 0.42, r.Similarity, 1e-12)
	}

	assert.Contains(t, logs.String(), "similarity backend unavailable")
}

func TestIndex_QueryBelowMinSimilarityIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed(t, store, record("mdp", []float32{0, 1}, 4.8, 5, time.Now()))

	ix := NewIndex(store, WithSentinel(0.95))

	results, err := ix.Query(ctx, models.SimilarityQuery{
		Target: []float32{1, 0}, SpotID: "mdp", MinSimilarity: 0.9, Limit: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_QueryWithoutComparableVectorsIsEstimated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := record("mdp", []float32{0, 1, 0}, 4.8, 5, time.Now())
	seed(t, store, rec)

	var logs bytes.Buffer
	ix := NewIndex(store, WithIndexLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	results, err := ix.Query(ctx, models.SimilarityQuery{
		Target: []float32{1, 0}, SpotID: "mdp", MinSimilarity: 0.9, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, rec.OwnerID, results[0].OwnerID)
	assert.True(t, results[0].Estimated)
	assert.InDelta(t, DefaultSentinel, results[0].Similarity, 1e-12)
	assert.Contains(t, logs.String(), "no comparable vectors")
}

func TestMemoryStore_NearestWithoutCandidates(t *testing.T) {
	results, err := NewMemoryStore().Nearest(context.Background(), VectorFilter{
		CandidateFilter: CandidateFilter{SpotID: "mdp", Gate: DefaultQualityGate, Limit: 5},
		Target:          []float32{1, 0},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_QueryBothRankingsFail(t *testing.T) {
	store := &failingNearest{
		MemoryStore: NewMemoryStore(),
		nearestErr:  errors.New("vector extension missing"),
		topRatedErr: errors.New("database is down"),
	}

	_, err := NewIndex(store).Query(context.Background(), models.SimilarityQuery{SpotID: "mdp", Limit: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is down")
	assert.NotErrorIs(t, err, huberrors.ErrSimilarityBackendUnavailable)
}

func TestIndex_CustomGate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := record("mdp", []float32{1, 0}, 3.2, 3, time.Now())
	seed(t, store, rec)

	strict := NewIndex(store)
	lenient := NewIndex(store, WithQualityGate(QualityGate{MinRating: 3, MinFeedback: 2}))

	q := models.SimilarityQuery{Target: []float32{1, 0}, SpotID: "mdp", Limit: 5}

	results, err := strict.Query(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = lenient.Query(ctx, q)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, QualityGate{MinRating: 3, MinFeedback: 2}, lenient.Gate())
}

func TestIndex_UpsertReplacesRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ix := NewIndex(store)

	created := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	rec := record("mdp", []float32{1, 0}, 0, 0, created)
	require.NoError(t, ix.Upsert(ctx, rec))

	replacement := rec
	replacement.Embedding = []float32{0, 1}
	replacement.Strategy = "remote"
	replacement.WaveHeight = 2.1
	replacement.CreatedAt = time.Time{}
	require.NoError(t, ix.Upsert(ctx, replacement))

	got, err := ix.Get(ctx, rec.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
	assert.Equal(t, "remote", got.Strategy)
	assert.InDelta(t, 2.1, got.WaveHeight, 1e-12)
	assert.Equal(t, created, got.CreatedAt)

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestIndex_ApplyFeedbackSerializesPerOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ix := NewIndex(store)

	rec := record("mdp", []float32{1, 0}, 0, 0, time.Now())
	require.NoError(t, ix.Upsert(ctx, rec))

	// The compute step reads and bumps a shared counter; without the owner lock the
	// read-modify-write would lose increments.
	var (
		count int
		wg    sync.WaitGroup
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := ix.ApplyFeedback(ctx, rec.OwnerID, func(context.Context) (models.FeedbackAggregate, error) {
				next := count + 1
				time.Sleep(time.Microsecond)
				count = next

				return models.FeedbackAggregate{AverageRating: 5, FeedbackCount: next}, nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	got, err := ix.Get(ctx, rec.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.FeedbackCount)
	assert.Equal(t, 50, count)
}

func TestIndex_ApplyFeedbackComputeError(t *testing.T) {
	ix := NewIndex(NewMemoryStore())

	_, err := ix.ApplyFeedback(context.Background(), uuid.New(), func(context.Context) (models.FeedbackAggregate, error) {
		return models.FeedbackAggregate{}, errors.New("tx aborted")
	})
	assert.EqualError(t, err, "tx aborted")
}

func TestIndex_Delete(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(NewMemoryStore())

	rec := record("mdp", []float32{1}, 5, 1, time.Now())
	require.NoError(t, ix.Upsert(ctx, rec))
	require.NoError(t, ix.Delete(ctx, rec.OwnerID))
	require.NoError(t, ix.Delete(ctx, rec.OwnerID))

	_, err := ix.Get(ctx, rec.OwnerID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestIndex_DeleteOwnerWaitsForReplace(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(NewMemoryStore())
	rec := record("mdp", []float32{1, 0}, 5, 1, time.Now())

	building := make(chan struct{})
	release := make(chan struct{})
	replaced := make(chan error, 1)

	go func() {
		replaced <- ix.Replace(ctx, rec.OwnerID, func(context.Context) (models.SimilarityRecord, error) {
			close(building)
			<-release

			return rec, nil
		})
	}()

	<-building

	ownerDeleted := false
	deleted := make(chan error, 1)

	go func() {
		deleted <- ix.DeleteOwner(ctx, rec.OwnerID, func(context.Context) error {
			ownerDeleted = true

			return nil
		})
	}()

	select {
	case <-deleted:
		t.Fatal("DeleteOwner returned while Replace held the owner lock")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-replaced)
	require.NoError(t, <-deleted)
	assert.True(t, ownerDeleted)

	_, err := ix.Get(ctx, rec.OwnerID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Zero(t, ix.locks.size())
}

func TestIndex_DeleteOwnerFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(NewMemoryStore())
	rec := record("mdp", []float32{1, 0}, 5, 1, time.Now())
	require.NoError(t, ix.Upsert(ctx, rec))

	err := ix.DeleteOwner(ctx, rec.OwnerID, func(context.Context) error {
		return huberrors.NewNotFoundError("report", "report not found")
	})
	require.ErrorIs(t, err, huberrors.ErrNotFound)

	_, err = ix.Get(ctx, rec.OwnerID)
	assert.NoError(t, err)
}

func TestOwnerLocks_ReleaseKeepsEntryForWaiters(t *testing.T) {
	var locks ownerLocks

	id := uuid.New()
	refs := func() int {
		locks.mu.Lock()
		defer locks.mu.Unlock()

		if entry, ok := locks.entries[id]; ok {
			return entry.refs
		}

		return 0
	}

	unlockFirst := locks.lock(id)

	secondHolds := make(chan struct{})
	releaseSecond := make(chan struct{})

	go func() {
		unlock := locks.lock(id)
		close(secondHolds)
		<-releaseSecond
		unlock()
	}()

	require.Eventually(t, func() bool { return refs() == 2 }, time.Second, time.Millisecond)

	unlockFirst()
	<-secondHolds
	assert.Equal(t, 1, locks.size())

	thirdHolds := make(chan struct{})

	go func() {
		unlock := locks.lock(id)
		close(thirdHolds)
		unlock()
	}()

	select {
	case <-thirdHolds:
		t.Fatal("third caller got the lock while the second still held it")
	case <-time.After(20 * time.Millisecond):
	}

	close(releaseSecond)
	<-thirdHolds

	require.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, time.Millisecond)
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	seed(t, store,
		record("mdp", []float32{1}, 4.0, 2, now),
		record("mdp", []float32{1}, 5.0, 1, now),
		record("biarritz", []float32{1}, 0, 0, now),
	)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EmbeddingStats{
		Total: 3, WithFeedback: 2, AverageRating: 4.5, DistinctSpotsCovered: 2,
	}, stats)
}

func TestMemoryStore_UpdateFeedbackMissingRecord(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.UpdateFeedback(context.Background(), uuid.New(), models.FeedbackAggregate{FeedbackCount: 1}))
}
