//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/similarity"
	"github.com/surfreport/hub/pkg/database"
)

// setupDB starts a pgvector container, migrates it and returns a pool with vector types registered.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "pgvector/pgvector:pg17",
		tcpostgres.WithDatabase("surfreport"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	plain, err := database.NewPostgresPool(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, plain))
	// Second run is a no-op.
	require.NoError(t, Migrate(ctx, plain))
	plain.Close()

	db, err := database.NewPostgresPool(ctx, dsn, database.WithVectorTypes(), database.WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func newReport(spot string) *models.Report {
	return &models.Report{
		ID:                   uuid.New(),
		SpotID:               spot,
		SpotName:             "Mar del Plata",
		Point:                models.Point{Latitude: -38.0055, Longitude: -57.5426},
		HorizonDays:          5,
		RequestedHorizonDays: 7,
		Summary: models.WeatherSummary{
			Averages:        map[string]float64{models.VarWaveHeight: 1.2},
			Maxima:          map[string]float64{models.VarWaveHeight: 1.9},
			TotalHours:      120,
			ConditionCounts: map[models.SurfCondition]int{models.ConditionMedium: 120},
			WindDirection:   "NW",
		},
		Text:        "Clean medium swell.",
		Preferences: &models.Preferences{SkillLevel: "advanced"},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRepositories_Integration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	reports := NewReportsRepository(db)
	feedback := NewFeedbackRepository(db)
	store := NewSimilarityRepository(db)

	t.Run("report round trip and not found", func(t *testing.T) {
		report := newReport("mdp")
		require.NoError(t, reports.Create(ctx, report))

		got, err := reports.GetByID(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.Summary, got.Summary)
		assert.Equal(t, report.Preferences, got.Preferences)
		assert.Equal(t, 5, got.HorizonDays)
		assert.True(t, report.CreatedAt.Equal(got.CreatedAt))

		_, err = reports.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})

	t.Run("similarity vector query, gate and estimated ranking", func(t *testing.T) {
		good := newReport("gate")
		near := newReport("gate")
		unrated := newReport("gate")

		for _, r := range []*models.Report{good, near, unrated} {
			require.NoError(t, reports.Create(ctx, r))
		}

		ids, err := reports.ListIDsMissingSimilarity(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, good.ID)

		rec := func(owner uuid.UUID, vec []float32) models.SimilarityRecord {
			return models.SimilarityRecord{
				OwnerID: owner, SpotID: "gate", Embedding: vec, Strategy: "projection",
				WaveHeight: 1.2, WindSpeed: 15, WindDirection: "NW", ConditionsDate: time.Now(),
			}
		}

		require.NoError(t, store.Upsert(ctx, rec(good.ID, []float32{1, 0, 0})))
		require.NoError(t, store.Upsert(ctx, rec(near.ID, []float32{0.8, 0.6, 0})))
		require.NoError(t, store.Upsert(ctx, rec(unrated.ID, []float32{1, 0, 0})))

		ix := similarity.NewIndex(store)

		for _, fb := range []struct {
			owner  uuid.UUID
			rating int
		}{{good.ID, 5}, {good.ID, 4}, {near.ID, 4}} {
			_, err := ix.ApplyFeedback(ctx, fb.owner, func(ctx context.Context) (models.FeedbackAggregate, error) {
				return feedback.CreateAndAggregate(ctx, &models.Feedback{
					ID: uuid.New(), ReportID: fb.owner, Rating: fb.rating, CreatedAt: time.Now(),
				})
			})
			require.NoError(t, err)
		}

		stored, err := store.Get(ctx, good.ID)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, stored.AverageRating, 1e-9)
		assert.Equal(t, 2, stored.FeedbackCount)
		assert.Equal(t, []float32{1, 0, 0}, stored.Embedding)

		results, err := ix.Query(ctx, models.SimilarityQuery{
			Target: []float32{1, 0, 0}, SpotID: "gate", MinSimilarity: 0.5, Limit: 10,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, good.ID, results[0].OwnerID)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
		assert.Equal(t, near.ID, results[1].OwnerID)
		assert.False(t, results[1].Estimated)

		results, err = ix.Query(ctx, models.SimilarityQuery{
			Target: []float32{0, 0, 1}, SpotID: "gate", MinSimilarity: 0.9, Limit: 10, ExcludeOwner: &near.ID,
		})
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = ix.Query(ctx, models.SimilarityQuery{
			Target: []float32{0, 1}, SpotID: "gate", MinSimilarity: 0.9, Limit: 10, ExcludeOwner: &near.ID,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, good.ID, results[0].OwnerID)
		assert.True(t, results[0].Estimated)

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.WithFeedback)
		assert.InDelta(t, 4.25, stats.AverageRating, 1e-9)
		assert.Equal(t, 1, stats.DistinctSpotsCovered)
	})

	t.Run("delete cascades", func(t *testing.T) {
		report := newReport("cascade")
		require.NoError(t, reports.Create(ctx, report))
		require.NoError(t, store.Upsert(ctx, models.SimilarityRecord{
			OwnerID: report.ID, SpotID: "cascade", Embedding: []float32{1}, Strategy: "projection",
			ConditionsDate: time.Now(),
		}))

		_, err := feedback.CreateAndAggregate(ctx, &models.Feedback{
			ID: uuid.New(), ReportID: report.ID, Rating: 3, CreatedAt: time.Now(),
		})
		require.NoError(t, err)

		require.NoError(t, reports.Delete(ctx, report.ID))

		_, err = store.Get(ctx, report.ID)
		assert.ErrorIs(t, err, similarity.ErrRecordNotFound)

		agg, err := feedback.Aggregate(ctx, report.ID)
		require.NoError(t, err)
		assert.Zero(t, agg.FeedbackCount)

		assert.ErrorIs(t, reports.Delete(ctx, report.ID), huberrors.ErrNotFound)
	})

	t.Run("feedback on missing report", func(t *testing.T) {
		_, err := feedback.CreateAndAggregate(ctx, &models.Feedback{
			ID: uuid.New(), ReportID: uuid.New(), Rating: 5, CreatedAt: time.Now(),
		})
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})
}
