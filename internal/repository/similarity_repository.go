package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/similarity"
)

// SimilarityRepository stores similarity records in PostgreSQL with pgvector.
type SimilarityRepository struct {
	db *pgxpool.Pool
}

// NewSimilarityRepository creates a new similarity repository.
func NewSimilarityRepository(db *pgxpool.Pool) *SimilarityRepository {
	return &SimilarityRepository{db: db}
}

// Upsert inserts the record or replaces every field of the existing one for the same owner.
// created_at is kept from the first insert.
func (r *SimilarityRepository) Upsert(ctx context.Context, rec models.SimilarityRecord) error {
	now := time.Now()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO similarity_records (
			owner_id, spot_id, embedding, strategy, wave_height, wave_period, wind_speed,
			wind_direction, swell_direction, tide_state, average_rating, feedback_count,
			conditions_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (owner_id) DO UPDATE SET
			spot_id = EXCLUDED.spot_id,
			embedding = EXCLUDED.embedding,
			strategy = EXCLUDED.strategy,
			wave_height = EXCLUDED.wave_height,
			wave_period = EXCLUDED.wave_period,
			wind_speed = EXCLUDED.wind_speed,
			wind_direction = EXCLUDED.wind_direction,
			swell_direction = EXCLUDED.swell_direction,
			tide_state = EXCLUDED.tide_state,
			average_rating = EXCLUDED.average_rating,
			feedback_count = EXCLUDED.feedback_count,
			conditions_date = EXCLUDED.conditions_date,
			updated_at = EXCLUDED.updated_at`,
		rec.OwnerID, rec.SpotID, pgvector.NewVector(rec.Embedding), rec.Strategy, rec.WaveHeight, rec.WavePeriod,
		rec.WindSpeed, rec.WindDirection, rec.SwellDirection, rec.TideState, rec.AverageRating, rec.FeedbackCount,
		rec.ConditionsDate, createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("similarity upsert: %w", err)
	}

	return nil
}

// Get returns the record of ownerID or similarity.ErrRecordNotFound.
func (r *SimilarityRepository) Get(ctx context.Context, ownerID uuid.UUID) (models.SimilarityRecord, error) {
	var (
		rec models.SimilarityRecord
		vec pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		SELECT owner_id, spot_id, embedding, strategy, wave_height, wave_period, wind_speed,
			wind_direction, swell_direction, tide_state, average_rating, feedback_count,
			conditions_date, created_at, updated_at
		FROM similarity_records WHERE owner_id = $1`, ownerID,
	).Scan(
		&rec.OwnerID, &rec.SpotID, &vec, &rec.Strategy, &rec.WaveHeight, &rec.WavePeriod, &rec.WindSpeed,
		&rec.WindDirection, &rec.SwellDirection, &rec.TideState, &rec.AverageRating, &rec.FeedbackCount,
		&rec.ConditionsDate, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SimilarityRecord{}, similarity.ErrRecordNotFound
		}

		return models.SimilarityRecord{}, fmt.Errorf("get similarity record: %w", err)
	}

	rec.Embedding = vec.Slice()

	return rec, nil
}

// Delete removes the record of ownerID. Missing records are ignored.
func (r *SimilarityRepository) Delete(ctx context.Context, ownerID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM similarity_records WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("similarity delete: %w", err)
	}

	return nil
}

// UpdateFeedback overwrites the rating aggregate of ownerID's record.
func (r *SimilarityRepository) UpdateFeedback(ctx context.Context, ownerID uuid.UUID, agg models.FeedbackAggregate) error {
	_, err := r.db.Exec(ctx, `
		UPDATE similarity_records
		SET average_rating = $2, feedback_count = $3, updated_at = $4
		WHERE owner_id = $1`,
		ownerID, agg.AverageRating, agg.FeedbackCount, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("similarity update feedback: %w", err)
	}

	return nil
}

const resultColumns = `owner_id, average_rating, feedback_count, wave_height, wave_period, wind_speed,
	wind_direction, swell_direction, tide_state, conditions_date`

// Nearest ranks gated records by cosine similarity (1 - cosine distance, <=>). Rows whose
// embedding length differs from the target are skipped.
func (r *SimilarityRepository) Nearest(ctx context.Context, f similarity.VectorFilter) ([]models.SimilarityResult, error) {
	target := pgvector.NewVector(f.Target)

	rows, err := r.db.Query(ctx, `
		SELECT `+resultColumns+`, (1 - (embedding <=> $1)) AS similarity
		FROM similarity_records
		WHERE spot_id = $2 AND feedback_count >= $3 AND average_rating >= $4
		  AND ($5::uuid IS NULL OR owner_id <> $5)
		  AND vector_dims(embedding) = $6
		  AND (1 - (embedding <=> $1)) >= $7
		ORDER BY embedding <=> $1, owner_id
		LIMIT $8`,
		target, f.SpotID, max(f.Gate.MinFeedback, 1), f.Gate.MinRating, f.ExcludeOwner,
		len(f.Target), f.MinSimilarity, f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest similarity records: %w", err)
	}

	results, err := collectResults(rows, true)
	if err != nil || len(results) > 0 {
		return results, err
	}

	return results, r.checkComparable(ctx, f)
}

// checkComparable returns similarity.ErrNoComparableVectors when gated candidates exist but none
// has the target's dimensions.
func (r *SimilarityRepository) checkComparable(ctx context.Context, f similarity.VectorFilter) error {
	var candidates, comparable int

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE vector_dims(embedding) = $5)
		FROM similarity_records
		WHERE spot_id = $1 AND feedback_count >= $2 AND average_rating >= $3
		  AND ($4::uuid IS NULL OR owner_id <> $4)`,
		f.SpotID, max(f.Gate.MinFeedback, 1), f.Gate.MinRating, f.ExcludeOwner, len(f.Target),
	).Scan(&candidates, &comparable)
	if err != nil {
		return fmt.Errorf("count comparable similarity records: %w", err)
	}

	if candidates > 0 && comparable == 0 {
		return similarity.ErrNoComparableVectors
	}

	return nil
}

// TopRated orders gated records by average rating then feedback count.
func (r *SimilarityRepository) TopRated(ctx context.Context, f similarity.CandidateFilter) ([]models.SimilarityResult, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+resultColumns+`
		FROM similarity_records
		WHERE spot_id = $1 AND feedback_count >= $2 AND average_rating >= $3
		  AND ($4::uuid IS NULL OR owner_id <> $4)
		ORDER BY average_rating DESC, feedback_count DESC, created_at DESC, owner_id
		LIMIT $5`,
		f.SpotID, max(f.Gate.MinFeedback, 1), f.Gate.MinRating, f.ExcludeOwner, f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top rated similarity records: %w", err)
	}

	return collectResults(rows, false)
}

// Stats summarizes the table.
func (r *SimilarityRepository) Stats(ctx context.Context) (models.EmbeddingStats, error) {
	var stats models.EmbeddingStats

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE feedback_count > 0),
			COALESCE(AVG(average_rating) FILTER (WHERE feedback_count > 0), 0)::float8,
			COUNT(DISTINCT spot_id)
		FROM similarity_records`,
	).Scan(&stats.Total, &stats.WithFeedback, &stats.AverageRating, &stats.DistinctSpotsCovered)
	if err != nil {
		return models.EmbeddingStats{}, fmt.Errorf("similarity stats: %w", err)
	}

	stats.AverageRating = math.Round(stats.AverageRating*100) / 100

	return stats, nil
}

func collectResults(rows pgx.Rows, withScore bool) ([]models.SimilarityResult, error) {
	defer rows.Close()

	results := []models.SimilarityResult{}

	for rows.Next() {
		var res models.SimilarityResult

		dest := []any{
			&res.OwnerID, &res.AverageRating, &res.FeedbackCount, &res.WaveHeight, &res.WavePeriod,
			&res.WindSpeed, &res.WindDirection, &res.SwellDirection, &res.TideState, &res.ConditionsDate,
		}
		if withScore {
			dest = append(dest, &res.Similarity)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan similarity result: %w", err)
		}

		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating similarity results: %w", err)
	}

	return results, nil
}

var _ similarity.Store = (*SimilarityRepository)(nil)
