package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

// pgForeignKeyViolation is the SQLSTATE for foreign_key_violation.
const pgForeignKeyViolation = "23503"

// FeedbackRepository handles data access for report ratings.
type FeedbackRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// CreateAndAggregate inserts fb and returns the report's recomputed rating aggregate, both in one
// transaction. ID and CreatedAt must already be set.
func (r *FeedbackRepository) CreateAndAggregate(ctx context.Context, fb *models.Feedback) (models.FeedbackAggregate, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.FeedbackAggregate{}, fmt.Errorf("begin feedback transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO report_feedback (id, report_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		fb.ID, fb.ReportID, fb.Rating, fb.Comment, fb.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return models.FeedbackAggregate{}, huberrors.NewNotFoundError("report", "report not found")
		}

		return models.FeedbackAggregate{}, fmt.Errorf("failed to create feedback: %w", err)
	}

	agg, err := aggregate(ctx, tx, fb.ReportID)
	if err != nil {
		return models.FeedbackAggregate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.FeedbackAggregate{}, fmt.Errorf("commit feedback transaction: %w", err)
	}

	return agg, nil
}

// Aggregate returns the current rating aggregate of a report (zero when it has no feedback).
func (r *FeedbackRepository) Aggregate(ctx context.Context, reportID uuid.UUID) (models.FeedbackAggregate, error) {
	return aggregate(ctx, r.db, reportID)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func aggregate(ctx context.Context, q querier, reportID uuid.UUID) (models.FeedbackAggregate, error) {
	var agg models.FeedbackAggregate

	err := q.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM report_feedback WHERE report_id = $1`, reportID,
	).Scan(&agg.AverageRating, &agg.FeedbackCount)
	if err != nil {
		return models.FeedbackAggregate{}, fmt.Errorf("aggregate feedback: %w", err)
	}

	agg.AverageRating = math.Round(agg.AverageRating*100) / 100

	return agg, nil
}
