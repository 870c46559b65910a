package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

// ReportsRepository handles data access for generated reports.
type ReportsRepository struct {
	db *pgxpool.Pool
}

// NewReportsRepository creates a new reports repository.
func NewReportsRepository(db *pgxpool.Pool) *ReportsRepository {
	return &ReportsRepository{db: db}
}

const reportColumns = `id, spot_id, spot_name, latitude, longitude, horizon_days, requested_horizon_days,
	summary, text, preferences, created_at`

// Create inserts a report. ID and CreatedAt must already be set.
func (r *ReportsRepository) Create(ctx context.Context, report *models.Report) error {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal report summary: %w", err)
	}

	var preferences []byte
	if report.Preferences != nil {
		preferences, err = json.Marshal(report.Preferences)
		if err != nil {
			return fmt.Errorf("marshal report preferences: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		report.ID, report.SpotID, report.SpotName, report.Point.Latitude, report.Point.Longitude,
		report.HorizonDays, report.RequestedHorizonDays, summary, report.Text, preferences, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetByID returns one report.
func (r *ReportsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("report", "report not found")
		}

		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// Delete removes a report. Feedback and the similarity record go with it (ON DELETE CASCADE).
func (r *ReportsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	if result.RowsAffected() == 0 {
		return huberrors.NewNotFoundError("report", "report not found")
	}

	return nil
}

// ListIDsMissingSimilarity returns IDs of reports that have no similarity record yet, oldest first.
func (r *ReportsRepository) ListIDsMissingSimilarity(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rp.id FROM reports rp
		WHERE NOT EXISTS (SELECT 1 FROM similarity_records s WHERE s.owner_id = rp.id)
		ORDER BY rp.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list reports for backfill: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan report id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backfill ids: %w", err)
	}

	return ids, nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		report      models.Report
		summary     []byte
		preferences []byte
	)

	if err := row.Scan(
		&report.ID, &report.SpotID, &report.SpotName, &report.Point.Latitude, &report.Point.Longitude,
		&report.HorizonDays, &report.RequestedHorizonDays, &summary, &report.Text, &preferences, &report.CreatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}

	if err := json.Unmarshal(summary, &report.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal report summary: %w", err)
	}

	if len(preferences) > 0 {
		report.Preferences = &models.Preferences{}
		if err := json.Unmarshal(preferences, report.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal report preferences: %w", err)
		}
	}

	return &report, nil
}
