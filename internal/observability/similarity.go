package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SimilarityMetrics records similarity index usage: which ranking answered a query and
// upsert outcomes.
type SimilarityMetrics interface {
	RecordQuery(ctx context.Context, mode string)
	RecordUpsert(ctx context.Context, outcome string)
}

type similarityMetrics struct {
	queries metric.Int64Counter
	upserts metric.Int64Counter
}

// NewSimilarityMetrics creates SimilarityMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewSimilarityMetrics(meter metric.Meter) (SimilarityMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	queries, err := meter.Int64Counter(
		MetricNameSimilarityQueries,
		metric.WithDescription("Similarity queries by mode: vector, estimated (attribute fallback), failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity queries counter: %w", err)
	}

	upserts, err := meter.Int64Counter(
		MetricNameSimilarityUpserts,
		metric.WithDescription("Similarity record upserts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity upserts counter: %w", err)
	}

	return &similarityMetrics{queries: queries, upserts: upserts}, nil
}

func (s *similarityMetrics) RecordQuery(ctx context.Context, mode string) {
	s.queries.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMode, NormalizeReason(mode, AllowedSimilarityModes))))
}

func (s *similarityMetrics) RecordUpsert(ctx context.Context, outcome string) {
	s.upserts.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedUpsertOutcomes))))
}
