package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric collectors. When metrics are disabled, all fields are nil.
// Components accept the corresponding interface and already handle nil.
type Metrics struct {
	API        APIMetrics
	Forecast   ForecastMetrics
	Embeddings EmbeddingMetrics
	Similarity SimilarityMetrics
	Enrichment EnrichmentMetrics
	Cache      CacheMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	forecast, err := NewForecastMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("forecast metrics: %w", err)
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	similarity, err := NewSimilarityMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("similarity metrics: %w", err)
	}

	enrichment, err := NewEnrichmentMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("enrichment metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	return &Metrics{
		API:        api,
		Forecast:   forecast,
		Embeddings: embeddings,
		Similarity: similarity,
		Enrichment: enrichment,
		Cache:      cache,
	}, nil
}
