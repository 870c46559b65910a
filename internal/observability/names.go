// Package observability provides OpenTelemetry metrics and tracing for the surf report API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests           = "surf_http_requests_total"
	MetricNameHTTPDuration           = "surf_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge    = "surf_request_body_too_large_total"
	MetricNameForecastAttempts       = "surf_forecast_attempts_total"
	MetricNameForecastFetchDuration  = "surf_forecast_fetch_duration_seconds"
	MetricNameForecastDegradations   = "surf_forecast_horizon_degradations_total"
	MetricNameEmbeddingOutcomes      = "surf_embedding_strategy_outcomes_total"
	MetricNameEmbeddingDuration      = "surf_embedding_strategy_duration_seconds"
	MetricNameSimilarityQueries      = "surf_similarity_queries_total"
	MetricNameSimilarityUpserts      = "surf_similarity_upserts_total"
	MetricNameEnrichmentJobsEnqueued = "surf_enrichment_jobs_enqueued_total"
	MetricNameEnrichmentOutcomes     = "surf_enrichment_outcomes_total"
	MetricNameEnrichmentDuration     = "surf_enrichment_duration_seconds"
	MetricNameRiverQueueDepth        = "surf_river_queue_depth"
	MetricNameCacheHits              = "surf_cache_hits_total"
	MetricNameCacheMisses            = "surf_cache_misses_total"
)

// Attribute keys.
const (
	AttrSource    = "source"
	AttrTransport = "transport"
	AttrOutcome   = "outcome"
	AttrStrategy  = "strategy"
	AttrStatus    = "status"
	AttrMode      = "mode"
	AttrHorizon   = "horizon_days"
	AttrReason    = "reason"
)

// AllowedForecastSources for forecast metrics.
var AllowedForecastSources = map[string]bool{
	"marine":      true,
	"atmospheric": true,
}

// AllowedTransports for surf_forecast_attempts_total.
var AllowedTransports = map[string]bool{
	"pooled": true,
	"bare":   true,
}

// AllowedAttemptOutcomes for surf_forecast_attempts_total.
var AllowedAttemptOutcomes = map[string]bool{
	"success": true,
	"retry":   true,
	"failed":  true,
}

// AllowedFetchOutcomes for surf_forecast_fetch_duration_seconds.
var AllowedFetchOutcomes = map[string]bool{
	"success": true,
	"failed":  true,
}

// AllowedEmbeddingStrategies for embedding metrics.
var AllowedEmbeddingStrategies = map[string]bool{
	"remote":     true,
	"local":      true,
	"projection": true,
}

// AllowedEmbeddingStatuses for surf_embedding_strategy_outcomes_total.
var AllowedEmbeddingStatuses = map[string]bool{
	"success": true,
	"failed":  true,
}

// AllowedSimilarityModes for surf_similarity_queries_total.
var AllowedSimilarityModes = map[string]bool{
	"vector":    true,
	"estimated": true,
	"failed":    true,
}

// AllowedUpsertOutcomes for surf_similarity_upserts_total.
var AllowedUpsertOutcomes = map[string]bool{
	"success": true,
	"failed":  true,
}

// AllowedEnrichmentStatuses for enrichment outcome and duration metrics.
var AllowedEnrichmentStatuses = map[string]bool{
	"success":      true,
	"retry":        true,
	"failed_final": true,
	"skipped":      true,
	"panic":        true,
}

// AllowedCacheNames for cache hit/miss metrics.
var AllowedCacheNames = map[string]bool{
	"embedding_phrase": true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
