package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/observability"
	"github.com/surfreport/hub/pkg/cache"
)

// CacheName labels the phrase cache in cache metrics.
const CacheName = "embedding_phrase"

// TextStrategy renders the fingerprint to a phrase and sends it to a TextEmbedder. Calls can be
// rate limited and identical phrases served from a shared loader cache.
type TextStrategy struct {
	name         string
	embedder     TextEmbedder
	limiter      *rate.Limiter
	cache        *cache.LoaderCache[[]float32]
	cacheMetrics observability.CacheMetrics
}

// TextStrategyOption configures a TextStrategy.
type TextStrategyOption func(*TextStrategy)

// WithRateLimiter bounds backend calls. Cache hits are not limited.
func WithRateLimiter(limiter *rate.Limiter) TextStrategyOption {
	return func(s *TextStrategy) { s.limiter = limiter }
}

// WithPhraseCache serves repeated phrases from c. metrics may be nil.
func WithPhraseCache(c *cache.LoaderCache[[]float32], metrics observability.CacheMetrics) TextStrategyOption {
	return func(s *TextStrategy) {
		s.cache = c
		s.cacheMetrics = metrics
	}
}

// NewTextStrategy creates a strategy named name (StrategyRemote or StrategyLocal).
func NewTextStrategy(name string, embedder TextEmbedder, opts ...TextStrategyOption) *TextStrategy {
	s := &TextStrategy{name: name, embedder: embedder}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name implements Strategy.
func (s *TextStrategy) Name() string { return s.name }

// Embed implements Strategy.
func (s *TextStrategy) Embed(ctx context.Context, fp models.ConditionFingerprint) ([]float32, error) {
	phrase := RenderPhrase(fp)

	load := func(ctx context.Context) ([]float32, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%s rate limit: %w", s.name, err)
			}
		}

		vector, err := s.embedder.CreateEmbedding(ctx, phrase)
		if err != nil {
			return nil, fmt.Errorf("%s embedding: %w", s.name, err)
		}

		return vector, nil
	}

	if s.cache == nil {
		return load(ctx)
	}

	vector, hit, err := s.cache.Get(ctx, s.name+"|"+phrase, load)
	if s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, CacheName)
		} else {
			s.cacheMetrics.RecordMiss(ctx, CacheName)
		}
	}

	if err != nil {
		return nil, err
	}

	// Callers may normalize in place; never hand out the cached slice.
	return append([]float32(nil), vector...), nil
}
