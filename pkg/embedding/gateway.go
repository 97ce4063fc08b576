// Package embedding turns text into fixed-length vectors and scores their similarity.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/llm"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/retry"
)

// DefaultDimensions is the vector length used when none is configured.
const DefaultDimensions = 384

// Embedder turns text into a vector.
// Blank text yields an empty vector and no error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider is an external embedding endpoint. *llm.Client satisfies it.
type Provider interface {
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	Model      string
	Dimensions int
	Timeout    time.Duration
	Retry      *retry.Config
}

// Gateway embeds text through a Provider with caching, a bounded timeout, retries
// for transient errors and a circuit breaker. With a nil Provider it falls back to
// the deterministic HashEmbedder.
type Gateway struct {
	provider Provider
	fallback *HashEmbedder
	cache    Cache
	breaker  *llm.CircuitBreaker
	cfg      GatewayConfig
	logger   *zap.Logger
}

var _ Embedder = (*Gateway)(nil)

// NewGateway creates a Gateway. provider, cache and breaker may be nil.
func NewGateway(provider Provider, cache Cache, breaker *llm.CircuitBreaker, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.ProviderConfig()
	}
	if breaker == nil {
		breaker = llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig())
	}
	return &Gateway{
		provider: provider,
		fallback: NewHashEmbedder(cfg.Dimensions),
		cache:    cache,
		breaker:  breaker,
		cfg:      cfg,
		logger:   logger.Named("embedding"),
	}
}

// Dimensions returns the vector length every embedding from this gateway has.
func (g *Gateway) Dimensions() int {
	return g.cfg.Dimensions
}

// UsesProvider reports whether an external provider is configured.
func (g *Gateway) UsesProvider() bool {
	return g.provider != nil
}

// Embed returns the vector for text. Provider failures are reported as
// apperrors.ErrEmbeddingUnavailable so callers can degrade.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []float32{}, nil
	}

	if g.provider == nil {
		return g.fallback.Embed(ctx, text)
	}

	key := CacheKey(g.cfg.Model, text)
	if g.cache != nil {
		if vec, ok := g.cache.Get(ctx, key); ok && len(vec) == g.cfg.Dimensions {
			return vec, nil
		}
	}

	if allowed, err := g.breaker.Allow(); !allowed {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var vec []float32
	err := retry.DoIfRetryable(callCtx, g.cfg.Retry, func() error {
		v, err := g.provider.CreateEmbedding(callCtx, text, g.cfg.Model)
		if err != nil {
			return llm.ClassifyError(err)
		}
		vec = v
		return nil
	})
	if err != nil {
		g.breaker.RecordFailure()
		g.logger.Warn("Embedding request failed",
			zap.String("model", g.cfg.Model),
			zap.String("circuit_state", g.breaker.State().String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}

	if len(vec) != g.cfg.Dimensions {
		g.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: provider returned %d dimensions, expected %d",
			apperrors.ErrEmbeddingUnavailable, len(vec), g.cfg.Dimensions)
	}

	g.breaker.RecordSuccess()
	if g.cache != nil {
		g.cache.Set(ctx, key, vec)
	}
	return vec, nil
}
