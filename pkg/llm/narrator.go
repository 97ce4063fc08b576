package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/config"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/retry"
)

// GuardedGenerator bounds a Generator with a timeout, retries for transient
// errors and a circuit breaker. Every failure it returns wraps
// apperrors.ErrNarrativeUnavailable.
type GuardedGenerator struct {
	inner   Generator
	breaker *CircuitBreaker
	timeout time.Duration
	retry   *retry.Config
	logger  *zap.Logger
}

var _ Generator = (*GuardedGenerator)(nil)

// NewGuardedGenerator wraps inner. A nil breaker gets the default configuration.
func NewGuardedGenerator(inner Generator, breaker *CircuitBreaker, timeout time.Duration, logger *zap.Logger) *GuardedGenerator {
	if breaker == nil {
		breaker = NewCircuitBreaker(CircuitBreakerConfig{Name: "narrative"})
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GuardedGenerator{
		inner:   inner,
		breaker: breaker,
		timeout: timeout,
		retry:   retry.ProviderConfig(),
		logger:  logger.Named("narrative"),
	}
}

// Generate implements Generator.
func (g *GuardedGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if allowed, err := g.breaker.Allow(); !allowed {
		return "", fmt.Errorf("%w: %v", apperrors.ErrNarrativeUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var text string
	err := retry.DoIfRetryable(callCtx, g.retry, func() error {
		out, err := g.inner.Generate(callCtx, systemPrompt, userPrompt)
		if err != nil {
			return ClassifyError(err)
		}
		text = out
		return nil
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = NewError(ErrorTypeUnknown, "empty narrative", false, nil)
	}
	if err != nil {
		g.breaker.RecordFailure()
		g.logger.Warn("Narrative generation failed",
			zap.String("circuit_state", g.breaker.State().String()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrNarrativeUnavailable, err)
	}

	g.breaker.RecordSuccess()
	return text, nil
}

// NewNarrativeGenerator builds the configured narrative provider wrapped in a
// GuardedGenerator. It returns nil when no provider is configured.
func NewNarrativeGenerator(cfg *config.NarrativeConfig, breaker *CircuitBreaker, logger *zap.Logger) (Generator, error) {
	var inner Generator

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := NewClient(&Config{
			Endpoint:    cfg.Endpoint,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai narrative client: %w", err)
		}
		inner = client
	case config.ProviderAnthropic:
		client, err := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic narrative client: %w", err)
		}
		inner = client
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown narrative provider %q", cfg.Provider)
	}

	return NewGuardedGenerator(inner, breaker, cfg.Timeout, logger), nil
}
