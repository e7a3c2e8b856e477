package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"go.uber.org/zap"
)

// Provider performs exactly one upstream generation call.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string, structured bool) (*GenerationResponse, error)
	Close() error
}

// ProviderFactory builds a Provider for an API key.
type ProviderFactory func(ctx context.Context, apiKey string) (Provider, error)

// Gateway validates generation requests and forwards them to the provider
// using a server-held credential. It never retries and never caches
// responses.
type Gateway struct {
	apiKey      func() string
	newProvider ProviderFactory
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu       sync.Mutex
	provider Provider
	key      string
}

// New builds a Gateway. apiKey is consulted on every request so that a
// missing credential is reported per call rather than at start-up.
func New(apiKey func() string, factory ProviderFactory, m *metrics.Metrics, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		apiKey:      apiKey,
		newProvider: factory,
		metrics:     m,
		logger:      logger,
	}
}

func (g *Gateway) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperr.InvalidInput("Prompt is required")
	}

	key := g.apiKey()
	if key == "" {
		g.logger.Error("generation rejected: credential missing")
		return nil, apperr.Misconfigured("GEMINI_API_KEY is not configured")
	}

	provider, err := g.providerFor(key)
	if err != nil {
		return nil, apperr.Upstream(0, fmt.Sprintf("Error calling Gemini API: %v", err), err)
	}

	start := time.Now()
	resp, err := provider.GenerateContent(ctx, req.Prompt, req.Structured)
	elapsed := time.Since(start)

	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Upstream(0, fmt.Sprintf("Error calling Gemini API: %v", err), err)
		}
		g.metrics.ObserveGenerate(req.Structured, string(apperr.KindOf(err)), elapsed)
		g.logger.Error("upstream generation failed",
			zap.Bool("json_mode", req.Structured),
			zap.Int("status", apperr.StatusOf(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	g.metrics.ObserveGenerate(req.Structured, "ok", elapsed)
	g.logger.Info("upstream generation succeeded",
		zap.Bool("json_mode", req.Structured),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Duration("elapsed", elapsed),
	)
	return resp, nil
}

// providerFor reuses the current provider while the key is unchanged. The
// provider outlives any single request, so it is built on a background
// context.
func (g *Gateway) providerFor(key string) (Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.provider != nil && g.key == key {
		return g.provider, nil
	}

	p, err := g.newProvider(context.Background(), key)
	if err != nil {
		return nil, err
	}
	if g.provider != nil {
		if err := g.provider.Close(); err != nil {
			g.logger.Warn("closing previous provider", zap.Error(err))
		}
	}
	g.provider, g.key = p, key
	return p, nil
}

// Close releases the cached provider.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.provider == nil {
		return nil
	}
	err := g.provider.Close()
	g.provider, g.key = nil, ""
	return err
}
