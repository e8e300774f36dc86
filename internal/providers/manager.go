package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursekb/internal/config"
	"coursekb/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// CallRecord describes one provider call for audit logging.
type CallRecord struct {
	Operation string
	Provider  string
	Model     string
	Status    string
	ErrorType ErrorType
	Duration  time.Duration
}

type CallRecorder func(ctx context.Context, rec CallRecord)

// Manager owns the configured providers. Calls try providers in preferred
// order and fail over once per provider; retries with backoff belong to the
// embedding backfill workflow.
type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
	embedDim       int
	limiter        *rate.Limiter
	recorder       CallRecorder
	logger         *zap.Logger
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithRecorder(r CallRecorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithRateLimit bounds embedding calls per second; callers block until a token is free.
func WithRateLimit(perSec float64, burst int) Option {
	return func(m *Manager) {
		if perSec > 0 && burst > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

func NewManager(cfg config.Config, opts ...Option) (*Manager, error) {
	var (
		llms   []NamedLLMProvider
		embeds []NamedEmbedProvider
	)
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		llms = append(llms, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		embeds = append(embeds, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	opts = append([]Option{WithRateLimit(cfg.EmbedRatePerSec, cfg.EmbedBurst)}, opts...)
	return NewManagerWith(llms, embeds, cfg.EmbedDim, opts...), nil
}

// NewManagerWith builds a Manager from already constructed providers.
// Empty lists fall back to the mock provider.
func NewManagerWith(llms []NamedLLMProvider, embeds []NamedEmbedProvider, embedDim int, opts ...Option) *Manager {
	if embedDim <= 0 {
		embedDim = 1536
	}
	m := &Manager{
		llmProviders:   llms,
		embedProviders: embeds,
		embedDim:       embedDim,
		logger:         zap.NewNop(),
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(embedDim)}}
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(embedDim)}}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) EmbedDim() int {
	return m.embedDim
}

// EmbedText returns one vector of EmbedDim floats for text.
func (m *Manager) EmbedText(ctx context.Context, op, text string) ([]float32, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: wait for rate limiter: %w", ErrEmbeddingUnavailable, err)
		}
	}
	var lastErr error
	for _, idx := range m.PreferredEmbedOrder() {
		named := m.embedProviders[idx]
		start := time.Now()
		vecs, info, err := named.Provider.Embed(ctx, EmbedRequest{Operation: op, Inputs: []string{text}, Dimension: m.embedDim})
		if err == nil {
			switch {
			case len(vecs) == 0 || len(vecs[0]) == 0:
				err = errors.New("provider returned no embedding")
			case len(vecs[0]) != m.embedDim:
				err = fmt.Errorf("embedding has %d dimensions, want %d", len(vecs[0]), m.embedDim)
			}
		}
		m.observe(ctx, op, named.Ref, info, start, err)
		if err == nil {
			return vecs[0], nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, lastErr)
}

// Complete runs a chat completion and returns the answer text.
func (m *Manager) Complete(ctx context.Context, req GenerateRequest) (string, error) {
	var lastErr error
	for _, idx := range m.PreferredLLMOrder() {
		named := m.llmProviders[idx]
		start := time.Now()
		resp, info, err := named.Provider.Generate(ctx, req)
		if err == nil && strings.TrimSpace(resp.Text) == "" {
			err = errors.New("provider returned empty completion")
		}
		m.observe(ctx, req.Operation, named.Ref, info, start, err)
		if err == nil {
			return resp.Text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}

func (m *Manager) observe(ctx context.Context, op string, ref ProviderRef, info ProviderInfo, start time.Time, err error) {
	elapsed := time.Since(start)
	name := info.Name
	if name == "" {
		name = ref.Name
	}
	rec := CallRecord{Operation: op, Provider: name, Model: info.Model, Status: "ok", Duration: elapsed}
	if err != nil {
		rec.Status = "error"
		rec.ErrorType = ClassifyError(err)
		m.logger.Warn("provider call failed",
			zap.String("operation", op),
			zap.String("provider", ref.Raw),
			zap.String("error_type", string(rec.ErrorType)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}
	metrics.ProviderCallsTotal.WithLabelValues(op, name, rec.Status).Inc()
	metrics.ProviderCallDuration.WithLabelValues(op, name).Observe(elapsed.Seconds())
	if m.recorder != nil {
		m.recorder(ctx, rec)
	}
}

func (m *Manager) PreferredLLMOrder() []int {
	return preferredOrder(len(m.llmProviders), func(i int) string { return m.llmProviders[i].Ref.Name })
}

func (m *Manager) PreferredEmbedOrder() []int {
	return preferredOrder(len(m.embedProviders), func(i int) string { return m.embedProviders[i].Ref.Name })
}

// preferredOrder keeps configured order but moves mock providers last.
func preferredOrder(n int, nameAt func(i int) string) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
