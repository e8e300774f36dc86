package providers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coursekb/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct{ mock.Mock }

func (m *mockEmbedder) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	args := m.Called(ctx, req)
	v, _ := args.Get(0).([][]float32)
	return v, args.Get(1).(ProviderInfo), args.Error(2)
}

type mockLLM struct{ mock.Mock }

func (m *mockLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(GenerateResponse), args.Get(1).(ProviderInfo), args.Error(2)
}

type recorded struct {
	mu   sync.Mutex
	recs []CallRecord
}

func (r *recorded) record(_ context.Context, rec CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func TestEmbedTextFailsOverToNextProvider(t *testing.T) {
	primary := &mockEmbedder{}
	primary.On("Embed", mock.Anything, mock.Anything).Return(nil, ProviderInfo{Name: "openai"}, errors.New("openai embedding error 503"))
	secondary := &mockEmbedder{}
	secondary.On("Embed", mock.Anything, EmbedRequest{Operation: "course", Inputs: []string{"Intro"}, Dimension: 3}).
		Return([][]float32{{1, 0, 0}}, ProviderInfo{Name: "ollama", Model: "nomic"}, nil)

	rec := &recorded{}
	m := NewManagerWith(nil, []NamedEmbedProvider{
		{Ref: ProviderRef{Raw: "openai", Name: "openai"}, Provider: primary},
		{Ref: ProviderRef{Raw: "ollama", Name: "ollama"}, Provider: secondary},
	}, 3, WithRecorder(rec.record))

	vec, err := m.EmbedText(context.Background(), "course", "Intro")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	primary.AssertNumberOfCalls(t, "Embed", 1)
	require.Len(t, rec.recs, 2)
	assert.Equal(t, "error", rec.recs[0].Status)
	assert.Equal(t, ErrorTransient, rec.recs[0].ErrorType)
	assert.Equal(t, "ok", rec.recs[1].Status)
}

func TestEmbedTextExhaustedIsUnavailable(t *testing.T) {
	p := &mockEmbedder{}
	p.On("Embed", mock.Anything, mock.Anything).Return([][]float32{{1, 2}}, ProviderInfo{Name: "openai"}, nil)
	m := NewManagerWith(nil, []NamedEmbedProvider{{Ref: ProviderRef{Name: "openai"}, Provider: p}}, 3)

	_, err := m.EmbedText(context.Background(), "query", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "2 dimensions")
}

func TestEmbedTextHonoursRateLimit(t *testing.T) {
	m := NewManagerWith(nil, nil, 8, WithRateLimit(50, 1))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := m.EmbedText(context.Background(), "query", "x")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.EmbedText(ctx, "query", "x")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestCompleteEmptyTextIsGenerationFailure(t *testing.T) {
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, mock.Anything).Return(GenerateResponse{Text: "  "}, ProviderInfo{Name: "openai"}, nil)
	m := NewManagerWith([]NamedLLMProvider{{Ref: ProviderRef{Name: "openai"}, Provider: llm}}, nil, 3)

	_, err := m.Complete(context.Background(), GenerateRequest{Operation: "search_answer", Prompt: "p"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestCompletePassesRequestThrough(t *testing.T) {
	req := GenerateRequest{Operation: "search_answer", System: "sys", Prompt: "p", Temperature: 0.7, MaxTokens: 500}
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, req).Return(GenerateResponse{Text: "answer"}, ProviderInfo{Name: "groq"}, nil)
	m := NewManagerWith([]NamedLLMProvider{
		{Ref: ProviderRef{Name: "mock"}, Provider: NewMockProvider(3)},
		{Ref: ProviderRef{Name: "groq"}, Provider: llm},
	}, nil, 3)

	out, err := m.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestNewManagerFromConfig(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock", EmbedProviders: "mock", EmbedDim: 16, EmbedRatePerSec: 10, EmbedBurst: 2}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	vec, err := m.EmbedText(context.Background(), "query", "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 16)

	_, err = NewManager(config.Config{EmbedProviders: "groq", EmbedDim: 16})
	assert.ErrorContains(t, err, "does not support embeddings")

	_, err = NewManager(config.Config{LLMProviders: "bogus", EmbedDim: 16})
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(32)
	a, _, _ := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"same"}})
	b, _, _ := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"same"}})
	c, _, _ := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"other"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var norm float64
	for _, x := range a[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-3)

	resp, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Context:\nA\n\n---\n\nB\n\nQuery: what is a thread?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "2 context passage(s)")
}
