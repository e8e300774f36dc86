package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	chatClient
	model string
}

func NewGroqProvider(keyName string) *GroqProvider {
	return &GroqProvider{
		chatClient: chatClient{
			name:    "groq",
			keyName: keyName,
			apiKey:  resolveKey("GROQ", keyName),
			baseURL: strings.TrimRight(envOr("COURSEKB_GROQ_BASE_URL", "https://api.groq.com/openai/v1"), "/"),
			client:  &http.Client{Timeout: 60 * time.Second},
		},
		model: envOr("COURSEKB_GROQ_MODEL", "llama-3.1-8b-instant"),
	}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Key: g.keyName, Model: g.model}
	text, err := g.chat(ctx, g.model, req)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: text}, info, nil
}
