package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OllamaProvider serves local embeddings and chat through an Ollama daemon.
// Example embedding model: nomic-embed-text.
type OllamaProvider struct {
	alias      string
	baseURL    string
	embedModel string
	chatModel  string
	client     *http.Client
}

func NewOllamaProvider(alias string) *OllamaProvider {
	return &OllamaProvider{
		alias:      alias,
		baseURL:    strings.TrimRight(envOr("COURSEKB_OLLAMA_BASE_URL", "http://localhost:11434"), "/"),
		embedModel: resolveOllamaEmbedModel(alias),
		chatModel:  envOr("COURSEKB_OLLAMA_CHAT_MODEL", "llama3.1"),
		client:     &http.Client{Timeout: 90 * time.Second},
	}
}

func (o *OllamaProvider) post(ctx context.Context, path string, payload any, out any) error {
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ollama %s error %d: %s", path, resp.StatusCode, truncate(string(raw), 512))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode ollama response: %w", err)
	}
	return nil
}

func (o *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.embedModel, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	out := make([][]float32, 0, len(req.Inputs))
	for _, text := range req.Inputs {
		var parsed struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := o.post(ctx, "/api/embeddings", map[string]any{"model": o.embedModel, "prompt": text}, &parsed); err != nil {
			return nil, info, err
		}
		if len(parsed.Embedding) == 0 {
			return nil, info, fmt.Errorf("ollama returned empty embedding")
		}
		out = append(out, matchDimension(parsed.Embedding, req.Dimension))
	}
	return out, info, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.chatModel, Key: o.alias}
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})
	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	err := o.post(ctx, "/api/chat", map[string]any{
		"model":    o.chatModel,
		"messages": messages,
		"stream":   false,
		"options":  options,
	}, &parsed)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: parsed.Message.Content}, info, nil
}

func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		if v := strings.TrimSpace(os.Getenv("COURSEKB_OLLAMA_EMBED_MODEL_" + sanitizeEnvToken(alias))); v != "" {
			return v
		}
		switch strings.ToLower(alias) {
		case "nomic":
			return "nomic-embed-text"
		case "bge":
			return "bge-small-en-v1.5"
		}
		// ollama:<model> names the model directly.
		if strings.ContainsAny(alias, "-/.") {
			return alias
		}
	}
	return envOr("COURSEKB_OLLAMA_EMBED_MODEL", "nomic-embed-text")
}

// matchDimension truncates or zero-pads v to the configured vector width.
func matchDimension(v []float32, target int) []float32 {
	if target <= 0 || len(v) == target {
		return v
	}
	if len(v) > target {
		return v[:target]
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}
