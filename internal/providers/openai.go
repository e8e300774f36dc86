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

// chatClient speaks the OpenAI chat completions and embeddings wire format,
// which Groq also serves.
type chatClient struct {
	name    string
	keyName string
	apiKey  string
	baseURL string
	client  *http.Client
}

func (c *chatClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", c.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s error %d: %s", c.name, path, resp.StatusCode, truncate(string(raw), 512))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *chatClient) chat(ctx context.Context, model string, req GenerateRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%s key missing for alias %q", c.name, c.keyName)
	}
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})
	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", payload, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned empty choices", c.name)
	}
	return parsed.Choices[0].Message.Content, nil
}

// OpenAIProvider uses the OpenAI REST API, or any server exposing the same
// routes when COURSEKB_OPENAI_BASE_URL is set.
type OpenAIProvider struct {
	chatClient
	chatModel  string
	embedModel string
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	baseURL := strings.TrimSpace(os.Getenv("COURSEKB_OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		chatClient: chatClient{
			name:    "openai",
			keyName: keyName,
			apiKey:  resolveKey("OPENAI", keyName),
			baseURL: strings.TrimRight(baseURL, "/"),
			client:  &http.Client{Timeout: 60 * time.Second},
		},
		chatModel:  envOr("COURSEKB_OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		embedModel: envOr("COURSEKB_OPENAI_EMBED_MODEL", "text-embedding-3-small"),
	}
}

func (o *OpenAIProvider) info(model string) ProviderInfo {
	return ProviderInfo{Name: "openai", Model: model, Key: o.keyName}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := o.info(o.embedModel)
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	payload := map[string]any{"model": o.embedModel, "input": req.Inputs}
	if req.Dimension > 0 {
		payload["dimensions"] = req.Dimension
	}
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := o.post(ctx, "/embeddings", payload, &parsed); err != nil {
		return nil, info, err
	}
	if len(parsed.Data) != len(req.Inputs) {
		return nil, info, fmt.Errorf("openai returned %d embeddings for %d inputs", len(parsed.Data), len(req.Inputs))
	}
	out := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, info, fmt.Errorf("openai embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, info, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	text, err := o.chat(ctx, o.chatModel, req)
	if err != nil {
		return GenerateResponse{}, o.info(o.chatModel), err
	}
	return GenerateResponse{Text: text}, o.info(o.chatModel), nil
}

// resolveKey looks up COURSEKB_<VENDOR>_KEY_<ALIAS>, then <VENDOR>_API_KEY.
func resolveKey(vendor, alias string) string {
	if alias != "" {
		if v := os.Getenv("COURSEKB_" + vendor + "_KEY_" + sanitizeEnvToken(alias)); v != "" {
			return v
		}
	}
	return os.Getenv(vendor + "_API_KEY")
}

func envOr(k, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return fallback
}

func sanitizeEnvToken(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
