package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqKeyResolution(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "fallback")
	t.Setenv("COURSEKB_GROQ_KEY_TEAM_A", "team-key")
	assert.Equal(t, "team-key", NewGroqProvider("team-a").apiKey)
	assert.Equal(t, "fallback", NewGroqProvider("other").apiKey)
}

func TestGroqGenerateSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer srv.Close()
	t.Setenv("COURSEKB_GROQ_BASE_URL", srv.URL)
	t.Setenv("GROQ_API_KEY", "k")

	_, info, err := NewGroqProvider("").Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, "groq", info.Name)
	assert.Equal(t, ErrorRate, ClassifyError(err))
}
