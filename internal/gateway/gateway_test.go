package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsec/hostsentry/internal/config"
	"github.com/driftsec/hostsentry/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) config.ExternalConfig {
	return config.ExternalConfig{
		Enabled:        true,
		Provider:       "openai",
		BaseURL:        baseURL,
		Model:          "gpt-4o-mini",
		TimeoutSeconds: 5,
		APIKey:         "test-key",
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Low likelihood of active compromise."}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 45}
		}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), testLogger())
	result, err := c.Analyze(context.Background(), "sanitized report text", types.Summary{TotalFindings: 3})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "Low likelihood of active compromise.", result.AnalysisText)
	assert.Equal(t, 120, result.Usage.PromptTokens)
	assert.Equal(t, 45, result.Usage.CompletionTokens)
}

func TestAnalyzeAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), testLogger())
	_, err := c.Analyze(context.Background(), "prompt", types.Summary{})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "response", gwErr.Op)
}

func TestAnalyzeNetworkFailure(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"), testLogger())
	_, err := c.Analyze(context.Background(), "prompt", types.Summary{})

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "request", gwErr.Op)
}

func TestAnalyzeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), testLogger())
	_, err := c.Analyze(context.Background(), "prompt", types.Summary{})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "decode", gwErr.Op)
}
