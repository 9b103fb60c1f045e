// Package gateway is the optional external analysis client. It must only
// ever receive payloads that passed the firewall gate in the same run; the
// analysis runner owns that invariant and is this package's only caller.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/driftsec/hostsentry/internal/config"
	"github.com/driftsec/hostsentry/pkg/types"
)

// GatewayError is a recoverable failure of the external analysis step
// (network, auth, malformed response). The run continues report-only.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed; %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	httpc    *resty.Client
	provider string
	model    string
	logger   *slog.Logger
}

// New creates a gateway client. The API key arrives out of band through the
// environment and is only ever placed in the auth header, never logged.
func New(cfg config.ExternalConfig, logger *slog.Logger) *Client {
	httpc := resty.New()
	httpc.SetBaseURL(cfg.BaseURL)
	httpc.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey))
	httpc.SetHeader("Content-Type", "application/json")
	httpc.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &Client{
		httpc:    httpc,
		provider: cfg.Provider,
		model:    cfg.Model,
		logger:   logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

const systemPrompt = "You are a security analyst reviewing host triage results. " +
	"Assess the likelihood of compromise and suggest next steps. " +
	"The report you receive has been sanitized; do not ask for raw artifacts."

// Analyze submits the gated prompt and the structured summary for external
// review. Failures are recoverable GatewayErrors; the caller keeps the run
// in report-only mode.
func (c *Client) Analyze(ctx context.Context, prompt string, summary types.Summary) (*types.GatewayResult, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	c.logger.Info("requesting external analysis",
		"provider", c.provider,
		"model", c.model,
		"prompt_length", len(prompt),
		"total_findings", summary.TotalFindings)

	var parsed chatResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&parsed).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, &GatewayError{Op: "request", Err: err}
	}
	if resp.IsError() {
		return nil, &GatewayError{Op: "response", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	if len(parsed.Choices) == 0 {
		return nil, &GatewayError{Op: "decode", Err: fmt.Errorf("response contained no choices")}
	}

	result := &types.GatewayResult{
		Provider:     c.provider,
		Model:        c.model,
		AnalysisText: parsed.Choices[0].Message.Content,
		Usage: types.GatewayUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}

	c.logger.Info("external analysis completed",
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens)

	return result, nil
}
