// Package ollama implements domain.Completer against an Ollama server's /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const (
	provider        = "ollama"
	maxBodySnippet  = 512
	maxResponseBody = 4 << 20
)

// Client calls Ollama once per Complete; it never retries.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	hc      *http.Client
	breaker *ai.CircuitBreaker
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// New builds a client from explicit settings.
func New(cfg config.CompletionConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		hc: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		breaker: ai.NewCircuitBreaker(provider+":"+cfg.Model, cfg.BreakerFailures, cfg.BreakerCooldown),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the configured model tag.
func (c *Client) Model() string { return c.model }

// Breaker exposes the circuit breaker (nil when disabled).
func (c *Client) Breaker() *ai.CircuitBreaker { return c.breaker }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete posts prompt and returns the raw response text. Every failure wraps
// domain.ErrCompletionUnavailable.
func (c *Client) Complete(ctx domain.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("provider", provider), slog.String("model", c.model))

	if !c.breaker.Allow() {
		observability.ObserveCompletion(provider, "generate", "short_circuit", 0)
		return "", fmt.Errorf("op=ollama.generate: %w: circuit open", domain.ErrCompletionUnavailable)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.generate(ctx, prompt, opts)
	dur := time.Since(start)
	if err != nil {
		c.breaker.RecordFailure()
		observability.ObserveCompletion(provider, "generate", "error", dur)
		lg.Warn("completion failed", slog.Any("error", err), slog.Duration("duration", dur))
		return "", fmt.Errorf("op=ollama.generate: %w: %w", domain.ErrCompletionUnavailable, err)
	}
	c.breaker.RecordSuccess()
	observability.ObserveCompletion(provider, "generate", "ok", dur)
	lg.Debug("completion received", slog.Duration("duration", dur), slog.Int("chars", len(out)))
	return out, nil
}

func (c *Client) generate(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > maxBodySnippet {
			snippet = snippet[:maxBodySnippet]
		}
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, snippet)
	}
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return out.Response, nil
}

// Ping checks that the server is reachable by listing local models.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=ollama.ping: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("op=ollama.ping: %w", errors.New(resp.Status))
	}
	return nil
}
