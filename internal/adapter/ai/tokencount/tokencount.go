// Package tokencount approximates prompt and completion sizes in tokens.
//
// Local models served by Ollama ship their own tokenizers; cl100k_base is used as
// a stable approximation so prompt sizes are comparable across models. The BPE
// ranks are loaded from the embedded offline loader, so counting never touches
// the network.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const defaultEncoding = "cl100k_base"

var loaderOnce sync.Once

func useOfflineLoader() {
	loaderOnce.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })
}

// Usage is the token accounting of one completion call.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// Counter counts tokens. Safe for concurrent use.
type Counter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	useOfflineLoader()
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

// Default is the process-wide counter.
var Default = NewCounter()

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	c.mu.RLock()
	enc, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	c.cache[name] = enc
	return enc, nil
}

// encodingName picks the tiktoken encoding for an Ollama model tag like "phi3:mini".
func encodingName(model string) string {
	m := strings.ToLower(model)
	if i := strings.IndexByte(m, ':'); i >= 0 {
		m = m[:i]
	}
	switch {
	case strings.HasPrefix(m, "gpt-4o"):
		return "o200k_base"
	case strings.HasPrefix(m, "gpt-3"), strings.HasPrefix(m, "text-davinci"):
		return "p50k_base"
	default:
		// phi, llama, mistral, gemma, qwen...
		return defaultEncoding
	}
}

// Count returns the number of tokens in text for model.
func (c *Counter) Count(text, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Estimate is Count with a ~4 chars/token fallback when the encoding is unavailable.
func (c *Counter) Estimate(text, model string) int {
	n, err := c.Count(text, model)
	if err != nil {
		slog.Debug("token count failed, estimating", slog.String("model", model), slog.Any("error", err))
		return (len(text) + 3) / 4
	}
	return n
}

// Usage computes prompt and completion token usage.
func (c *Counter) Usage(prompt, completion, model string) Usage {
	p := c.Estimate(prompt, model)
	r := c.Estimate(completion, model)
	return Usage{PromptTokens: p, CompletionTokens: r, TotalTokens: p + r, Model: model}
}
