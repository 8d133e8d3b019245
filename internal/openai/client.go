package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Logger is the minimal logging surface the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client talks to an OpenAI-compatible API. One client serves all three
// endpoint families the pipeline uses: chat completions, responses, and
// image generation.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  Logger
}

// Usage is the token accounting a call reports. Chat completions report
// prompt/completion counts; those map onto input/output here so every
// stage records usage in one shape.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// New constructs a client for an OpenAI-compatible endpoint.
//
// An empty apiKey is accepted: the daemon must keep running without one so
// the host does not restart-loop it. Every call then fails fatally with
// ErrNoAPIKey and surfaces in the run outcome instead.
//
// Parameters:
//   - baseURL: API root, e.g. https://api.openai.com/v1
//   - apiKey: Bearer key; empty defers the failure to call time
//   - timeout: Per-request deadline
//   - logger: Destination for diagnostics; nil for none
//
// Returns:
//   - *Client: Ready-to-use client
func New(baseURL, apiKey string, timeout time.Duration, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// apiError is the error envelope OpenAI-compatible APIs return alongside a
// non-2xx status.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// post sends a JSON request and decodes the JSON response into out. All
// failures come back classified as retryable or fatal.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: %w", ErrFatal, ErrNoAPIKey)
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrFatal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrFatal, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRetryable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(body))
		var envelope apiError
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			detail = envelope.Error.Message
		}
		return classifyStatus(resp.StatusCode, detail)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrRetryable, err)
	}

	c.logger.Debug("API call completed", "path", path, "duration", time.Since(start))
	return nil
}
