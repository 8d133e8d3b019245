package openai

import (
	"context"
	"fmt"
	"strings"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one chat-completions call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completion is the usable part of a chat-completions response.
type Completion struct {
	Text  string
	Usage Usage
}

// Complete calls POST /chat/completions.
//
// Parameters:
//   - ctx: Cancels the request
//   - req: Model, messages, and sampling settings
//
// Returns:
//   - Completion: First-choice text plus token usage
//   - error: Classified via ErrRetryable / ErrFatal
func (c *Client) Complete(ctx context.Context, req ChatRequest) (Completion, error) {
	payload := struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature,omitempty"`
	}{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := c.post(ctx, "/chat/completions", payload, &resp); err != nil {
		return Completion{}, err
	}

	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("%w: %w: no choices (model %s)", ErrRetryable, ErrEmptyResponse, req.Model)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Completion{}, fmt.Errorf("%w: %w: blank choice (model %s)", ErrRetryable, ErrEmptyResponse, req.Model)
	}

	return Completion{
		Text: text,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
