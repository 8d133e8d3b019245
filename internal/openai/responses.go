package openai

import (
	"context"
	"fmt"
	"strings"
)

// UserLocation is the approximate location hint for web search.
type UserLocation struct {
	City     string
	Region   string
	Country  string
	Timezone string
}

// ResponsesRequest describes one responses-endpoint call.
type ResponsesRequest struct {
	Model string

	// Instructions is the system-level steer; Input is the user content.
	Instructions string
	Input        string

	// ReasoningEffort enables the reasoning block when non-empty
	// (minimal, low, medium, high).
	ReasoningEffort string

	// WebSearch attaches the web_search tool, optionally localized.
	WebSearch    bool
	UserLocation *UserLocation

	MaxOutputTokens int
}

// Response is the usable part of a responses-endpoint reply.
type Response struct {
	Text  string
	Usage Usage
}

// Respond calls POST /responses.
//
// Parameters:
//   - ctx: Cancels the request
//   - req: Model, input, reasoning, and tool settings
//
// Returns:
//   - Response: Concatenated output text plus token usage
//   - error: Classified via ErrRetryable / ErrFatal
func (c *Client) Respond(ctx context.Context, req ResponsesRequest) (Response, error) {
	payload := map[string]any{
		"model": req.Model,
		"input": req.Input,
	}
	if req.Instructions != "" {
		payload["instructions"] = req.Instructions
	}
	if req.ReasoningEffort != "" {
		payload["reasoning"] = map[string]any{"effort": req.ReasoningEffort}
	}
	if req.MaxOutputTokens > 0 {
		payload["max_output_tokens"] = req.MaxOutputTokens
	}
	if req.WebSearch {
		tool := map[string]any{"type": "web_search"}
		if loc := req.UserLocation; loc != nil {
			tool["user_location"] = map[string]any{
				"type":     "approximate",
				"city":     loc.City,
				"region":   loc.Region,
				"country":  loc.Country,
				"timezone": loc.Timezone,
			}
		}
		payload["tools"] = []any{tool}
	}

	var resp struct {
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := c.post(ctx, "/responses", payload, &resp); err != nil {
		return Response{}, err
	}

	var parts []string
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				parts = append(parts, content.Text)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return Response{}, fmt.Errorf("%w: %w: no output text (model %s)", ErrRetryable, ErrEmptyResponse, req.Model)
	}

	return Response{
		Text: text,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
