package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ImageRequest describes one image-generation call.
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

// Image is one generated image, decoded.
type Image struct {
	Data  []byte
	Usage Usage
}

// GenerateImage calls POST /images/generations and decodes the base64
// payload.
//
// gpt-image models return base64 unconditionally and take an output_format
// field; older models need response_format=b64_json to avoid a URL reply.
//
// Parameters:
//   - ctx: Cancels the request
//   - req: Model, prompt, size, and quality
//
// Returns:
//   - Image: Decoded PNG bytes plus token usage where reported
//   - error: Classified via ErrRetryable / ErrFatal
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	payload := map[string]any{
		"model":  req.Model,
		"prompt": req.Prompt,
		"n":      1,
	}
	if req.Size != "" {
		payload["size"] = req.Size
	}
	if req.Quality != "" {
		payload["quality"] = req.Quality
	}
	if strings.HasPrefix(req.Model, "gpt-image") {
		payload["output_format"] = "png"
	} else {
		payload["response_format"] = "b64_json"
	}

	var resp struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := c.post(ctx, "/images/generations", payload, &resp); err != nil {
		return Image{}, err
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Image{}, fmt.Errorf("%w: %w: no image data (model %s)", ErrRetryable, ErrEmptyResponse, req.Model)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("%w: decoding image payload: %v", ErrRetryable, err)
	}

	return Image{
		Data: data,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
