package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testKey = "sk-test"

func newClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, testKey, 5*time.Second, nil)
}

// ─── Chat completions ───────────────────────────────────────────────────────

func TestCompleteParsesChoiceAndUsage(t *testing.T) {
	var gotBody map[string]any
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer "+testKey {
			t.Error("missing bearer auth")
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "a foggy morning over the harbour"}},
			},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
		})
	}))

	got, err := client.Complete(context.Background(), ChatRequest{
		Model:       "gpt-4o",
		Messages:    []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}},
		MaxTokens:   256,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "a foggy morning over the harbour" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Usage != (Usage{InputTokens: 120, OutputTokens: 40, TotalTokens: 160}) {
		t.Errorf("usage = %+v", got.Usage)
	}
	if gotBody["model"] != "gpt-4o" {
		t.Errorf("request model = %v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(256) {
		t.Errorf("request max_tokens = %v", gotBody["max_tokens"])
	}
}

func TestCompleteEmptyChoicesIsRetryable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))

	_, err := client.Complete(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
	if !IsRetryable(err) {
		t.Errorf("empty response not retryable: %v", err)
	}
}

// ─── Error classification ───────────────────────────────────────────────────

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"request timeout", http.StatusRequestTimeout, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"bad request", http.StatusBadRequest, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "nope", "type": "test"},
				})
			}))

			_, err := client.Complete(context.Background(), ChatRequest{Model: "gpt-4o"})
			if err == nil {
				t.Fatal("Complete() = nil error")
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", err, !tt.retryable, tt.retryable)
			}
			if !tt.retryable && !errors.Is(err, ErrFatal) {
				t.Errorf("error = %v, want ErrFatal", err)
			}
		})
	}
}

func TestMalformedBodyIsRetryable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))

	_, err := client.Complete(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !IsRetryable(err) {
		t.Errorf("decode failure not retryable: %v", err)
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches the connection and cancels
		// the request context when the timed-out client disconnects.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	client.http.Timeout = 50 * time.Millisecond

	_, err := client.Complete(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !IsRetryable(err) {
		t.Errorf("timeout not retryable: %v", err)
	}
}

func TestMissingKeyFailsPerCall(t *testing.T) {
	// Construction must succeed so a misconfigured add-on keeps running;
	// the failure belongs to the call, and to no endpoint. The server
	// proves no request goes out.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request issued without an API key")
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, nil)

	_, err := client.Complete(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("Complete() error = %v, want ErrNoAPIKey", err)
	}
	if !errors.Is(err, ErrFatal) {
		t.Errorf("missing key must be fatal, got %v", err)
	}
	if IsRetryable(err) {
		t.Errorf("missing key must not trigger fallback: %v", err)
	}
}

// ─── Responses endpoint ─────────────────────────────────────────────────────

func TestRespondParsesOutputText(t *testing.T) {
	var gotBody map[string]any
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{"type": "reasoning", "content": []any{}},
				{"type": "message", "content": []map[string]any{
					{"type": "output_text", "text": "render the skyline at dusk"},
				}},
			},
			"usage": map[string]any{"input_tokens": 300, "output_tokens": 90, "total_tokens": 390},
		})
	}))

	got, err := client.Respond(context.Background(), ResponsesRequest{
		Model:           "gpt-5.2",
		Input:           "describe the scene",
		ReasoningEffort: "medium",
		WebSearch:       true,
		UserLocation:    &UserLocation{City: "Bristol", Country: "GB", Timezone: "Europe/London"},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got.Text != "render the skyline at dusk" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Usage.TotalTokens != 390 {
		t.Errorf("usage = %+v", got.Usage)
	}

	reasoning, ok := gotBody["reasoning"].(map[string]any)
	if !ok || reasoning["effort"] != "medium" {
		t.Errorf("request reasoning = %v", gotBody["reasoning"])
	}
	tools, ok := gotBody["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("request tools = %v", gotBody["tools"])
	}
	tool := tools[0].(map[string]any)
	if tool["type"] != "web_search" {
		t.Errorf("tool type = %v", tool["type"])
	}
	loc := tool["user_location"].(map[string]any)
	if loc["city"] != "Bristol" || loc["type"] != "approximate" {
		t.Errorf("tool user_location = %v", loc)
	}
}

func TestRespondOmitsOptionalFields(t *testing.T) {
	var gotBody map[string]any
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{"type": "message", "content": []map[string]any{{"type": "output_text", "text": "x"}}},
			},
		})
	}))

	if _, err := client.Respond(context.Background(), ResponsesRequest{Model: "gpt-5.2", Input: "i"}); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	for _, key := range []string{"reasoning", "tools", "instructions", "max_output_tokens"} {
		if _, present := gotBody[key]; present {
			t.Errorf("request contains %s when unset", key)
		}
	}
}

func TestRespondNoOutputIsRetryable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"output": []any{}})
	}))

	_, err := client.Respond(context.Background(), ResponsesRequest{Model: "gpt-5.2", Input: "i"})
	if !errors.Is(err, ErrEmptyResponse) || !IsRetryable(err) {
		t.Errorf("error = %v, want retryable ErrEmptyResponse", err)
	}
}

// ─── Image generation ───────────────────────────────────────────────────────

func TestGenerateImageDecodesPayload(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	var gotBody map[string]any
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
			"usage": map[string]any{"input_tokens": 50, "output_tokens": 1000, "total_tokens": 1050},
		})
	}))

	got, err := client.GenerateImage(context.Background(), ImageRequest{
		Model:   "gpt-image-1.5",
		Prompt:  "harbour at dusk",
		Size:    "1536x1024",
		Quality: "high",
	})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if string(got.Data) != string(png) {
		t.Errorf("decoded data = %v", got.Data)
	}
	if gotBody["output_format"] != "png" {
		t.Errorf("gpt-image request output_format = %v", gotBody["output_format"])
	}
	if _, present := gotBody["response_format"]; present {
		t.Error("gpt-image request carries response_format")
	}
}

func TestGenerateImageLegacyModelUsesResponseFormat(t *testing.T) {
	var gotBody map[string]any
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("img"))}},
		})
	}))

	if _, err := client.GenerateImage(context.Background(), ImageRequest{Model: "dall-e-3", Prompt: "p"}); err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if gotBody["response_format"] != "b64_json" {
		t.Errorf("legacy request response_format = %v", gotBody["response_format"])
	}
	if _, present := gotBody["output_format"]; present {
		t.Error("legacy request carries output_format")
	}
}

func TestGenerateImageNoDataIsRetryable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))

	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "gpt-image-1.5", Prompt: "p"})
	if !errors.Is(err, ErrEmptyResponse) || !IsRetryable(err) {
		t.Errorf("error = %v, want retryable ErrEmptyResponse", err)
	}
}

func TestGenerateImageBadBase64IsRetryable(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": "!!not base64!!"}},
		})
	}))

	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "gpt-image-1.5", Prompt: "p"})
	if !IsRetryable(err) {
		t.Errorf("bad base64 not retryable: %v", err)
	}
}
