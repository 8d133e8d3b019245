// Package openai is a minimal JSON client for OpenAI-compatible APIs,
// covering the three endpoint families the generation pipeline uses:
// chat completions, the responses endpoint (reasoning effort, web_search
// tool with an approximate user location), and image generation.
//
// Every failure comes back classified: ErrRetryable (server errors,
// timeouts, rate limits, malformed or empty bodies) marks a call the
// pipeline may answer with its single fallback; ErrFatal (authentication
// and invalid-request rejections) does not. The base URL is configurable
// so tests and self-hosted endpoints can stand in for the real API.
package openai
