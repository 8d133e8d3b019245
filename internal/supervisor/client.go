package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/hud-informer/internal/template"
)

// Logger is the minimal logging surface the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client talks to the Home Assistant core API through the Supervisor proxy.
// It serves two roles: state source for the context builder and event sink
// for run outcomes.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  Logger
}

// New constructs a Supervisor API client.
//
// Parameters:
//   - baseURL: Core API root, typically http://supervisor/core/api
//   - token: Supervisor-issued bearer token
//   - timeout: Per-request deadline
//   - logger: Destination for diagnostics; nil for none
//
// Returns:
//   - *Client: Ready-to-use client
//   - error: ErrNoToken when token is empty
func New(baseURL, token string, timeout time.Duration, logger Logger) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// entityState is the wire shape of one entity in the /states response.
// Fields the informer never reads are left undeclared.
type entityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// States fetches the full state list and filters it to the requested ids.
//
// Ids the API does not know are silently absent from the snapshot; the
// context builder turns absences into placeholders. Transport and decode
// failures are returned to the caller.
//
// Parameters:
//   - ctx: Cancels the request
//   - ids: Entity ids to keep; empty keeps nothing
//
// Returns:
//   - template.Snapshot: Requested entities, keyed by id
//   - error: Transport, status, or decode failure
func (c *Client) States(ctx context.Context, ids []string) (template.Snapshot, error) {
	body, err := c.get(ctx, "/states")
	if err != nil {
		return nil, err
	}

	var all []entityState
	if err := json.Unmarshal(body, &all); err != nil {
		return nil, fmt.Errorf("decoding states response: %w", err)
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	snap := make(template.Snapshot, len(ids))
	for _, e := range all {
		if _, ok := wanted[e.EntityID]; !ok {
			continue
		}
		snap[e.EntityID] = template.EntityState{
			ID:         e.EntityID,
			State:      e.State,
			Attributes: e.Attributes,
		}
	}

	c.logger.Debug("fetched entity states", "requested", len(ids), "found", len(snap))
	return snap, nil
}

// State fetches a single entity.
//
// Parameters:
//   - ctx: Cancels the request
//   - id: Entity id
//
// Returns:
//   - template.EntityState: The entity, zero-valued when not found
//   - bool: Whether the entity exists
//   - error: Transport, status, or decode failure
func (c *Client) State(ctx context.Context, id string) (template.EntityState, bool, error) {
	snap, err := c.States(ctx, []string{id})
	if err != nil {
		return template.EntityState{}, false, err
	}
	e, ok := snap.Get(id)
	return e, ok, nil
}

// FireEvent publishes an event on the Home Assistant event bus.
//
// Parameters:
//   - ctx: Cancels the request
//   - eventType: Bus event type, e.g. hud_informer_complete
//   - payload: JSON-encodable event data
//
// Returns:
//   - error: Transport, encode, or status failure
func (c *Client) FireEvent(ctx context.Context, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/events/"+eventType, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building event request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting event %s: %w", eventType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: POST /events/%s returned %d", ErrUnexpectedStatus, eventType, resp.StatusCode)
	}

	c.logger.Debug("fired event", "type", eventType)
	return nil
}

// get performs an authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}
