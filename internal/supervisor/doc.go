// Package supervisor is a thin client for the Home Assistant core API as
// proxied by the Supervisor (http://supervisor/core/api).
//
// The informer uses exactly two surfaces: GET /states, filtered to the
// entities a run needs, and POST /events/{type} to publish run outcomes on
// the Home Assistant event bus. Authentication is the Supervisor-issued
// bearer token. All requests carry a bounded timeout; callers decide how a
// failure degrades (the context builder substitutes placeholders, the run
// loop logs and continues).
package supervisor
