// Package logging provides structured logging for HUD Informer.
//
// It wraps the standard library's log/slog with service defaults (service
// name and version attributes) and config-driven level, format, and output
// selection. Components receive a *Logger (or a narrower consumer interface)
// and tag their records with a component attribute via With().
package logging
