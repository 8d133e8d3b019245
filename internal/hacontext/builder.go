package hacontext

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nerrad567/hud-informer/internal/reference"
	"github.com/nerrad567/hud-informer/internal/template"
)

// StateUnavailable is the placeholder state for entities the state source
// could not produce. Missing entities degrade, they never abort a build.
const StateUnavailable = "unavailable"

// StateSource supplies entity states for a set of ids. Implementations are
// expected to tolerate unknown ids by omitting them from the snapshot.
type StateSource interface {
	States(ctx context.Context, ids []string) (template.Snapshot, error)
}

// Logger is the minimal logging surface the builder needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Entry is one resolved reference, in configuration order.
type Entry struct {
	// Key is the reference's display key; unique within a Resolved.
	Key string

	// Kind mirrors the originating reference kind.
	Kind reference.Kind

	// EntityID, State, and Attributes are set for entity entries.
	EntityID   string
	State      string
	Attributes map[string]any

	// Rendered is the evaluated template text for template entries.
	Rendered string
}

// Resolved is the ordered result of resolving a reference list against a
// state snapshot.
type Resolved struct {
	Entries []Entry
}

// Builder resolves parsed references into context the generation pipeline
// can hand to a model.
type Builder struct {
	source StateSource
	logger Logger
}

// NewBuilder constructs a Builder over a state source.
//
// Parameters:
//   - source: Entity state supplier (typically the supervisor client)
//   - logger: Destination for degradation warnings; nil for none
//
// Returns:
//   - *Builder: Ready-to-use builder
//   - error: ErrNilSource when source is nil
func NewBuilder(source StateSource, logger Logger) (*Builder, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Builder{source: source, logger: logger}, nil
}

// Template sources quote entity ids in function calls and spell them as
// states.domain.object in dotted access; both shapes are gathered so one
// snapshot fetch covers every entity a template can touch.
var (
	quotedIDPattern = regexp.MustCompile(`['"]([a-z_][a-z0-9_]*\.[a-z0-9_]+)['"]`)
	dottedIDPattern = regexp.MustCompile(`states\.([a-z_][a-z0-9_]*)\.([a-z0-9_]+)`)
)

// Build resolves references in order against a single state snapshot.
//
// Each unique entity id is looked up exactly once. Entities the source does
// not return resolve to the "unavailable" placeholder with empty attributes.
// Template evaluation failures resolve to an empty rendered string; both
// degradations are logged and neither aborts the build.
//
// Parameters:
//   - ctx: Cancels the state lookup
//   - refs: Parsed references, in configuration order
//
// Returns:
//   - *Resolved: Ordered entries, one per reference
//   - error: ErrNoReferences, ErrDuplicateKey, or a state source failure
func (b *Builder) Build(ctx context.Context, refs []reference.Reference) (*Resolved, error) {
	if len(refs) == 0 {
		return nil, ErrNoReferences
	}

	ids := collectEntityIDs(refs)
	snap, err := b.source.States(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching entity states: %w", err)
	}

	resolved := &Resolved{Entries: make([]Entry, 0, len(refs))}
	seen := make(map[string]struct{}, len(refs))

	for _, ref := range refs {
		key := ref.DisplayKey
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}

		switch ref.Kind {
		case reference.KindTemplate:
			rendered, err := template.Evaluate(ref.DisplayKey, snap)
			if err != nil {
				b.logger.Warn("template evaluation failed, using empty render",
					"template", ref.Source, "error", err)
				rendered = ""
			}
			resolved.Entries = append(resolved.Entries, Entry{
				Key:      key,
				Kind:     reference.KindTemplate,
				Rendered: rendered,
			})

		default:
			entry := Entry{
				Key:        key,
				Kind:       reference.KindEntity,
				EntityID:   ref.EntityID,
				State:      StateUnavailable,
				Attributes: map[string]any{},
			}
			if e, present := snap.Get(ref.EntityID); present {
				entry.State = e.State
				if e.Attributes != nil {
					entry.Attributes = e.Attributes
				}
			} else {
				b.logger.Warn("entity missing from snapshot, using placeholder",
					"entity_id", ref.EntityID, "state", StateUnavailable)
			}
			resolved.Entries = append(resolved.Entries, entry)
		}
	}

	b.logger.Debug("resolved references", "count", len(resolved.Entries), "entities", len(ids))
	return resolved, nil
}

// collectEntityIDs gathers the unique entity ids a reference list touches:
// plain entity references plus every id mentioned inside template sources.
// Order follows first appearance.
func collectEntityIDs(refs []reference.Reference) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, ref := range refs {
		switch ref.Kind {
		case reference.KindTemplate:
			for _, m := range quotedIDPattern.FindAllStringSubmatch(ref.Source, -1) {
				add(m[1])
			}
			for _, m := range dottedIDPattern.FindAllStringSubmatch(ref.Source, -1) {
				add(m[1] + "." + m[2])
			}
		default:
			if reference.IsEntityID(ref.EntityID) {
				add(ref.EntityID)
			}
		}
	}
	return ids
}
