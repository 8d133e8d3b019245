package hacontext

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/hud-informer/internal/reference"
	"github.com/nerrad567/hud-informer/internal/template"
)

// mockSource serves a fixed snapshot and records every lookup.
type mockSource struct {
	mu    sync.Mutex
	snap  template.Snapshot
	err   error
	calls [][]string
}

func (m *mockSource) States(_ context.Context, ids []string) (template.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ids)
	if m.err != nil {
		return nil, m.err
	}
	out := make(template.Snapshot, len(ids))
	for _, id := range ids {
		if e, ok := m.snap[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func fixtureSource() *mockSource {
	return &mockSource{snap: template.Snapshot{
		"sensor.temp": {
			ID:    "sensor.temp",
			State: "21.5",
			Attributes: map[string]any{
				"unit_of_measurement": "°C",
			},
		},
		"lock.front": {
			ID:         "lock.front",
			State:      "locked",
			Attributes: map[string]any{"friendly_name": "Front Door"},
		},
	}}
}

func mustTokenize(t *testing.T, raw string) []reference.Reference {
	t.Helper()
	refs, err := reference.Tokenize(raw, reference.StyleAuto)
	if err != nil {
		t.Fatalf("Tokenize(%q) error = %v", raw, err)
	}
	return refs
}

// ─── Build ──────────────────────────────────────────────────────────────────

func TestBuildResolvesMixedReferences(t *testing.T) {
	source := fixtureSource()
	builder, err := NewBuilder(source, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	refs := mustTokenize(t, "sensor.temp, {{ states('lock.front') }}")
	resolved, err := builder.Build(context.Background(), refs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(resolved.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(resolved.Entries))
	}

	first := resolved.Entries[0]
	if first.Kind != reference.KindEntity || first.EntityID != "sensor.temp" {
		t.Errorf("entry 0 = %+v, want entity sensor.temp", first)
	}
	if first.State != "21.5" {
		t.Errorf("entry 0 state = %q, want 21.5", first.State)
	}

	second := resolved.Entries[1]
	if second.Kind != reference.KindTemplate {
		t.Errorf("entry 1 kind = %q, want template", second.Kind)
	}
	if second.Rendered != "locked" {
		t.Errorf("entry 1 rendered = %q, want locked", second.Rendered)
	}
}

func TestBuildFetchesEachEntityOnce(t *testing.T) {
	source := fixtureSource()
	builder, _ := NewBuilder(source, nil)

	// sensor.temp appears plainly and inside a template; lock.front twice
	// inside templates. Each id must be requested exactly once.
	refs := []reference.Reference{
		{Kind: reference.KindEntity, EntityID: "sensor.temp", DisplayKey: "sensor.temp"},
		{Kind: reference.KindTemplate, Source: "{{ states('sensor.temp') }}", DisplayKey: "{{ states('sensor.temp') }}"},
		{Kind: reference.KindTemplate, Source: "{{ is_state('lock.front', 'locked') }}", DisplayKey: "{{ is_state('lock.front', 'locked') }}"},
		{Kind: reference.KindTemplate, Source: "{{ states.lock.front.state }}", DisplayKey: "lock: {{ states.lock.front.state }}"},
	}

	if _, err := builder.Build(context.Background(), refs); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(source.calls) != 1 {
		t.Fatalf("got %d state fetches, want 1", len(source.calls))
	}
	got := source.calls[0]
	want := []string{"sensor.temp", "lock.front"}
	if len(got) != len(want) {
		t.Fatalf("fetched ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fetched ids = %v, want %v", got, want)
			break
		}
	}
}

func TestBuildMissingEntityDegradesToPlaceholder(t *testing.T) {
	builder, _ := NewBuilder(fixtureSource(), nil)

	refs := mustTokenize(t, "sensor.temp, light.nope")
	resolved, err := builder.Build(context.Background(), refs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	missing := resolved.Entries[1]
	if missing.State != StateUnavailable {
		t.Errorf("missing entity state = %q, want %q", missing.State, StateUnavailable)
	}
	if missing.Attributes == nil || len(missing.Attributes) != 0 {
		t.Errorf("missing entity attributes = %v, want empty map", missing.Attributes)
	}
}

func TestBuildTemplateFailureDegradesToEmpty(t *testing.T) {
	builder, _ := NewBuilder(fixtureSource(), nil)

	refs := []reference.Reference{
		{Kind: reference.KindTemplate, Source: "{{ now() }}", DisplayKey: "{{ now() }}"},
	}
	resolved, err := builder.Build(context.Background(), refs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if resolved.Entries[0].Rendered != "" {
		t.Errorf("failed template rendered = %q, want empty", resolved.Entries[0].Rendered)
	}
}

func TestBuildLabeledTemplateRendersLabel(t *testing.T) {
	builder, _ := NewBuilder(fixtureSource(), nil)

	refs, err := reference.Tokenize("Front door: {{ states('lock.front') }}", reference.StyleComma)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	resolved, err := builder.Build(context.Background(), refs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(resolved.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(resolved.Entries))
	}
	if got := resolved.Entries[0].Rendered; got != "Front door: locked" {
		t.Errorf("rendered = %q, want %q", got, "Front door: locked")
	}
}

func TestBuildDuplicateKeyFails(t *testing.T) {
	builder, _ := NewBuilder(fixtureSource(), nil)

	refs := []reference.Reference{
		{Kind: reference.KindEntity, EntityID: "sensor.temp", DisplayKey: "sensor.temp"},
		{Kind: reference.KindEntity, EntityID: "sensor.temp", DisplayKey: "sensor.temp"},
	}
	if _, err := builder.Build(context.Background(), refs); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Build() error = %v, want ErrDuplicateKey", err)
	}
}

func TestBuildEmptyReferencesFails(t *testing.T) {
	builder, _ := NewBuilder(fixtureSource(), nil)
	if _, err := builder.Build(context.Background(), nil); !errors.Is(err, ErrNoReferences) {
		t.Errorf("Build() error = %v, want ErrNoReferences", err)
	}
}

func TestBuildSourceFailurePropagates(t *testing.T) {
	boom := errors.New("supervisor: connection refused")
	builder, _ := NewBuilder(&mockSource{err: boom}, nil)

	refs := mustTokenize(t, "sensor.temp")
	if _, err := builder.Build(context.Background(), refs); !errors.Is(err, boom) {
		t.Errorf("Build() error = %v, want wrapped %v", err, boom)
	}
}

func TestNewBuilderNilSource(t *testing.T) {
	if _, err := NewBuilder(nil, nil); !errors.Is(err, ErrNilSource) {
		t.Errorf("NewBuilder(nil) error = %v, want ErrNilSource", err)
	}
}

func TestBuildDoesNotMutateSnapshot(t *testing.T) {
	source := fixtureSource()
	builder, _ := NewBuilder(source, nil)

	refs := mustTokenize(t, "sensor.temp, {{ states('lock.front') }}")
	if _, err := builder.Build(context.Background(), refs); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if source.snap["sensor.temp"].State != "21.5" {
		t.Error("Build() mutated the source snapshot state")
	}
	if source.snap["lock.front"].Attributes["friendly_name"] != "Front Door" {
		t.Error("Build() mutated the source snapshot attributes")
	}
}

// ─── Transform ──────────────────────────────────────────────────────────────

func TestTransformFlattens(t *testing.T) {
	builder, _ := NewBuilder(fixtureSource(), nil)

	refs := mustTokenize(t, "sensor.temp, {{ states('lock.front') }}, Battery: {{ state_attr('lock.front', 'friendly_name') }}")
	resolved, err := builder.Build(context.Background(), refs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	flat := Transform(resolved)

	rec, ok := flat.Entities["sensor.temp"]
	if !ok {
		t.Fatal("sensor.temp missing from flattened entities")
	}
	if rec.State != "21.5" {
		t.Errorf("sensor.temp state = %q, want 21.5", rec.State)
	}

	lines := strings.Split(flat.RenderedTemplate, "\n")
	if len(lines) != 2 {
		t.Fatalf("rendered_template has %d lines, want 2: %q", len(lines), flat.RenderedTemplate)
	}
	if lines[0] != "locked" {
		t.Errorf("line 0 = %q, want locked", lines[0])
	}
	if lines[1] != "Battery: Front Door" {
		t.Errorf("line 1 = %q, want %q", lines[1], "Battery: Front Door")
	}
}

func TestTransformJSONShape(t *testing.T) {
	flat := Transformed{
		RenderedTemplate: "locked",
		Entities: map[string]EntityRecord{
			"sensor.temp": {State: "21.5", Attributes: map[string]any{"unit_of_measurement": "°C"}},
		},
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["rendered_template"] != "locked" {
		t.Errorf("rendered_template = %v, want locked", decoded["rendered_template"])
	}
	entity, ok := decoded["sensor.temp"].(map[string]any)
	if !ok {
		t.Fatalf("sensor.temp = %T, want object", decoded["sensor.temp"])
	}
	if entity["state"] != "21.5" {
		t.Errorf("sensor.temp state = %v, want 21.5", entity["state"])
	}
}

func TestTransformOmitsEmptyRender(t *testing.T) {
	flat := Transform(&Resolved{Entries: []Entry{
		{Key: "sensor.temp", Kind: reference.KindEntity, EntityID: "sensor.temp", State: "21.5", Attributes: map[string]any{}},
	}})

	raw, err := json.Marshal(flat)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "rendered_template") {
		t.Errorf("JSON contains rendered_template for template-free context: %s", raw)
	}
}

func TestTransformDoesNotMutateResolved(t *testing.T) {
	resolved := &Resolved{Entries: []Entry{
		{Key: "sensor.temp", Kind: reference.KindEntity, EntityID: "sensor.temp", State: "21.5", Attributes: map[string]any{"a": 1}},
		{Key: "{{ x }}", Kind: reference.KindTemplate, Rendered: "x"},
	}}

	_ = Transform(resolved)

	if len(resolved.Entries) != 2 {
		t.Fatalf("Transform() changed entry count: %d", len(resolved.Entries))
	}
	if resolved.Entries[0].State != "21.5" || resolved.Entries[1].Rendered != "x" {
		t.Error("Transform() mutated resolved entries")
	}
}
