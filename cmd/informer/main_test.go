package main

import (
	"testing"

	"github.com/nerrad567/hud-informer/internal/infrastructure/logging"
	"github.com/nerrad567/hud-informer/internal/reference"
)

// ─── Command Parsing ─────────────────────────────────────────────────────────

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"string form", `"generate"`, "generate", false},
		{"object form", `{"action": "generate"}`, "generate", false},
		{"object with extras", `{"action": "generate", "source": "automation"}`, "generate", false},
		{"unknown action passes through", `"reload"`, "reload", false},
		{"empty string", `""`, "", true},
		{"object without action", `{"source": "automation"}`, "", true},
		{"not json", `generate`, "", true},
		{"empty payload", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCommand(%q) error = nil, want error", tt.payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCommand(%q) error = %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("parseCommand(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

// ─── Reference Parsing ───────────────────────────────────────────────────────

func TestParseReferencesKeepsUsableRefsOnUnterminatedTemplate(t *testing.T) {
	refs, err := parseReferences("sensor.temp, {{ states('lock.front'", "auto", logging.Default())
	if err != nil {
		t.Fatalf("parseReferences() error = %v, want degraded success", err)
	}
	if len(refs) != 2 {
		t.Fatalf("parseReferences() = %d refs, want 2: %+v", len(refs), refs)
	}
	if refs[0].Kind != reference.KindEntity || refs[0].EntityID != "sensor.temp" {
		t.Errorf("refs[0] = %+v, want entity sensor.temp", refs[0])
	}
}

func TestParseReferencesBalancedInput(t *testing.T) {
	refs, err := parseReferences("sensor.temp, {{ states('lock.front') }}", "comma", logging.Default())
	if err != nil {
		t.Fatalf("parseReferences() error = %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("parseReferences() = %d refs, want 2", len(refs))
	}
}

// ─── Config Mapping ──────────────────────────────────────────────────────────

func TestParseListStyle(t *testing.T) {
	tests := []struct {
		raw  string
		want reference.ListStyle
	}{
		{"comma", reference.StyleComma},
		{"newline", reference.StyleNewline},
		{"whitespace", reference.StyleWhitespace},
		{"auto", reference.StyleAuto},
		{"", reference.StyleAuto},
		{"  Comma  ", reference.StyleComma},
		{"nonsense", reference.StyleAuto},
	}

	for _, tt := range tests {
		if got := parseListStyle(tt.raw); got != tt.want {
			t.Errorf("parseListStyle(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
