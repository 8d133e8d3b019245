package template

import (
	"errors"
	"testing"
)

// testSnapshot builds the fixture snapshot used across the tests.
func testSnapshot() Snapshot {
	return Snapshot{
		"lock.front": {
			ID:    "lock.front",
			State: "locked",
			Attributes: map[string]any{
				"friendly_name": "Front Door",
				"battery":       87,
			},
		},
		"sensor.temp": {
			ID:    "sensor.temp",
			State: "21.5",
			Attributes: map[string]any{
				"unit_of_measurement": "°C",
			},
		},
		"sensor.broken": {
			ID:         "sensor.broken",
			State:      "unavailable",
			Attributes: map[string]any{},
		},
	}
}

// ─── Function surface ───────────────────────────────────────────────────────

func TestEvaluateStates(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"known entity", "{{ states('lock.front') }}", "locked"},
		{"missing entity", "{{ states('light.nope') }}", "unknown"},
		{"state attr", "{{ state_attr('lock.front', 'friendly_name') }}", "Front Door"},
		{"missing attr", "{{ state_attr('lock.front', 'nope') }}", "None"},
		{"attr of missing entity", "{{ state_attr('light.nope', 'x') }}", "None"},
		{"is_state true", "{{ is_state('lock.front', 'locked') }}", "True"},
		{"is_state false", "{{ is_state('lock.front', 'unlocked') }}", "False"},
		{"is_state missing entity", "{{ is_state('light.nope', 'on') }}", "False"},
		{"literal text around span", "door is {{ states('lock.front') }}!", "door is locked!"},
		{"empty body", "{{ }}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.source, snap)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.source, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestEvaluateLockState(t *testing.T) {
	got, err := Evaluate("{{ states('lock.front') }}", testSnapshot())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != "locked" {
		t.Errorf("Evaluate() = %q, want locked", got)
	}
}

// ─── Dotted access ──────────────────────────────────────────────────────────

func TestEvaluateDottedAccess(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		source string
		want   string
	}{
		{"{{ states.lock.front.state }}", "locked"},
		{"{{ states.sensor.temp.state }}", "21.5"},
		{"{{ states.lock.front.attributes.friendly_name }}", "Front Door"},
		{"{{ states.light.nope.state }}", "unknown"},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.source, snap)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", tt.source, err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

// TestDottedEquivalentToFunctional locks in that both access forms resolve
// through the same lookups.
func TestDottedEquivalentToFunctional(t *testing.T) {
	snap := testSnapshot()
	pairs := [][2]string{
		{"{{ states.lock.front.state }}", "{{ states('lock.front') }}"},
		{"{{ states.sensor.temp.attributes.unit_of_measurement }}", "{{ state_attr('sensor.temp', 'unit_of_measurement') }}"},
		{"{{ states.light.nope.state }}", "{{ states('light.nope') }}"},
	}

	for _, pair := range pairs {
		a, errA := Evaluate(pair[0], snap)
		b, errB := Evaluate(pair[1], snap)
		if errA != nil || errB != nil {
			t.Fatalf("Evaluate errors: %v, %v", errA, errB)
		}
		if a != b {
			t.Errorf("%q = %q but %q = %q", pair[0], a, pair[1], b)
		}
	}
}

// ─── is_state equivalence ───────────────────────────────────────────────────

// TestIsStateEquivalence verifies is_state(id, x) == (states(id) == x) for
// every entity in the snapshot and a missing one, across several values.
func TestIsStateEquivalence(t *testing.T) {
	snap := testSnapshot()
	ids := []string{"lock.front", "sensor.temp", "sensor.broken", "light.nope"}
	values := []string{"locked", "21.5", "unavailable", "on", ""}

	for _, id := range ids {
		for _, v := range values {
			direct, err := Evaluate("{{ is_state('"+id+"', '"+v+"') }}", snap)
			if err != nil {
				t.Fatalf("is_state eval error: %v", err)
			}
			viaEq, err := Evaluate("{{ states('"+id+"') == '"+v+"' }}", snap)
			if err != nil {
				t.Fatalf("equality eval error: %v", err)
			}
			if direct != viaEq {
				t.Errorf("is_state(%q,%q) = %s but states == gave %s", id, v, direct, viaEq)
			}
		}
	}
}

// ─── Numeric filters ────────────────────────────────────────────────────────

func TestNumericFiltersNeverFail(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"int of numeric state", "{{ states('sensor.temp') | int(0) }}", "21"},
		{"int of non-numeric state", "{{ states('sensor.broken') | int(-1) }}", "-1"},
		{"int of missing entity", "{{ states('light.nope') | int(0) }}", "0"},
		{"int without default", "{{ states('sensor.broken') | int }}", "0"},
		{"float of numeric state", "{{ states('sensor.temp') | float(0) }}", "21.5"},
		{"float of non-numeric", "{{ states('sensor.broken') | float(99.5) }}", "99.5"},
		{"int as function", "{{ int('42', 0) }}", "42"},
		{"float as function", "{{ float('oops', 3.5) }}", "3.5"},
		{"int of attribute", "{{ state_attr('lock.front', 'battery') | int(0) }}", "87"},
		{"int of none attribute", "{{ state_attr('lock.front', 'nope') | int(5) }}", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.source, snap)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.source, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

// ─── Failure modes ──────────────────────────────────────────────────────────

func TestEvaluateFailures(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"unknown function", "{{ now() }}", ErrUnknownFunction},
		{"unknown filter", "{{ states('lock.front') | upper }}", ErrUnknownFilter},
		{"statement block", "{% if true %}x{% endif %}", ErrUnsupported},
		{"unterminated expression", "{{ states('lock.front')", ErrMalformed},
		{"bare identifier", "{{ banana }}", ErrMalformed},
		{"wrong arg count", "{{ states() }}", ErrBadArguments},
		{"dotted non-states root", "{{ foo.bar.baz.state }}", ErrMalformed},
		{"unterminated string", "{{ states('lock.front) }}", ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.source, snap)
			if err == nil {
				t.Fatalf("Evaluate(%q) = nil error", tt.source)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Evaluate(%q) error = %v, want %v", tt.source, err, tt.want)
			}
			var rerr *RenderError
			if !errors.As(err, &rerr) {
				t.Fatalf("error is not a *RenderError: %v", err)
			}
			if rerr.Expr != tt.source {
				t.Errorf("RenderError.Expr = %q, want %q", rerr.Expr, tt.source)
			}
		})
	}
}

// ─── Purity ─────────────────────────────────────────────────────────────────

func TestEvaluateDeterministicAndPure(t *testing.T) {
	snap := testSnapshot()
	source := "{{ state_attr('lock.front', 'battery') | int(0) }}"

	first, err := Evaluate(source, snap)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Evaluate(source, snap)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if again != first {
			t.Fatalf("Evaluate() not deterministic: %q then %q", first, again)
		}
	}

	// The snapshot must be untouched.
	if snap["lock.front"].Attributes["battery"] != 87 {
		t.Error("Evaluate() mutated the snapshot")
	}
	if len(snap) != 3 {
		t.Errorf("Evaluate() changed snapshot size: %d", len(snap))
	}
}

func TestEvaluateComparisons(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		source string
		want   string
	}{
		{"{{ states('lock.front') == 'locked' }}", "True"},
		{"{{ states('lock.front') != 'locked' }}", "False"},
		{"{{ state_attr('lock.front', 'battery') == 87 }}", "True"},
		{"{{ 1 == 1.0 }}", "True"},
		{"{{ 'a' == 'b' }}", "False"},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.source, snap)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", tt.source, err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
