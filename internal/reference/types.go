package reference

import "regexp"

// Kind distinguishes the two parsed reference forms.
type Kind string

const (
	// KindEntity is a plain entity identifier (domain.object_id).
	KindEntity Kind = "entity"

	// KindTemplate is a brace-delimited template expression.
	KindTemplate Kind = "template"
)

// Reference is one parsed unit from the entity configuration string.
type Reference struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind Kind `json:"kind"`

	// EntityID is the entity identifier for KindEntity references.
	// For degraded tokens (unbalanced input) it holds the raw remainder
	// and will not match the domain.object_id shape.
	EntityID string `json:"entity_id,omitempty"`

	// Source is the template expression text, delimiters included,
	// exactly as it appeared in the configuration string.
	Source string `json:"source,omitempty"`

	// DisplayKey is the human-readable key for this reference: the
	// original token text, or a composite "Label: {{ ... }}" key when a
	// non-entity label was merged onto a template.
	DisplayKey string `json:"display_key"`
}

// ListStyle selects how plain-mode tokens are delimited.
type ListStyle string

const (
	// StyleAuto detects the delimiter from the input: comma if any
	// comma occurs outside a template, else newline, else whitespace.
	StyleAuto ListStyle = "auto"

	// StyleComma splits plain-mode tokens on commas.
	StyleComma ListStyle = "comma"

	// StyleNewline splits plain-mode tokens on newlines.
	StyleNewline ListStyle = "newline"

	// StyleWhitespace splits plain-mode tokens on any run of whitespace.
	// This matches YAML folded scalars (>-), which convert newlines to
	// spaces before the add-on ever sees the option value.
	StyleWhitespace ListStyle = "whitespace"
)

// entityIDPattern matches the domain.object_id entity identifier shape.
var entityIDPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*\.[a-z0-9_]+$`)

// IsEntityID reports whether s has the domain.object_id shape.
func IsEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}
