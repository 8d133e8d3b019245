package reference

import "strings"

// scanMode is the tokenizer's current state.
type scanMode int

const (
	// modePlain scans entity ids and labels, splitting on delimiters.
	modePlain scanMode = iota

	// modeTemplate captures a template span verbatim until the brace
	// depth returns to zero. Delimiters inside the span are literal.
	modeTemplate
)

// Tokenize splits a raw configuration string into an ordered sequence of
// references: plain entity identifiers and template-expression spans.
//
// The scan is a single left-to-right pass over the input maintaining a brace
// depth counter and a mode (plain or template). The two-character sequences
// {{ and {% enter template mode and increment the depth; }} and %} decrement
// it; plain mode resumes only when the depth returns to zero. Delimiters
// terminate plain tokens but are captured literally inside template spans.
//
// Label merging: plain text adjacent to a template span that does not itself
// look like an entity id becomes a label on the template's display key
// ("Battery: {{ ... }}") instead of a separate reference. Text preceding the
// span wins; text following the span (before the next delimiter) merges only
// when the span has no label yet.
//
// Known limitation: a literal {{ or {% inside a string literal within a
// template expression is indistinguishable from a nesting delimiter and will
// desynchronise the depth counter. Callers must escape such sequences in
// their template bodies; the tokenizer does not attempt to track quoting.
//
// Parameters:
//   - raw: The configuration string (entity ids and/or templates)
//   - style: Delimiter style; StyleAuto detects from depth-zero content
//
// Returns:
//   - []Reference: Parsed references in first-appearance order (always
//     usable, even alongside a non-nil error)
//   - error: ErrUnbalanced if the input ended inside a template span (the
//     remainder is degraded to a single plain token), or ErrInvalidStyle
func Tokenize(raw string, style ListStyle) ([]Reference, error) {
	switch style {
	case StyleAuto:
		style = DetectStyle(raw)
	case StyleComma, StyleNewline, StyleWhitespace:
	default:
		return nil, ErrInvalidStyle
	}

	t := &tokenizer{input: raw, style: style, mergeTarget: -1}
	return t.run()
}

// DetectStyle infers the delimiter style from depth-zero plain content:
// comma if any comma occurs outside a template span, else newline, else
// whitespace. Comma style also treats newlines as delimiters, so mixed
// comma/newline lists split correctly either way.
func DetectStyle(raw string) ListStyle {
	depth := 0
	hasComma := false
	hasNewline := false

	i := 0
	for i < len(raw) {
		if two, ok := lookahead(raw, i); ok {
			switch two {
			case "{{", "{%":
				depth++
				i += 2
				continue
			case "}}", "%}":
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			switch raw[i] {
			case ',':
				hasComma = true
			case '\n':
				hasNewline = true
			}
		}
		i++
	}

	switch {
	case hasComma:
		return StyleComma
	case hasNewline:
		return StyleNewline
	default:
		return StyleWhitespace
	}
}

// tokenizer holds the scan state for one Tokenize call.
type tokenizer struct {
	input string
	style ListStyle

	refs []Reference
	buf  strings.Builder

	// mergeTarget indexes the most recent template reference still
	// eligible to absorb a trailing label, or -1.
	mergeTarget int

	// pendingLabel is non-entity plain text seen immediately before a
	// template span, awaiting attachment to its display key.
	pendingLabel string
}

func (t *tokenizer) run() ([]Reference, error) {
	mode := modePlain
	depth := 0
	tmplStart := 0

	i := 0
	for i < len(t.input) {
		switch mode {
		case modePlain:
			if two, ok := lookahead(t.input, i); ok && (two == "{{" || two == "{%") {
				t.beginTemplate()
				mode = modeTemplate
				depth = 1
				tmplStart = i
				i += 2
				continue
			}
			if t.isDelimiter(t.input[i]) {
				t.flushPlain()
				i++
				continue
			}
			t.buf.WriteByte(t.input[i])
			i++

		case modeTemplate:
			if two, ok := lookahead(t.input, i); ok {
				switch two {
				case "{{", "{%":
					depth++
					i += 2
					continue
				case "}}", "%}":
					depth--
					i += 2
					if depth == 0 {
						t.emitTemplate(t.input[tmplStart:i])
						mode = modePlain
					}
					continue
				}
			}
			i++
		}
	}

	if mode == modeTemplate {
		// Unterminated template span: degrade the remainder to a single
		// plain token rather than aborting.
		if t.pendingLabel != "" {
			t.refs = append(t.refs, Reference{
				Kind:       KindEntity,
				EntityID:   t.pendingLabel,
				DisplayKey: t.pendingLabel,
			})
			t.pendingLabel = ""
		}
		remainder := strings.TrimSpace(t.input[tmplStart:])
		if remainder != "" {
			t.refs = append(t.refs, Reference{
				Kind:       KindEntity,
				EntityID:   remainder,
				DisplayKey: remainder,
			})
		}
		return t.refs, ErrUnbalanced
	}

	t.flushPlain()
	return t.refs, nil
}

// beginTemplate disposes of buffered plain text when a template span opens:
// entity-shaped text becomes its own reference, a trailing label merges into
// the previous template, and anything else is held as this span's label.
func (t *tokenizer) beginTemplate() {
	text := strings.TrimSpace(t.buf.String())
	t.buf.Reset()
	if text != "" {
		switch {
		case IsEntityID(text):
			t.refs = append(t.refs, Reference{Kind: KindEntity, EntityID: text, DisplayKey: text})
		case t.mergeTarget >= 0:
			t.mergeInto(t.mergeTarget, text)
		default:
			t.pendingLabel = text
		}
	}
	t.mergeTarget = -1
}

// flushPlain terminates the current plain token at a delimiter (or end of
// input). Non-entity text merges into the preceding template's display key
// when one is eligible; otherwise the text becomes a plain reference.
func (t *tokenizer) flushPlain() {
	text := strings.TrimSpace(t.buf.String())
	t.buf.Reset()
	target := t.mergeTarget
	t.mergeTarget = -1

	if text == "" {
		return
	}
	if target >= 0 && !IsEntityID(text) {
		t.mergeInto(target, text)
		return
	}
	t.refs = append(t.refs, Reference{Kind: KindEntity, EntityID: text, DisplayKey: text})
}

// emitTemplate appends a template reference, attaching any pending label.
func (t *tokenizer) emitTemplate(source string) {
	ref := Reference{Kind: KindTemplate, Source: source, DisplayKey: source}
	if t.pendingLabel != "" {
		ref.DisplayKey = joinLabel(t.pendingLabel, source)
		t.pendingLabel = ""
		t.mergeTarget = -1
	} else {
		t.mergeTarget = len(t.refs)
	}
	t.refs = append(t.refs, ref)
}

// mergeInto rewrites a template reference's display key with a label.
func (t *tokenizer) mergeInto(idx int, label string) {
	t.refs[idx].DisplayKey = joinLabel(label, t.refs[idx].Source)
}

// joinLabel builds a composite display key from a label and template source.
func joinLabel(label, source string) string {
	label = strings.TrimSpace(label)
	if strings.HasSuffix(label, ":") {
		return label + " " + source
	}
	return label + ": " + source
}

// isDelimiter reports whether b terminates a plain-mode token for the
// tokenizer's style.
func (t *tokenizer) isDelimiter(b byte) bool {
	switch t.style {
	case StyleComma:
		return b == ',' || b == '\n'
	case StyleNewline:
		return b == '\n'
	case StyleWhitespace:
		return b == ' ' || b == '\t' || b == '\n' || b == '\r'
	default:
		return false
	}
}

// lookahead returns the two-byte window at i when one exists.
func lookahead(s string, i int) (string, bool) {
	if i+1 >= len(s) {
		return "", false
	}
	return s[i : i+2], true
}
