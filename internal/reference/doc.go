// Package reference parses the entity configuration string into references.
//
// The add-on's entity list option mixes plain entity identifiers
// (sensor.outdoor_temp) with template expressions ({{ states('lock.front') }}),
// separated by commas, newlines, or whitespace depending on how the option
// was written in YAML. The tokenizer here is a small finite-state parser:
//
//	┌──────────┐  {{ / {%   ┌────────────────────┐
//	│  Plain   │───────────▶│  InTemplate(depth)  │
//	│          │◀───────────│  {{/{%  depth++     │
//	└──────────┘  depth==0  │  }}/%}  depth--     │
//	     │                  └────────────────────┘
//	 delimiter
//	     ▼
//	emit token
//
// Delimiters split tokens only in the Plain state; inside a template span
// they are captured literally, so templates may contain embedded whitespace,
// commas, and newlines. Plain text adjacent to a template that does not look
// like an entity id is merged onto the template's display key as a label,
// producing readable context keys like "Battery: {{ ... }}".
//
// Unbalanced input never aborts: the remainder degrades to a single plain
// token and Tokenize additionally returns ErrUnbalanced so callers can log it.
package reference
