package hacontext

import (
	"encoding/json"
	"strings"

	"github.com/nerrad567/hud-informer/internal/reference"
)

// renderedTemplateKey is the flattened-form key that carries the joined
// template renders.
const renderedTemplateKey = "rendered_template"

// templateJoinSeparator joins individual template renders in the flattened
// form, in first-appearance order.
const templateJoinSeparator = "\n"

// EntityRecord is the flattened form of one plain entity entry.
type EntityRecord struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Transformed is the model-facing flattening of a Resolved: plain entities
// keyed by entity id, and all template renders collapsed into a single
// rendered_template string.
type Transformed struct {
	RenderedTemplate string
	Entities         map[string]EntityRecord
}

// MarshalJSON flattens entities and the joined template render into a single
// JSON object, which is the shape the prompt context embeds.
func (t Transformed) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Entities)+1)
	for id, rec := range t.Entities {
		out[id] = rec
	}
	if t.RenderedTemplate != "" {
		out[renderedTemplateKey] = t.RenderedTemplate
	}
	return json.Marshal(out)
}

// Transform flattens a Resolved into the model-facing form.
//
// Template entries join into RenderedTemplate in first-appearance order;
// entity entries become {state, attributes} records keyed by entity id.
// The input is not modified.
//
// Parameters:
//   - resolved: Ordered build output
//
// Returns:
//   - Transformed: Flattened context
func Transform(resolved *Resolved) Transformed {
	out := Transformed{Entities: make(map[string]EntityRecord)}
	var renders []string

	for _, entry := range resolved.Entries {
		if entry.Kind == reference.KindTemplate {
			renders = append(renders, entry.Rendered)
			continue
		}
		out.Entities[entry.EntityID] = EntityRecord{
			State:      entry.State,
			Attributes: entry.Attributes,
		}
	}

	out.RenderedTemplate = strings.Join(renders, templateJoinSeparator)
	return out
}
