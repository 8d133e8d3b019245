// Package template evaluates template-expression spans against entity state.
//
// The surface is a closed set, dispatched through a lookup table rather than
// dynamic resolution, so behaviour is enumerable and exhaustively testable:
//
//   - states('domain.object_id')            → state string or "unknown"
//   - state_attr('domain.object_id', 'a')   → attribute value or None
//   - is_state('domain.object_id', 'v')     → boolean state equality
//   - value | int(default)                  → tolerant integer coercion
//   - value | float(default)                → tolerant float coercion
//   - states.domain.object_id.state         → call-free state access
//   - states.domain.object_id.attributes.a  → call-free attribute access
//   - ==, != between any two values
//
// The numeric filters never fail a render: a non-numeric input degrades to
// the supplied default. Everything else that goes wrong — unknown function,
// malformed expression, statement blocks — surfaces as a *RenderError; the
// context builder maps that to an empty string plus a logged warning so one
// bad template never blocks an image from being generated.
//
// Evaluation consumes only the Snapshot supplied at render time: no I/O, no
// clock, no mutation of the snapshot.
package template
