// Package hacontext resolves parsed entity references into the state
// context handed to the generation pipeline.
//
// A Builder takes the tokenizer's ordered reference list, fetches one state
// snapshot covering every entity the list touches (plain references and ids
// mentioned inside templates, each looked up once), and produces a Resolved:
// an ordered list of entries where plain entities carry state and attributes
// and templates carry their evaluated text.
//
// Resolution degrades instead of failing: entities the source cannot produce
// get the "unavailable" placeholder state, and template evaluation failures
// render as empty strings. Both are logged. The only construction errors are
// an empty reference list, a duplicate display key, and a state source
// failure.
//
// Transform flattens a Resolved into the model-facing shape: one JSON
// object with {state, attributes} records per entity id and all template
// renders joined into a single rendered_template string.
package hacontext
