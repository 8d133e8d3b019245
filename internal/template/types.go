package template

// EntityState is an immutable snapshot of one entity's state.
// It is fetched once per pipeline run and never mutated after creation.
type EntityState struct {
	ID         string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Snapshot is the set of entity states a template is evaluated against,
// keyed by entity id. Evaluation reads it and nothing else: no I/O, no
// clock, no mutation, so a given snapshot and expression always render the
// same string.
type Snapshot map[string]EntityState

// StateUnknown is the sentinel state returned by states() for an entity id
// absent from the snapshot.
const StateUnknown = "unknown"

// Get returns the entity state for id and whether it was present.
func (s Snapshot) Get(id string) (EntityState, bool) {
	e, ok := s[id]
	return e, ok
}
