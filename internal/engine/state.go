package engine

// FormState maps dotted field paths to collected values. Values are strings,
// bools, numbers, []string (multi-select) or *MediaArtifact (file fields).
// FormState is treated as immutable: mutation goes through With, which leaves
// the receiver untouched.
type FormState map[string]any

// Get returns the value at a path, if one has been collected.
func (s FormState) Get(path string) (any, bool) {
	v, ok := s[path]
	return v, ok
}

// With returns a copy of the state with a single path updated. Every other
// path's value is structurally preserved.
func (s FormState) With(path string, v any) FormState {
	next := make(FormState, len(s)+1)
	for k, val := range s {
		next[k] = val
	}
	next[path] = v
	return next
}

// Store holds the collected answers for one workflow instance, bound to the
// form definition that declares which paths are legal. A Store is never
// shared between concurrent workflow instances.
type Store struct {
	def   *FormDef
	state FormState
}

// NewStore creates an empty store for the given form definition.
func NewStore(def *FormDef) *Store {
	return &Store{def: def, state: FormState{}}
}

// Get returns the value at a path.
func (s *Store) Get(path string) (any, bool) {
	return s.state.Get(path)
}

// Set records a value at a path. Paths absent from the active schema are
// rejected with a SchemaViolation; the stored state is not touched.
func (s *Store) Set(path string, v any) error {
	if !s.def.HasPath(path) {
		return &SchemaViolation{Path: path}
	}
	s.state = s.state.With(path, v)
	return nil
}

// State returns the current state. The returned map must be treated as
// read-only; it is the same snapshot validation and assembly run against.
func (s *Store) State() FormState {
	return s.state
}

// Reset replaces the state wholesale with the schema-default empty state.
func (s *Store) Reset() {
	s.state = FormState{}
}
