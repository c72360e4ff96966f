// Package engine implements the clinic's structured intake workflow:
// declarative field schemas, an immutable form state store, a validation-gated
// step sequencer, PHQ-2 scoring, capture-slot media acquisition, and payload
// assembly for submission. The same engine drives the CHW encounter wizard and
// every required patient form; each surface only supplies its own FormDef.
package engine

// FieldKind is the expected shape of a field's value.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindBool
	KindEnum
	KindMultiSelect
	KindDate
	KindFile
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindMultiSelect:
		return "multi_select"
	case KindDate:
		return "date"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// MarshalJSON renders the kind as its string name so form definitions are
// directly consumable by the UI shell.
func (k FieldKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// DateLayout is the wire format for KindDate values.
const DateLayout = "2006-01-02"

// Condition is a declarative visibility rule evaluated against the current
// form state. Keeping it as data (rather than an opaque closure) lets the
// same rule drive validation here and rendering in the UI shell.
type Condition struct {
	Path   string `json:"path"`
	Equals any    `json:"equals"`
}

// Holds reports whether the condition is satisfied by the given state.
// An absent value never satisfies a condition.
func (c *Condition) Holds(s FormState) bool {
	v, ok := s.Get(c.Path)
	if !ok {
		return false
	}
	return v == c.Equals
}

// FieldSchema declares one field of a form step. Schemas are defined once per
// form and never mutated at runtime.
type FieldSchema struct {
	Key       string     `json:"key"`
	Kind      FieldKind  `json:"kind"`
	Required  bool       `json:"required"`
	Options   []string   `json:"options,omitempty"`
	VisibleIf *Condition `json:"visible_if,omitempty"`
}

// Visible reports whether the field applies under the current state. A field
// without a condition is always visible.
func (f FieldSchema) Visible(s FormState) bool {
	if f.VisibleIf == nil {
		return true
	}
	return f.VisibleIf.Holds(s)
}

// Step is one page of the wizard.
type Step struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Fields []FieldSchema `json:"fields"`
}

// FormDef is the full declarative definition of one intake form.
type FormDef struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// Field returns the schema entry for a dotted path, searching every step.
func (d *FormDef) Field(path string) (FieldSchema, bool) {
	for _, st := range d.Steps {
		for _, f := range st.Fields {
			if f.Key == path {
				return f, true
			}
		}
	}
	return FieldSchema{}, false
}

// HasPath reports whether any step declares the given field path.
func (d *FormDef) HasPath(path string) bool {
	_, ok := d.Field(path)
	return ok
}

// FileFields returns the keys of every file-kind field in declaration order.
func (d *FormDef) FileFields() []string {
	var keys []string
	for _, st := range d.Steps {
		for _, f := range st.Fields {
			if f.Kind == KindFile {
				keys = append(keys, f.Key)
			}
		}
	}
	return keys
}
