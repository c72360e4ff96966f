package engine

import (
	"strconv"
	"time"
)

// StepValid reports whether every required, currently-visible field on the
// step holds a usable value. Visibility is re-evaluated on every call, so a
// field hidden by its condition never counts against validity even when the
// schema marks it required.
func StepValid(step Step, s FormState) bool {
	return len(StepMissing(step, s)) == 0
}

// StepMissing returns the paths of required, visible fields that are empty or
// syntactically invalid, in declaration order.
func StepMissing(step Step, s FormState) []string {
	var missing []string
	for _, f := range step.Fields {
		if !f.Required || !f.Visible(s) {
			continue
		}
		v, ok := s.Get(f.Key)
		if !fieldPopulated(f, v, ok) {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// FormValid is the conjunction of StepValid over all steps.
func FormValid(def *FormDef, s FormState) bool {
	for _, st := range def.Steps {
		if !StepValid(st, s) {
			return false
		}
	}
	return true
}

// FirstIncompleteStep returns the earliest step that fails validation, along
// with its missing paths. ok is false when the whole form is valid.
func FirstIncompleteStep(def *FormDef, s FormState) (Step, []string, bool) {
	for _, st := range def.Steps {
		if missing := StepMissing(st, s); len(missing) > 0 {
			return st, missing, true
		}
	}
	return Step{}, nil, false
}

// fieldPopulated applies the per-kind presence rule. Number and date fields
// additionally require syntactic validity.
func fieldPopulated(f FieldSchema, v any, ok bool) bool {
	if !ok || v == nil {
		return false
	}
	switch f.Kind {
	case KindText, KindEnum:
		str, isStr := v.(string)
		return isStr && str != ""
	case KindNumber:
		switch n := v.(type) {
		case string:
			if n == "" {
				return false
			}
			_, err := strconv.ParseFloat(n, 64)
			return err == nil
		case int, int64, float64:
			return true
		}
		return false
	case KindBool:
		// An explicit answer counts either way; a required boolean is a
		// question that must be answered, not one that must be "yes".
		_, isBool := v.(bool)
		return isBool
	case KindMultiSelect:
		vals, isSlice := v.([]string)
		return isSlice && len(vals) > 0
	case KindDate:
		str, isStr := v.(string)
		if !isStr || str == "" {
			return false
		}
		_, err := time.Parse(DateLayout, str)
		return err == nil
	case KindFile:
		art, isArt := v.(*MediaArtifact)
		return isArt && art != nil && len(art.Payload) > 0
	}
	return false
}
