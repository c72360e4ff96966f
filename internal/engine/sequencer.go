package engine

// Sequencer walks an ordered list of steps. Forward movement is gated on the
// current step validating; backward movement is always free. Jumping is
// allowed to any step already reached through validation, mirroring a
// clickable progress stepper that refuses to skip ahead.
type Sequencer struct {
	def          *FormDef
	index        int
	validated    map[string]bool
	maxValidated int // highest step index ever validated complete, -1 for none
}

// NewSequencer starts a sequencer at step 0 with nothing validated.
func NewSequencer(def *FormDef) *Sequencer {
	return &Sequencer{
		def:          def,
		validated:    make(map[string]bool),
		maxValidated: -1,
	}
}

// Index returns the current step index.
func (q *Sequencer) Index() int { return q.index }

// Current returns the current step definition.
func (q *Sequencer) Current() Step { return q.def.Steps[q.index] }

// AtLast reports whether the sequencer is on the final step.
func (q *Sequencer) AtLast() bool { return q.index == len(q.def.Steps)-1 }

// Validated reports whether a step has ever been validated complete.
func (q *Sequencer) Validated(stepID string) bool { return q.validated[stepID] }

// Next advances to the following step if the current one validates against
// the given state. At the last step a valid Next is a no-op. A failed
// validation leaves the index untouched and reports what is missing.
func (q *Sequencer) Next(s FormState) error {
	cur := q.def.Steps[q.index]
	if missing := StepMissing(cur, s); len(missing) > 0 {
		return &ValidationIncomplete{StepID: cur.ID, Missing: missing}
	}
	q.markValidated(q.index, cur.ID)
	if q.index < len(q.def.Steps)-1 {
		q.index++
	}
	return nil
}

// Prev moves back one step. At step 0 it is a no-op; already-entered data is
// never cleared by revisiting.
func (q *Sequencer) Prev() {
	if q.index > 0 {
		q.index--
	}
}

// JumpTo moves directly to a step. The target must be the current index or at
// most one past the highest step ever validated complete; anything further
// forward is a SequenceViolation. Merely visiting a step does not unlock the
// one after it.
func (q *Sequencer) JumpTo(index int, s FormState) error {
	if index < 0 || index >= len(q.def.Steps) {
		return &SequenceViolation{From: q.index, To: index}
	}
	if index == q.index {
		return nil
	}
	// Record the current step's completion before leaving it, so jumping
	// away from a finished step does not lose progress.
	cur := q.def.Steps[q.index]
	if StepValid(cur, s) {
		q.markValidated(q.index, cur.ID)
	}
	if index > q.maxValidated+1 {
		return &SequenceViolation{From: q.index, To: index}
	}
	q.index = index
	return nil
}

func (q *Sequencer) markValidated(index int, stepID string) {
	q.validated[stepID] = true
	if index > q.maxValidated {
		q.maxValidated = index
	}
}
