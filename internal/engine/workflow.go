package engine

import "context"

// Submitter dispatches an assembled payload to the persistence collaborator.
// Failures are reported as *SubmissionError so the workflow can distinguish
// retryable network faults from rejections.
type Submitter interface {
	Submit(ctx context.Context, p *Payload) error
}

// Registry reconciles the per-patient required-forms completion registry.
// The workflow only ever moves an entry from pending to completed.
type Registry interface {
	MarkCompleted(ctx context.Context, formKey string) error
}

// StepCompletion is the derived completion status of one step, for progress
// indication. It is recomputed from the current state, never stored.
type StepCompletion struct {
	StepID   string `json:"step_id"`
	Title    string `json:"title"`
	Complete bool   `json:"complete"`
}

// Workflow ties one form definition, its state store, step sequencer and
// capture slots together for a single user session. A workflow instance is
// single-threaded: every operation runs to completion before the next user
// action is processed.
type Workflow struct {
	def       *FormDef
	store     *Store
	seq       *Sequencer
	slots     *SlotGroup
	submitter Submitter
	registry  Registry
	inFlight  bool
}

// NewWorkflow opens a fresh workflow instance for a form definition. The
// registry is optional; pass nil for workflows with no completion registry
// (the CHW encounter).
func NewWorkflow(def *FormDef, submitter Submitter, registry Registry) *Workflow {
	return &Workflow{
		def:       def,
		store:     NewStore(def),
		seq:       NewSequencer(def),
		slots:     NewSlotGroup(),
		submitter: submitter,
		registry:  registry,
	}
}

// Def returns the form definition driving this workflow.
func (w *Workflow) Def() *FormDef { return w.def }

// StepIndex returns the current step index.
func (w *Workflow) StepIndex() int { return w.seq.Index() }

// SetField records an answer. Edits are disallowed while a submission is in
// flight.
func (w *Workflow) SetField(path string, v any) error {
	if w.inFlight {
		return ErrSubmitInFlight
	}
	return w.store.Set(path, v)
}

// Field returns the collected value at a path.
func (w *Workflow) Field(path string) (any, bool) {
	return w.store.Get(path)
}

// effectiveState overlays captured artifacts onto their file fields so every
// read path sees one coherent record. The overlay copies; the store itself is
// never touched.
func (w *Workflow) effectiveState() FormState {
	state := w.store.State()
	for name, art := range w.slots.Artifacts() {
		if w.def.HasPath(name) {
			state = state.With(name, art)
		}
	}
	return state
}

// VisibleFields returns the fields of a step that apply under the current
// state, for rendering.
func (w *Workflow) VisibleFields(stepIndex int) []FieldSchema {
	if stepIndex < 0 || stepIndex >= len(w.def.Steps) {
		return nil
	}
	state := w.effectiveState()
	var out []FieldSchema
	for _, f := range w.def.Steps[stepIndex].Fields {
		if f.Visible(state) {
			out = append(out, f)
		}
	}
	return out
}

// CompletionState recomputes per-step completion from the current state.
func (w *Workflow) CompletionState() []StepCompletion {
	state := w.effectiveState()
	out := make([]StepCompletion, len(w.def.Steps))
	for i, st := range w.def.Steps {
		out[i] = StepCompletion{StepID: st.ID, Title: st.Title, Complete: StepValid(st, state)}
	}
	return out
}

// CanGoNext reports whether the current step would pass validation.
func (w *Workflow) CanGoNext() bool {
	return StepValid(w.seq.Current(), w.effectiveState())
}

// CanGoBack reports whether a previous step exists.
func (w *Workflow) CanGoBack() bool {
	return w.seq.Index() > 0
}

// Next advances to the following step, gated on validation.
func (w *Workflow) Next() error {
	return w.seq.Next(w.effectiveState())
}

// Prev moves back one step without clearing anything.
func (w *Workflow) Prev() {
	w.seq.Prev()
}

// JumpTo moves directly to an already-reached step.
func (w *Workflow) JumpTo(index int) error {
	return w.seq.JumpTo(index, w.effectiveState())
}

// Slot returns the named capture slot, creating it on first use.
func (w *Workflow) Slot(name string) *Slot {
	return w.slots.Slot(name)
}

// Submit validates the whole form, assembles the payload and dispatches it.
// A validation or assembly failure has no side effects. On dispatch failure
// the state and artifacts are preserved unchanged for retry. On success the
// registry entry (if any) is completed and the workflow resets to its opening
// state.
func (w *Workflow) Submit(ctx context.Context) error {
	if w.inFlight {
		return ErrSubmitInFlight
	}
	artifacts := w.slots.Artifacts()
	state := w.effectiveState()
	if step, missing, incomplete := FirstIncompleteStep(w.def, state); incomplete {
		return &ValidationIncomplete{StepID: step.ID, Missing: missing}
	}

	payload, err := Assemble(w.def.Key, state, artifacts)
	if err != nil {
		return err
	}

	w.inFlight = true
	err = w.submitter.Submit(ctx, payload)
	w.inFlight = false
	if err != nil {
		return err
	}

	if w.registry != nil {
		if err := w.registry.MarkCompleted(ctx, w.def.Key); err != nil {
			// The record is stored; surface the registry fault without
			// wiping the user's session so the caller can reconcile.
			return err
		}
	}

	w.reset()
	return nil
}

// reset returns the workflow to its opening state: empty store, step 0,
// every capture slot cancelled and its stream released.
func (w *Workflow) reset() {
	w.store.Reset()
	w.seq = NewSequencer(w.def)
	w.slots.Reset()
}
