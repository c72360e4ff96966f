package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

type fakeSubmitter struct {
	payloads []*Payload
	err      error
	onSubmit func()
}

func (f *fakeSubmitter) Submit(ctx context.Context, p *Payload) error {
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

type fakeRegistry struct {
	completed []string
	err       error
}

func (f *fakeRegistry) MarkCompleted(ctx context.Context, formKey string) error {
	if f.err != nil {
		return f.err
	}
	f.completed = append(f.completed, formKey)
	return nil
}

func fillDemo(t *testing.T, w *Workflow) {
	t.Helper()
	for path, v := range map[string]any{
		"demographics.age":    "42",
		"demographics.gender": "female",
		"visit.date":          "2026-08-30",
		"housing.status":      "stable",
		"consent.agreed":      true,
	} {
		if err := w.SetField(path, v); err != nil {
			t.Fatalf("set %s: %v", path, err)
		}
	}
}

func TestWorkflowEndToEnd(t *testing.T) {
	sub := &fakeSubmitter{}
	reg := &fakeRegistry{}
	w := NewWorkflow(demoDef(), sub, reg)

	if w.CanGoNext() {
		t.Fatal("empty step should not pass validation")
	}
	if err := w.Next(); err == nil {
		t.Fatal("next on an incomplete step should fail")
	}

	fillDemo(t, w)
	if !w.CanGoNext() {
		t.Fatal("complete step should pass validation")
	}
	if err := w.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.StepIndex() != 2 {
		t.Fatalf("expected step 2, at %d", w.StepIndex())
	}

	if err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("expected 1 dispatched payload, got %d", len(sub.payloads))
	}
	if sub.payloads[0].ContentType != "application/json" {
		t.Errorf("content type = %s", sub.payloads[0].ContentType)
	}
	if len(reg.completed) != 1 || reg.completed[0] != "demo" {
		t.Errorf("registry completions = %v", reg.completed)
	}
	// Success resets the session.
	if w.StepIndex() != 0 {
		t.Errorf("expected reset to step 0, at %d", w.StepIndex())
	}
	if _, ok := w.Field("demographics.age"); ok {
		t.Error("expected empty state after submit")
	}
}

func TestWorkflowConditionalField(t *testing.T) {
	w := NewWorkflow(demoDef(), &fakeSubmitter{}, nil)
	fillDemo(t, w)
	if err := w.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.CanGoNext() {
		t.Fatal("housing step should be complete with status=stable")
	}

	// Switching to "other" reveals a required detail field.
	if err := w.SetField("housing.status", "other"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.CanGoNext() {
		t.Fatal("revealed required field should block the step")
	}
	fields := w.VisibleFields(1)
	found := false
	for _, f := range fields {
		if f.Key == "housing.other_detail" {
			found = true
		}
	}
	if !found {
		t.Error("conditional field not in visible set")
	}

	if err := w.SetField("housing.other_detail", "couch surfing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.CanGoNext() {
		t.Fatal("step should be complete once detail is provided")
	}
}

func TestWorkflowSubmitIncompleteForm(t *testing.T) {
	sub := &fakeSubmitter{}
	w := NewWorkflow(demoDef(), sub, nil)
	if err := w.SetField("demographics.age", "42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := w.Submit(context.Background())
	var vi *ValidationIncomplete
	if !errors.As(err, &vi) {
		t.Fatalf("expected ValidationIncomplete, got %v", err)
	}
	if vi.StepID != "basics" {
		t.Errorf("expected first incomplete step, got %s", vi.StepID)
	}
	if len(sub.payloads) != 0 {
		t.Error("nothing should be dispatched for an invalid form")
	}
}

func TestWorkflowSubmitFailurePreservesState(t *testing.T) {
	sub := &fakeSubmitter{err: &SubmissionError{Kind: FailureNetwork, Err: errors.New("connection reset")}}
	reg := &fakeRegistry{}
	w := NewWorkflow(demoDef(), sub, reg)
	fillDemo(t, w)

	err := w.Submit(context.Background())
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if !se.Retryable() {
		t.Error("network failure should be retryable")
	}
	if v, _ := w.Field("demographics.age"); v != "42" {
		t.Errorf("state lost after failed submit: %v", v)
	}
	if len(reg.completed) != 0 {
		t.Error("registry must not complete on failure")
	}

	// A retry after the fault sends an equivalent payload.
	sub.err = nil
	if err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(sub.payloads))
	}
}

func TestWorkflowRetryPayloadEquivalent(t *testing.T) {
	sub := &fakeSubmitter{}
	w := NewWorkflow(demoDef(), sub, nil)
	fillDemo(t, w)

	first, err := Assemble(w.Def().Key, w.effectiveState(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Assemble(w.Def().Key, w.effectiveState(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first.Body, second.Body) {
		t.Errorf("reassembly differed:\n%s\n%s", first.Body, second.Body)
	}
}

func TestWorkflowEditRejectedWhileInFlight(t *testing.T) {
	w := NewWorkflow(demoDef(), nil, nil)
	sub := &fakeSubmitter{}
	sub.onSubmit = func() {
		if err := w.SetField("demographics.age", "99"); !errors.Is(err, ErrSubmitInFlight) {
			t.Errorf("expected ErrSubmitInFlight during dispatch, got %v", err)
		}
	}
	w.submitter = sub
	fillDemo(t, w)

	if err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// After dispatch completes, edits work again.
	if err := w.SetField("demographics.age", "43"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWorkflowRegistryFaultKeepsSession(t *testing.T) {
	sub := &fakeSubmitter{}
	reg := &fakeRegistry{err: errors.New("registry unavailable")}
	w := NewWorkflow(demoDef(), sub, reg)
	fillDemo(t, w)

	if err := w.Submit(context.Background()); err == nil {
		t.Fatal("expected registry error to surface")
	}
	// The record was dispatched, but the session is kept for reconciliation.
	if len(sub.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(sub.payloads))
	}
	if _, ok := w.Field("demographics.age"); !ok {
		t.Error("session state must survive a registry fault")
	}
}

func TestWorkflowFileSlotFeedsValidation(t *testing.T) {
	def := &FormDef{
		Key: "photo_id",
		Steps: []Step{
			{ID: "upload", Fields: []FieldSchema{
				{Key: "photo_id.front", Kind: KindFile, Required: true},
			}},
		},
	}
	sub := &fakeSubmitter{}
	w := NewWorkflow(def, sub, nil)

	if w.CanGoNext() {
		t.Fatal("empty file slot should block validation")
	}
	if err := w.Slot("photo_id.front").Upload("image/png", []byte{0x89}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.CanGoNext() {
		t.Fatal("captured artifact should satisfy the file field")
	}
	if err := w.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(sub.payloads))
	}
	if sub.payloads[0].ContentType == "application/json" {
		t.Error("artifact submission should be multipart")
	}
	// Reset after success drops the artifact.
	if w.Slot("photo_id.front").Artifact() != nil {
		t.Error("artifact should be cleared after successful submit")
	}
}
