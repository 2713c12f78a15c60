package domain

import "testing"

func TestExecution_PipelineTransitions(t *testing.T) {
	e := NewExecution(nil)

	steps := []Status{StatusSimulated, StatusSlippageChecked, StatusSubmitted, StatusConfirmed}
	for _, s := range steps {
		if err := e.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	if !e.Status.Terminal() {
		t.Error("confirmed should be terminal")
	}
}

func TestExecution_RejectsSkippedStates(t *testing.T) {
	e := NewExecution(nil)

	// Cannot submit without simulating and checking slippage first.
	if err := e.Transition(StatusSubmitted); err == nil {
		t.Fatal("expected rejection of discovered -> submitted")
	}

	// Cannot leave a terminal state.
	e.Fail("simulation error")
	if err := e.Transition(StatusSimulated); err == nil {
		t.Fatal("expected rejection of failed -> simulated")
	}
}

func TestExecution_FailIsIdempotentOnTerminal(t *testing.T) {
	e := NewExecution(nil)
	if err := e.Transition(StatusSimulated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e.Fail("first reason")
	e.Fail("second reason")

	if e.FailReason != "first reason" {
		t.Errorf("FailReason = %q, want the first reason kept", e.FailReason)
	}
}

func TestExecution_SubmittedCanRevert(t *testing.T) {
	e := NewExecution(nil)
	for _, s := range []Status{StatusSimulated, StatusSlippageChecked, StatusSubmitted} {
		if err := e.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	if err := e.Transition(StatusReverted); err != nil {
		t.Fatalf("submitted -> reverted: %v", err)
	}
	if !e.Status.Terminal() {
		t.Error("reverted should be terminal")
	}
}
