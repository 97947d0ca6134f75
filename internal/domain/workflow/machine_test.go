package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateDraft     State = "DRAFT"
	stateReview    State = "REVIEW"
	stateApproved  State = "APPROVED"
	stateRejected  State = "REJECTED"
	stateCancelled State = "CANCELLED"
)

var testStates = NewStateSet(stateDraft, stateReview, stateApproved, stateRejected, stateCancelled)

var errBlocked = errors.New("blocked by guard")

func TestState_String(t *testing.T) {
	if got := stateDraft.String(); got != "DRAFT" {
		t.Errorf("State.String() = %v, want %v", got, "DRAFT")
	}
}

func TestStateSet_Contains(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"member", stateReview, true},
		{"unknown", State("INVALID"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testStates.Contains(tt.state); got != tt.expected {
				t.Errorf("StateSet.Contains() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder(testStates)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder(testStates)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestStateConfiguration_PermitPanicsOnInvalidTarget(t *testing.T) {
	builder := NewBuilder(testStates)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(stateDraft).Permit(State("INVALID"))
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).Permit(stateReview)

	machine := builder.Build(stateDraft)

	if !machine.CanTransition(stateReview) {
		t.Error("CanTransition() should return true for permitted target")
	}

	if err := machine.Transition(context.Background(), stateReview); err != nil {
		t.Errorf("Transition() failed: %v", err)
	}

	if machine.State() != stateReview {
		t.Errorf("State after Transition() = %v, want %v", machine.State(), stateReview)
	}
}

func TestStateConfiguration_PermitIf_GuardPasses(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).
		PermitIf(stateReview, func(ctx context.Context) error { return nil })

	machine := builder.Build(stateDraft)

	if err := machine.Transition(context.Background(), stateReview); err != nil {
		t.Errorf("Transition() failed: %v", err)
	}
	if machine.State() != stateReview {
		t.Errorf("State after Transition() = %v, want %v", machine.State(), stateReview)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).
		PermitIf(stateReview, func(ctx context.Context) error { return errBlocked })

	machine := builder.Build(stateDraft)

	err := machine.Transition(context.Background(), stateReview)
	if !errors.Is(err, errBlocked) {
		t.Fatalf("Transition() error = %v, want %v", err, errBlocked)
	}

	if machine.State() != stateDraft {
		t.Errorf("State should remain %v after failed Transition(), got %v", stateDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_ReplacesGuard(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).
		PermitIf(stateReview, func(ctx context.Context) error { return errBlocked }).
		Permit(stateReview)

	machine := builder.Build(stateDraft)

	if err := machine.Transition(context.Background(), stateReview); err != nil {
		t.Errorf("Transition() failed: %v", err)
	}
	if targets := machine.PermittedTargets(); len(targets) != 1 {
		t.Errorf("PermittedTargets() returned %d targets, want 1", len(targets))
	}
}

func TestStateMachine_Transition_InvalidTarget(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).Permit(stateReview)

	machine := builder.Build(stateDraft)

	err := machine.Transition(context.Background(), stateApproved)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Transition() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != stateDraft {
		t.Errorf("State should remain %v after failed Transition(), got %v", stateDraft, machine.State())
	}
}

func TestStateMachine_Transition_NoConfiguration(t *testing.T) {
	machine := NewBuilder(testStates).Build(stateDraft)

	err := machine.Transition(context.Background(), stateReview)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Transition() error = %v, want %v", err, ErrInvalidTransition)
	}
	if !machine.IsTerminal() {
		t.Error("unconfigured state should be terminal")
	}
}

func TestStateMachine_PermittedTargets_KeepsOrder(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateReview).
		Permit(stateApproved).
		Permit(stateRejected).
		Permit(stateCancelled)

	machine := builder.Build(stateReview)

	targets := machine.PermittedTargets()
	want := []State{stateApproved, stateRejected, stateCancelled}
	if len(targets) != len(want) {
		t.Fatalf("PermittedTargets() = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("PermittedTargets()[%d] = %v, want %v", i, targets[i], want[i])
		}
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).Permit(stateReview)

	machine1 := builder.Build(stateDraft)
	machine2 := builder.Build(stateDraft)

	if err := machine1.Transition(context.Background(), stateReview); err != nil {
		t.Errorf("Transition() failed: %v", err)
	}

	if machine2.State() != stateDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), stateDraft)
	}

	// Configuring the builder after Build must not leak into built machines
	builder.Configure(stateDraft).Permit(stateCancelled)
	if machine2.CanTransition(stateCancelled) {
		t.Error("machine2 should not see configuration added after Build()")
	}
}

func TestStateMachine_LinearWorkflowWithRejection(t *testing.T) {
	builder := NewBuilder(testStates)
	builder.Configure(stateDraft).Permit(stateReview).Permit(stateRejected)
	builder.Configure(stateReview).Permit(stateApproved).Permit(stateRejected)

	machine := builder.Build(stateDraft)

	for _, step := range []State{stateReview, stateApproved} {
		if err := machine.Transition(context.Background(), step); err != nil {
			t.Fatalf("Transition(%v) failed: %v", step, err)
		}
	}

	if !machine.IsTerminal() {
		t.Error("APPROVED should be terminal")
	}
	if err := machine.Transition(context.Background(), stateRejected); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Transition() from terminal state error = %v, want %v", err, ErrInvalidTransition)
	}
}
