package workflow

import "context"

// StateMachine tracks the current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanTransition returns true if a transition to the target is configured from the current state
	CanTransition(to State) bool

	// Transition moves to the target state if it is configured and its guard passes
	Transition(ctx context.Context, to State) error

	// PermittedTargets returns all states reachable from the current state
	PermittedTargets() []State

	// IsTerminal returns true when no transition leaves the current state
	IsTerminal() bool
}
