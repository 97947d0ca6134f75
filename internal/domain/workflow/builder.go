package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a transition may proceed. A non-nil error blocks it
// and is returned to the caller unchanged.
type GuardFunc func(ctx context.Context) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a transition to the target state
	Permit(toState State) StateConfiguration

	// PermitIf allows a transition to the target state if the guard passes
	PermitIf(toState State, guard GuardFunc) StateConfiguration
}

type stateConfig struct {
	fromState   State
	transitions map[State]GuardFunc
	order       []State
}

type stateMachineBuilder struct {
	states         StateSet
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder over a closed set of states
func NewBuilder(states StateSet) StateMachineBuilder {
	return &stateMachineBuilder{
		states:         states,
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !b.states.Contains(state) {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[State]GuardFunc),
		}
		b.configurations[state] = config
	}

	return &stateConfigurator{config: config, states: b.states}
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !b.states.Contains(initialState) {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy so machines built from one builder never share configuration
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitions := make(map[State]GuardFunc, len(config.transitions))
		for to, guard := range config.transitions {
			transitions[to] = guard
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitions,
			order:       append([]State{}, config.order...),
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// stateConfigurator implements StateConfiguration
type stateConfigurator struct {
	config *stateConfig
	states StateSet
}

// Permit allows a transition to the target state
func (c *stateConfigurator) Permit(toState State) StateConfiguration {
	return c.PermitIf(toState, nil)
}

// PermitIf allows a transition to the target state if the guard passes
func (c *stateConfigurator) PermitIf(toState State, guard GuardFunc) StateConfiguration {
	if !c.states.Contains(toState) {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	if _, exists := c.config.transitions[toState]; !exists {
		c.config.order = append(c.config.order, toState)
	}
	c.config.transitions[toState] = guard

	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanTransition returns true if a transition to the target is configured.
// Guards are not evaluated here since they need a request context.
func (m *stateMachine) CanTransition(to State) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	_, exists = config.transitions[to]
	return exists
}

// Transition moves to the target state if it is configured and its guard passes
func (m *stateMachine) Transition(ctx context.Context, to State) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: %s -> %s (no configuration)", ErrInvalidTransition, m.currentState, to)
	}

	guard, exists := config.transitions[to]
	if !exists {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.currentState, to)
	}

	if guard != nil {
		if err := guard(ctx); err != nil {
			return err
		}
	}

	m.currentState = to
	return nil
}

// PermittedTargets returns the states reachable from the current state in configuration order
func (m *stateMachine) PermittedTargets() []State {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []State{}
	}
	return append([]State{}, config.order...)
}

// IsTerminal returns true when no transition leaves the current state
func (m *stateMachine) IsTerminal() bool {
	return len(m.PermittedTargets()) == 0
}
