package workflow

// State is a status value in a workflow lifecycle
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// StateSet is the closed set of states a machine may be configured with
type StateSet map[State]bool

// NewStateSet creates a StateSet from the given states
func NewStateSet(states ...State) StateSet {
	set := make(StateSet, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}

// Contains returns true if the state belongs to the set
func (s StateSet) Contains(state State) bool {
	return s[state]
}
