package checkout

import "fmt"

// State is a step of a single checkout attempt.
type State string

const (
	StateIdle            State = "idle"
	StateIntentRequested State = "intent_requested"
	StateAwaitingPayment State = "awaiting_payment"
	StateVerifying       State = "verifying"
	StatePersisting      State = "persisting"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

var transitions = map[State][]State{
	StateIdle:            {StateIntentRequested},
	StateIntentRequested: {StateAwaitingPayment, StateFailed},
	StateAwaitingPayment: {StateVerifying, StateIdle, StateFailed},
	StateVerifying:       {StatePersisting, StateFailed},
	StatePersisting:      {StateCompleted, StateFailed},
}

// IsTerminal reports whether no further step runs from s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks one attempt's progress and rejects out-of-order steps.
type machine struct {
	current State
	history []State
}

func newMachine() *machine {
	return &machine{current: StateIdle, history: []State{StateIdle}}
}

func (m *machine) advance(to State) error {
	if !canTransition(m.current, to) {
		return fmt.Errorf("checkout: illegal transition %s -> %s", m.current, to)
	}
	m.current = to
	m.history = append(m.history, to)
	return nil
}

func (m *machine) State() State {
	return m.current
}
