// Package statemachine is the orchestrator's control-flow backbone: a
// small deterministic automaton with an explicit transition table, so an
// illegal transition is a caught programming error rather than a silent
// state corruption.
package statemachine

import (
	"fmt"

	"github.com/coreagent/coreagent/pkg/agentcore"
)

// State is one phase of an iteration.
type State string

const (
	StateInit      State = "init"
	StatePlanning  State = "planning"
	StateExecuting State = "executing"
	StateVerifying State = "verifying"
	StateFinal     State = "final"
	StateError     State = "error"
)

// transitions lists, for each state, the states it may legally move to:
// Init→Planning (TaskAccepted), Planning→Executing (ToolCall),
// Planning→Final (FinalAnswer), Executing→Verifying (ToolComplete),
// Verifying→Planning (ContinueIteration), Verifying→Final (GoalAchieved),
// and any non-terminal state→Error (FatalError). Final and Error are
// terminal: neither has outgoing edges.
var transitions = map[State]map[State]bool{
	StateInit:      {StatePlanning: true, StateError: true},
	StatePlanning:  {StateExecuting: true, StateFinal: true, StateError: true},
	StateExecuting: {StateVerifying: true, StateError: true},
	StateVerifying: {StatePlanning: true, StateFinal: true, StateError: true},
	StateError:     {},
	StateFinal:     {},
}

// Machine holds the current state and a log of states visited, in order.
type Machine struct {
	current State
	history []State
}

// New creates a Machine starting at StateInit.
func New() *Machine {
	return &Machine{current: StateInit, history: []State{StateInit}}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	return m.current
}

// History returns the sequence of states visited, including the current one.
func (m *Machine) History() []State {
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

// Transition moves the machine to "to" if the edge is legal, recording it
// in history. An illegal edge returns a KindInvalidTransition error and
// leaves the machine's current state unchanged.
func (m *Machine) Transition(to State) error {
	allowed, ok := transitions[m.current]
	if !ok || !allowed[to] {
		return agentcore.New(agentcore.KindInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", m.current, to), nil)
	}
	m.current = to
	m.history = append(m.history, to)
	return nil
}

// IsTerminal reports whether the current state has no legal outgoing edges.
func (m *Machine) IsTerminal() bool {
	return len(transitions[m.current]) == 0
}

// CanTransition reports whether the given edge is legal without taking it.
func (m *Machine) CanTransition(to State) bool {
	allowed, ok := transitions[m.current]
	return ok && allowed[to]
}
