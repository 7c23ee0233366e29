package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a configured transition may be taken
type GuardFunc func(ctx context.Context) bool

// Builder accumulates transitions and produces machines sharing them
type Builder interface {
	// Configure returns the transition table for a source state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at initial
	Build(initial State) StateMachine
}

// StateConfiguration adds outgoing transitions to one state
type StateConfiguration interface {
	Permit(trigger Trigger, to State) StateConfiguration
	PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfiguration
}

type transition struct {
	to    State
	guard GuardFunc
}

type transitionTable map[Trigger][]transition

type stateConfig struct {
	transitions transitionTable
}

type builder struct {
	table map[State]*stateConfig
}

type machine struct {
	current State
	table   map[State]transitionTable
}

// NewBuilder creates an empty builder
func NewBuilder() Builder {
	return &builder{table: make(map[State]*stateConfig)}
}

func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	cfg, ok := b.table[state]
	if !ok {
		cfg = &stateConfig{transitions: make(transitionTable)}
		b.table[state] = cfg
	}
	return cfg
}

// Build snapshots the configured table so later Configure calls do not leak
// into machines already handed out.
func (b *builder) Build(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	snapshot := make(map[State]transitionTable, len(b.table))
	for state, cfg := range b.table {
		copied := make(transitionTable, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			copied[trigger] = append([]transition(nil), ts...)
		}
		snapshot[state] = copied
	}

	return &machine{current: initial, table: snapshot}
}

func (c *stateConfig) Permit(trigger Trigger, to State) StateConfiguration {
	return c.PermitIf(trigger, to, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}

func (m *machine) State() State {
	return m.current
}

// CanFire does not evaluate guards; it only reports whether the trigger is
// configured for the current state.
func (m *machine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.table[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot %s a %s report", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.table[m.current]))
	for trigger := range m.table[m.current] {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
