package workflow

import (
	"context"
	"errors"
)

var (
	// ErrInvalidTransition means the report's current state has no edge for the trigger
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed means every edge for the trigger was vetoed
	ErrGuardFailed = errors.New("guard condition failed")
)

// StateMachine tracks the current state of one report and validates transitions
type StateMachine interface {
	State() State

	// CanFire reports whether any edge exists for the trigger, ignoring guards
	CanFire(trigger Trigger) bool

	// Fire moves to the target of the first edge whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers lists configured triggers in a stable order
	PermittedTriggers() []Trigger
}
