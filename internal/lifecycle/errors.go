package lifecycle

import (
	"errors"
	"fmt"
)

// ErrIncorrectEvent matches every *IncorrectEvent via errors.Is.
var ErrIncorrectEvent = errors.New("incorrect event")

// ErrNoEvent is returned by Continue when no event leads out of the
// current state.
var ErrNoEvent = errors.New("no event available")

// IncorrectEvent is returned when an event is not allowed from the
// current state. The state is left unchanged.
type IncorrectEvent struct {
	Event Event
	State State
}

func (e *IncorrectEvent) Error() string {
	return fmt.Sprintf("event %q cannot transition from %q", e.Event, e.State)
}

// Is reports whether target is ErrIncorrectEvent.
func (e *IncorrectEvent) Is(target error) bool {
	return target == ErrIncorrectEvent
}

// Phase tells whether a hook ran before or after the state changed.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// HookError wraps an error returned by a transition hook.
type HookError struct {
	Event Event
	Phase Phase
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s %s hook failed: %v", e.Phase, e.Event, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// DefectError reports a hook that panicked.
type DefectError struct {
	Event Event
	Phase Phase
	Value any
	Stack []byte
}

func (e *DefectError) Error() string {
	return fmt.Sprintf("%s %s hook panicked: %v", e.Phase, e.Event, e.Value)
}
