package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/go-logr/logr"

	"github.com/imamik/simrun/internal/metrics"
)

// Subject is the state holder a Machine drives.
type Subject interface {
	// Current returns the current state.
	Current() State
	// SetState replaces the current state.
	SetState(State)
	// AddError appends a message to the subject's error log.
	AddError(msg string)
}

// Record is a minimal Subject, meant to be embedded.
type Record struct {
	State  State    `json:"state"`
	Errors []string `json:"errors,omitempty"`
}

func (r *Record) Current() State      { return r.State }
func (r *Record) SetState(s State)    { r.State = s }
func (r *Record) AddError(msg string) { r.Errors = append(r.Errors, msg) }

// Transition describes one state change.
type Transition struct {
	Event Event
	From  State
	To    State
}

// Hook runs around a transition of subject.
type Hook[S Subject] func(ctx context.Context, subject S, t Transition) error

type binding[S Subject] struct {
	events []Event
	hook   Hook[S]
}

func (b binding[S]) matches(e Event) bool {
	if len(b.events) == 0 {
		return true
	}
	for _, ev := range b.events {
		if ev == e {
			return true
		}
	}
	return false
}

// Hooks holds hook registrations shared by every Machine bound from it.
// Register hooks before binding subjects; Hooks is not safe for
// concurrent registration.
type Hooks[S Subject] struct {
	before []binding[S]
	after  []binding[S]
	log    logr.Logger
}

// NewHooks returns an empty hook registry.
func NewHooks[S Subject](log logr.Logger) *Hooks[S] {
	return &Hooks[S]{log: log}
}

// Before runs hook before any of events changes the state.
func (h *Hooks[S]) Before(events []Event, hook Hook[S]) {
	h.before = append(h.before, binding[S]{events: events, hook: hook})
}

// After runs hook after any of events changed the state.
func (h *Hooks[S]) After(events []Event, hook Hook[S]) {
	h.after = append(h.after, binding[S]{events: events, hook: hook})
}

// BeforeAny runs hook before every transition.
func (h *Hooks[S]) BeforeAny(hook Hook[S]) {
	h.Before(nil, hook)
}

// AfterAny runs hook after every transition.
func (h *Hooks[S]) AfterAny(hook Hook[S]) {
	h.After(nil, hook)
}

// Bind returns a Machine driving subject.
func (h *Hooks[S]) Bind(subject S) *Machine[S] {
	return &Machine[S]{hooks: h, subject: subject}
}

// Machine fires events on one subject. It does not synchronize; callers
// serialize access per subject.
type Machine[S Subject] struct {
	hooks   *Hooks[S]
	subject S
}

// State returns the subject's current state.
func (m *Machine[S]) State() State {
	return m.subject.Current()
}

// Events returns the events allowed from the current state.
func (m *Machine[S]) Events() []Event {
	return Events(m.subject.Current())
}

// Can reports whether event is allowed from the current state.
func (m *Machine[S]) Can(event Event) bool {
	return CanEvent(m.subject.Current(), event)
}

// Perform fires event. Before hooks run in registration order and the
// state changes only if all of them succeed; after hooks run once the
// state changed. Every failure is appended to the subject's errors.
func (m *Machine[S]) Perform(ctx context.Context, event Event) (err error) {
	from := m.subject.Current()
	defer func() {
		metrics.RecordTransition(string(event), string(from), err)
	}()

	to, err := NextState(from, event)
	if err != nil {
		m.subject.AddError(err.Error())
		return err
	}

	t := Transition{Event: event, From: from, To: to}
	log := m.hooks.log.WithValues("event", event, "from", from, "to", to)

	if err := m.run(ctx, PhaseBefore, m.hooks.before, t); err != nil {
		log.Info("transition aborted", "error", err.Error())
		return err
	}

	m.subject.SetState(to)
	log.V(1).Info("transition")

	if err := m.run(ctx, PhaseAfter, m.hooks.after, t); err != nil {
		log.Info("after hook failed", "error", err.Error())
		return err
	}
	return nil
}

// Continue performs the first event allowed from the current state.
func (m *Machine[S]) Continue(ctx context.Context) error {
	events := m.Events()
	if len(events) == 0 {
		return fmt.Errorf("%w from %q", ErrNoEvent, m.subject.Current())
	}
	return m.Perform(ctx, events[0])
}

func (m *Machine[S]) run(ctx context.Context, phase Phase, bindings []binding[S], t Transition) error {
	for _, b := range bindings {
		if !b.matches(t.Event) {
			continue
		}
		if err := m.call(ctx, phase, b.hook, t); err != nil {
			m.subject.AddError(errorText(err))
			return err
		}
	}
	return nil
}

func (m *Machine[S]) call(ctx context.Context, phase Phase, hook Hook[S], t Transition) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DefectError{Event: t.Event, Phase: phase, Value: r, Stack: debug.Stack()}
		}
	}()

	if err := hook(ctx, m.subject, t); err != nil {
		return &HookError{Event: t.Event, Phase: phase, Err: err}
	}
	return nil
}

// errorText is the message recorded on the subject: the hook's own error
// text, without the hook wrapper.
func errorText(err error) string {
	var hookErr *HookError
	if errors.As(err, &hookErr) {
		return hookErr.Err.Error()
	}
	return err.Error()
}
