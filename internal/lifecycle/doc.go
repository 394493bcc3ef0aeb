// Package lifecycle implements the state machine of a simulation job.
//
// The graph is fixed: a transition table maps (event, current state) to the
// next state, NextState evaluates it as a pure function, and Machine binds
// the table to a Subject and runs before/after hooks around each transition.
//
// Hook failures never escape as panics. A returned error is recorded on the
// subject and surfaced as *HookError; a panic is recovered, recorded and
// surfaced as *DefectError so callers can tell misbehaving code apart from
// an ordinary domain failure.
package lifecycle
