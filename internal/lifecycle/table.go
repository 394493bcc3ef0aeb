package lifecycle

import "slices"

type transition struct {
	event Event
	from  []State
	to    State
}

// active are the states a job can be stopped or fail from.
var active = []State{
	StateCreated,
	StateDeploying,
	StateReady,
	StateDownloading,
	StateProcessing,
	StateRendering,
	StateCollecting,
}

// table is consulted in order; Continue picks the first match, so the
// happy path comes before stop and error.
var table = []transition{
	{event: EventStart, from: []State{StateCreated}, to: StateDeploying},
	{event: EventIdle, from: []State{StateDeploying}, to: StateReady},
	{event: EventDownload, from: []State{StateReady}, to: StateDownloading},
	{event: EventProcess, from: []State{StateDownloading}, to: StateProcessing},
	{event: EventRender, from: []State{StateProcessing}, to: StateRendering},
	{event: EventUpload, from: []State{StateRendering}, to: StateCollecting},
	{event: EventFinish, from: []State{StateCollecting}, to: StateFinished},
	{event: EventStop, from: active, to: StateStopped},
	{event: EventError, from: active, to: StateFailed},
	{event: EventRestart, from: []State{StateStopped, StateFailed}, to: StateDeploying},
}

// NextState returns the state event leads to from current, or
// *IncorrectEvent if event is not allowed there.
func NextState(current State, event Event) (State, error) {
	for _, t := range table {
		if t.event == event && slices.Contains(t.from, current) {
			return t.to, nil
		}
	}
	return current, &IncorrectEvent{Event: event, State: current}
}

// Events returns the events allowed from s in table order.
func Events(s State) []Event {
	var events []Event
	for _, t := range table {
		if slices.Contains(t.from, s) {
			events = append(events, t.event)
		}
	}
	return events
}

// CanEvent reports whether event is allowed from s.
func CanEvent(s State, event Event) bool {
	_, err := NextState(s, event)
	return err == nil
}
