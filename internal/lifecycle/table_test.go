package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowed mirrors the transition table row by row.
var allowed = map[State]map[Event]State{
	StateCreated:     {EventStart: StateDeploying, EventStop: StateStopped, EventError: StateFailed},
	StateDeploying:   {EventIdle: StateReady, EventStop: StateStopped, EventError: StateFailed},
	StateReady:       {EventDownload: StateDownloading, EventStop: StateStopped, EventError: StateFailed},
	StateDownloading: {EventProcess: StateProcessing, EventStop: StateStopped, EventError: StateFailed},
	StateProcessing:  {EventRender: StateRendering, EventStop: StateStopped, EventError: StateFailed},
	StateRendering:   {EventUpload: StateCollecting, EventStop: StateStopped, EventError: StateFailed},
	StateCollecting:  {EventFinish: StateFinished, EventStop: StateStopped, EventError: StateFailed},
	StateFinished:    {},
	StateStopped:     {EventRestart: StateDeploying},
	StateFailed:      {EventRestart: StateDeploying},
}

var allEvents = []Event{
	EventStart, EventIdle, EventDownload, EventProcess, EventRender,
	EventUpload, EventFinish, EventStop, EventError, EventRestart,
}

func TestNextState_EveryPair(t *testing.T) {
	for _, s := range States {
		for _, e := range allEvents {
			to, err := NextState(s, e)
			want, ok := allowed[s][e]
			if ok {
				require.NoError(t, err, "%s from %s", e, s)
				assert.Equal(t, want, to, "%s from %s", e, s)
				assert.True(t, CanEvent(s, e))
				continue
			}

			var incorrect *IncorrectEvent
			require.ErrorAs(t, err, &incorrect, "%s from %s", e, s)
			assert.Equal(t, e, incorrect.Event)
			assert.Equal(t, s, incorrect.State)
			assert.Equal(t, s, to)
			assert.True(t, errors.Is(err, ErrIncorrectEvent))
			assert.False(t, CanEvent(s, e))
		}
	}
}

func TestEvents(t *testing.T) {
	tests := []struct {
		state State
		want  []Event
	}{
		{StateCreated, []Event{EventStart, EventStop, EventError}},
		{StateCollecting, []Event{EventFinish, EventStop, EventError}},
		{StateFinished, nil},
		{StateStopped, []Event{EventRestart}},
		{StateFailed, []Event{EventRestart}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, Events(tt.state))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range States {
		assert.Equal(t, s == StateFinished, s.IsTerminal(), s)
	}
}

func TestParse(t *testing.T) {
	s, err := ParseState("rendering")
	require.NoError(t, err)
	assert.Equal(t, StateRendering, s)

	_, err = ParseState("paused")
	assert.Error(t, err)

	e, err := ParseEvent("restart")
	require.NoError(t, err)
	assert.Equal(t, EventRestart, e)

	_, err = ParseEvent("pause")
	assert.Error(t, err)
}

func TestIncorrectEvent_Error(t *testing.T) {
	err := &IncorrectEvent{Event: EventFinish, State: StateDeploying}
	assert.Equal(t, `event "finish" cannot transition from "deploying"`, err.Error())
}
