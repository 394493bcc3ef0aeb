package lifecycle

import "fmt"

// State is the lifecycle state of a job.
type State string

const (
	// StateCreated means the job exists but nothing was requested yet
	StateCreated State = "created"
	// StateDeploying means the machine is being provisioned
	StateDeploying State = "deploying"
	// StateReady means the machine is up and waiting for input
	StateReady State = "ready"
	// StateDownloading means the machine is fetching input data
	StateDownloading State = "downloading"
	// StateProcessing means the simulation is running
	StateProcessing State = "processing"
	// StateRendering means results are being rendered
	StateRendering State = "rendering"
	// StateCollecting means results are being uploaded
	StateCollecting State = "collecting"
	// StateFinished means the job completed
	StateFinished State = "finished"
	// StateStopped means the job was stopped by the user
	StateStopped State = "stopped"
	// StateFailed means the job failed
	StateFailed State = "failed"
)

// States lists every declared state in graph order.
var States = []State{
	StateCreated,
	StateDeploying,
	StateReady,
	StateDownloading,
	StateProcessing,
	StateRendering,
	StateCollecting,
	StateFinished,
	StateStopped,
	StateFailed,
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no event leads out of s.
func (s State) IsTerminal() bool {
	return len(Events(s)) == 0
}

// ParseState returns the State named s.
func ParseState(s string) (State, error) {
	for _, st := range States {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// Event triggers a transition.
type Event string

const (
	EventStart    Event = "start"
	EventIdle     Event = "idle"
	EventDownload Event = "download"
	EventProcess  Event = "process"
	EventRender   Event = "render"
	EventUpload   Event = "upload"
	EventFinish   Event = "finish"
	EventStop     Event = "stop"
	EventError    Event = "error"
	EventRestart  Event = "restart"
)

// String implements fmt.Stringer.
func (e Event) String() string {
	return string(e)
}

// ParseEvent returns the Event named s.
func ParseEvent(s string) (Event, error) {
	for _, t := range table {
		if string(t.event) == s {
			return t.event, nil
		}
	}
	return "", fmt.Errorf("unknown event %q", s)
}
