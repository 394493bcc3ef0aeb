package simulation

import (
	"time"

	"github.com/google/uuid"

	"github.com/imamik/simrun/internal/bucket"
	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/lifecycle"
	"github.com/imamik/simrun/internal/util/naming"
)

// Job is one simulation run.
type Job struct {
	lifecycle.Record

	ID          string           `json:"id"`
	FailedState *lifecycle.State `json:"failed_state,omitempty"`
	Error       string           `json:"error,omitempty"`
	ProjectID   string           `json:"project_id"`
	UserID      string           `json:"user_id"`
	MachineID   string           `json:"machine_id,omitempty"`
	// ErrorsFrom indexes the first entry of Errors recorded since the job
	// last entered deploying.
	ErrorsFrom int       `json:"errors_from,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewJob returns a job in the created state.
func NewJob(projectID, userID string, now time.Time) *Job {
	return &Job{
		Record:    lifecycle.Record{State: lifecycle.StateCreated},
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RunErrors returns the errors recorded since the job last entered
// deploying.
func (j *Job) RunErrors() []string {
	return j.Errors[min(j.ErrorsFrom, len(j.Errors)):]
}

// Target returns the owner of the job's results.
func (j *Job) Target() bucket.Target {
	return bucket.Target{UserID: j.UserID, ProjectID: j.ProjectID}
}

// Finished reports whether the job completed.
func (j *Job) Finished() bool {
	return j.State == lifecycle.StateFinished
}

// Project groups the jobs of one user.
type Project struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Finished   bool       `json:"finished"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// MachineStatus tells whether a machine's instance exists.
type MachineStatus string

const (
	MachineStopped MachineStatus = "stopped"
	MachineRunning MachineStatus = "running"
)

// Machine is the compute instance backing a job.
type Machine struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Prefix string               `json:"prefix"`
	JobID  string               `json:"job_id"`
	Config config.MachineConfig `json:"config"`
	Status MachineStatus        `json:"status"`
}

// NewMachine returns a stopped machine for jobID built from cfg.
func NewMachine(cfg config.MachineConfig, jobID string) *Machine {
	return &Machine{
		ID:     uuid.NewString(),
		Name:   cfg.Name,
		Prefix: cfg.NamePrefix,
		JobID:  jobID,
		Config: cfg,
		Status: MachineStopped,
	}
}

// FullName returns the provider-unique instance name.
func (m *Machine) FullName() string {
	return naming.Instance(m.Prefix, m.Name, m.ID)
}

// Settings returns the provisioning settings.
func (m *Machine) Settings() config.MachineConfig {
	return m.Config
}

// SetRunning updates the status.
func (m *Machine) SetRunning(running bool) {
	if running {
		m.Status = MachineRunning
		return
	}
	m.Status = MachineStopped
}

// Running reports whether the instance exists.
func (m *Machine) Running() bool {
	return m.Status == MachineRunning
}
