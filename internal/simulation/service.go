package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/simrun/internal/bucket"
	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/lifecycle"
	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/store"
	"github.com/imamik/simrun/internal/util/naming"
)

// Task names and notification templates.
const (
	TaskInstallInstance = "install_instance"
	TaskRemoveInstance  = "remove_instance"

	TemplateStarted  = "simulation_started"
	TemplateFinished = "simulation_finished"
)

// Scheduler enqueues background tasks.
type Scheduler interface {
	Schedule(ctx context.Context, task string, args map[string]string) error
}

// Notifier sends templated notifications.
type Notifier interface {
	Send(ctx context.Context, template string, args map[string]string) error
}

// Broadcaster publishes progress payloads to a channel.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Repository  Repository
	Provider    provider.Provider
	Bucket      *bucket.Manager
	Scheduler   Scheduler
	Notifier    Notifier
	Broadcaster Broadcaster
	// Machine is the configuration of machines created for new jobs.
	Machine config.MachineConfig
	// Metadata is exported to every instance next to the job identifiers.
	Metadata map[string]string
	Logger   logr.Logger
	Now      func() time.Time
}

// Service runs jobs through their lifecycle. It is safe for concurrent use;
// events on the same job are serialized.
type Service struct {
	repo        Repository
	provider    provider.Provider
	bucket      *bucket.Manager
	scheduler   Scheduler
	notifier    Notifier
	broadcaster Broadcaster
	machine     config.MachineConfig
	metadata    map[string]string
	log         logr.Logger
	now         func() time.Time

	hooks *lifecycle.Hooks[*Job]
	locks JobLocks
}

// NewService returns a Service with its lifecycle hooks bound.
func NewService(d Deps) *Service {
	s := &Service{
		repo:        d.Repository,
		provider:    d.Provider,
		bucket:      d.Bucket,
		scheduler:   d.Scheduler,
		notifier:    d.Notifier,
		broadcaster: d.Broadcaster,
		machine:     d.Machine,
		metadata:    d.Metadata,
		log:         d.Logger,
		now:         d.Now,
	}
	if s.log.GetSink() == nil {
		s.log = logr.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.bucket == nil && s.provider != nil {
		s.bucket = bucket.New(s.provider, bucket.WithLogger(s.log))
	}

	s.hooks = lifecycle.NewHooks[*Job](s.log.WithName("lifecycle"))
	s.hooks.Before([]lifecycle.Event{lifecycle.EventStart, lifecycle.EventRestart}, s.beforeStart)
	s.hooks.Before([]lifecycle.Event{lifecycle.EventError}, s.beforeError)
	s.hooks.After([]lifecycle.Event{lifecycle.EventStop, lifecycle.EventFinish, lifecycle.EventError}, s.afterTeardown)
	s.hooks.AfterAny(s.afterAny)
	return s
}

// CreateJob stores a new job in the created state. The project is created
// when it does not exist yet.
func (s *Service) CreateJob(ctx context.Context, projectID, userID string) (*Job, error) {
	if projectID == "" || userID == "" {
		return nil, errors.New("project and user are required")
	}

	if _, err := s.repo.Project(ctx, projectID); errors.Is(err, store.ErrNotFound) {
		if err := s.repo.SaveProject(ctx, &Project{ID: projectID, UserID: userID}); err != nil {
			return nil, fmt.Errorf("failed to create project %s: %w", projectID, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	job := NewJob(projectID, userID, s.now())
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	s.log.Info("job created", "job", job.ID, "project", projectID)
	return job, nil
}

// Job returns the job with id.
func (s *Service) Job(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.Job(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return job, nil
}

// Jobs returns every job.
func (s *Service) Jobs(ctx context.Context) ([]*Job, error) {
	return s.repo.Jobs(ctx)
}

// Save persists job without firing an event.
func (s *Service) Save(ctx context.Context, job *Job) error {
	unlock := s.locks.Lock(job.ID)
	defer unlock()

	job.UpdatedAt = s.now()
	return s.repo.SaveJob(ctx, job)
}

// Perform fires event on the job and persists the result. The job is
// returned even when the event failed, with the failure in its errors.
func (s *Service) Perform(ctx context.Context, jobID string, event lifecycle.Event) (*Job, error) {
	return s.fire(ctx, jobID, nil, func(m *lifecycle.Machine[*Job]) error {
		return m.Perform(ctx, event)
	})
}

// Continue fires the first event allowed from the job's state.
func (s *Service) Continue(ctx context.Context, jobID string) (*Job, error) {
	return s.fire(ctx, jobID, nil, func(m *lifecycle.Machine[*Job]) error {
		return m.Continue(ctx)
	})
}

// Error records cause on the job and fires the error event.
func (s *Service) Error(ctx context.Context, jobID string, cause error) (*Job, error) {
	prepare := func(job *Job) error {
		if cause != nil {
			job.AddError(cause.Error())
		}
		return nil
	}
	return s.fire(ctx, jobID, prepare, func(m *lifecycle.Machine[*Job]) error {
		return m.Perform(ctx, lifecycle.EventError)
	})
}

// Events returns the events the job currently accepts.
func (s *Service) Events(ctx context.Context, jobID string) ([]lifecycle.Event, error) {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return lifecycle.Events(job.State), nil
}

// Report returns a read URL for the job's report, or nil if none was
// uploaded.
func (s *Service) Report(ctx context.Context, jobID string) (*provider.SignedURL, error) {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.bucket.ReportURL(ctx, job.Target())
}

// UploadURL returns a write URL for name in the job's result folder.
func (s *Service) UploadURL(ctx context.Context, jobID, name string) (*provider.SignedURL, error) {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.bucket.UploadURL(ctx, job.Target(), name)
}

// Results lists the objects in the job's result folder.
func (s *Service) Results(ctx context.Context, jobID string) ([]provider.FileRef, error) {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.bucket.Results(ctx, job.Target())
}

// DeleteResults removes the job's result folder.
func (s *Service) DeleteResults(ctx context.Context, jobID string) error {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return err
	}
	return s.bucket.DeleteReport(ctx, job.Target())
}

// Metadata returns the key/value pairs exported to the job's instance.
func (s *Service) Metadata(job *Job) map[string]string {
	md := make(map[string]string, len(s.metadata)+4)
	for k, v := range s.metadata {
		md[k] = v
	}
	md["job_id"] = job.ID
	md["project_id"] = job.ProjectID
	md["user_id"] = job.UserID
	if s.bucket != nil {
		md["result_path"] = s.bucket.Path(job.Target())
	}
	return md
}

// Machine returns the job's machine, creating and storing one from the
// default machine configuration when the job has none. The caller persists
// the job.
func (s *Service) Machine(ctx context.Context, job *Job) (*Machine, error) {
	if job.MachineID != "" {
		m, err := s.repo.Machine(ctx, job.MachineID)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load machine %s: %w", job.MachineID, err)
		}
	}

	m := NewMachine(s.machine, job.ID)
	if err := s.repo.SaveMachine(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save machine: %w", err)
	}
	job.MachineID = m.ID
	s.log.V(1).Info("machine created", "job", job.ID, "machine", m.FullName())
	return m, nil
}

// fire loads the job under its lock, applies prepare, fires and saves the
// job whatever the outcome.
func (s *Service) fire(ctx context.Context, jobID string, prepare func(*Job) error, fire func(*lifecycle.Machine[*Job]) error) (*Job, error) {
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.repo.Job(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if prepare != nil {
		if err := prepare(job); err != nil {
			return job, err
		}
	}

	fireErr := fire(s.hooks.Bind(job))

	job.UpdatedAt = s.now()
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return job, errors.Join(fireErr, fmt.Errorf("failed to save job %s: %w", jobID, err))
	}
	return job, fireErr
}

func (s *Service) beforeStart(ctx context.Context, job *Job, _ lifecycle.Transition) error {
	job.ErrorsFrom = len(job.Errors)
	if _, err := s.Machine(ctx, job); err != nil {
		return err
	}
	if err := s.scheduler.Schedule(ctx, TaskInstallInstance, taskArgs(job)); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", TaskInstallInstance, err)
	}
	s.notify(ctx, TemplateStarted, job)
	return nil
}

func (s *Service) beforeError(ctx context.Context, job *Job, t lifecycle.Transition) error {
	from := t.From
	job.FailedState = &from
	job.Error = strings.Join(job.RunErrors(), ",")

	s.publish(ctx, job, map[string]string{"body": "Error: " + job.Error})
	return nil
}

func (s *Service) afterTeardown(ctx context.Context, job *Job, t lifecycle.Transition) error {
	if err := s.scheduler.Schedule(ctx, TaskRemoveInstance, taskArgs(job)); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", TaskRemoveInstance, err)
	}
	if t.To != lifecycle.StateFinished {
		return nil
	}

	if err := s.finishProject(ctx, job); err != nil {
		return err
	}
	s.notify(ctx, TemplateFinished, job)
	return nil
}

func (s *Service) afterAny(ctx context.Context, job *Job, _ lifecycle.Transition) error {
	snapshot := *job
	s.publish(ctx, job, map[string]any{"model": snapshot})
	return nil
}

func (s *Service) finishProject(ctx context.Context, job *Job) error {
	p, err := s.repo.Project(ctx, job.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		p = &Project{ID: job.ProjectID, UserID: job.UserID}
	} else if err != nil {
		return fmt.Errorf("failed to load project %s: %w", job.ProjectID, err)
	}

	now := s.now()
	p.Finished = true
	p.FinishedAt = &now
	if err := s.repo.SaveProject(ctx, p); err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

// notify sends a project notification. Delivery failures are logged only.
func (s *Service) notify(ctx context.Context, template string, job *Job) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, template, map[string]string{"project_id": job.ProjectID}); err != nil {
		s.log.Error(err, "notification failed", "template", template, "job", job.ID)
	}
}

// publish broadcasts payload on the job owner's progress channel. Delivery
// failures are logged only.
func (s *Service) publish(ctx context.Context, job *Job, payload any) {
	if s.broadcaster == nil {
		return
	}
	channel := naming.ProgressChannel(job.UserID)
	if err := s.broadcaster.Publish(ctx, channel, payload); err != nil {
		s.log.Error(err, "broadcast failed", "channel", channel, "job", job.ID)
	}
}

func taskArgs(job *Job) map[string]string {
	return map[string]string{"job_id": job.ID}
}
