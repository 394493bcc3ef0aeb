package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/simrun/internal/deploy"
	"github.com/imamik/simrun/internal/lifecycle"
	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/store"
	"github.com/imamik/simrun/internal/tasks"
	"github.com/imamik/simrun/internal/util/labels"
	"github.com/imamik/simrun/internal/util/retry"
)

// errNotDeploying aborts an idle transition for a job that left deploying
// while its instance was being created.
var errNotDeploying = errors.New("job is no longer deploying")

// Registry accepts task handlers.
type Registry interface {
	Register(task string, h tasks.Handler)
}

// RegisterTasks binds the provisioning task handlers to r.
func (s *Service) RegisterTasks(r Registry) {
	r.Register(TaskInstallInstance, s.InstallInstance)
	r.Register(TaskRemoveInstance, s.RemoveInstance)
}

// InstallInstance creates the instance of a deploying job and fires idle on
// success or error on failure. Jobs that are not deploying are skipped. If
// the job stopped while the instance was created, the instance is scheduled
// for removal.
func (s *Service) InstallInstance(ctx context.Context, args map[string]string) error {
	jobID := args["job_id"]
	if jobID == "" {
		return retry.Fatal(errors.New("install_instance: job_id is required"))
	}
	log := s.log.WithValues("task", TaskInstallInstance, "job", jobID)

	job, machine, err := s.prepareInstall(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return retry.Fatal(err)
	}
	if err != nil {
		return err
	}
	if machine == nil {
		log.Info("job is not deploying, skipping", "state", job.State)
		return nil
	}

	err = s.deployer(job, machine).CreateInstance(ctx)
	if errors.Is(err, provider.ErrDuplicateName) {
		log.Info("instance already exists", "instance", machine.FullName())
		machine.SetRunning(true)
		err = nil
	}
	if err != nil {
		if _, ferr := s.Error(ctx, jobID, err); ferr != nil {
			log.Error(ferr, "failed to mark job failed")
		}
		return nil
	}

	if err := s.repo.SaveMachine(ctx, machine); err != nil {
		return fmt.Errorf("failed to save machine %s: %w", machine.ID, err)
	}

	_, err = s.fire(ctx, jobID, requireDeploying, func(m *lifecycle.Machine[*Job]) error {
		return m.Perform(ctx, lifecycle.EventIdle)
	})
	if errors.Is(err, errNotDeploying) {
		log.Info("job left deploying, removing instance")
		return s.scheduler.Schedule(ctx, TaskRemoveInstance, taskArgs(job))
	}
	return err
}

// RemoveInstance destroys the instance of a job's machine. Jobs without a
// machine are skipped, and so are jobs that are active again: a removal
// queued by stop must not destroy the instance a later restart adopted.
// The job lock is held until the instance is gone so a restart waits for it.
func (s *Service) RemoveInstance(ctx context.Context, args map[string]string) error {
	jobID := args["job_id"]
	if jobID == "" {
		return retry.Fatal(errors.New("remove_instance: job_id is required"))
	}

	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.repo.Job(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return retry.Fatal(err)
	}
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.MachineID == "" {
		return nil
	}
	if !inactive(job.State) {
		s.log.Info("job is active, keeping instance", "task", TaskRemoveInstance, "job", jobID, "state", job.State)
		return nil
	}

	machine, err := s.repo.Machine(ctx, job.MachineID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load machine %s: %w", job.MachineID, err)
	}

	if err := s.deployer(job, machine).RemoveInstance(ctx); err != nil {
		return err
	}
	return s.repo.SaveMachine(ctx, machine)
}

// prepareInstall returns the job and its machine, creating the machine when
// needed. The machine is nil when the job is not deploying.
func (s *Service) prepareInstall(ctx context.Context, jobID string) (*Job, *Machine, error) {
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.repo.Job(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.State != lifecycle.StateDeploying {
		return job, nil, nil
	}

	hadMachine := job.MachineID != ""
	machine, err := s.Machine(ctx, job)
	if err != nil {
		return nil, nil, err
	}
	if !hadMachine {
		if err := s.repo.SaveJob(ctx, job); err != nil {
			return nil, nil, fmt.Errorf("failed to save job %s: %w", jobID, err)
		}
	}
	return job, machine, nil
}

func (s *Service) deployer(job *Job, m *Machine) *deploy.Deployer {
	return deploy.New(s.provider, m,
		deploy.WithMetadata(s.Metadata(job)),
		deploy.WithLabels(labels.NewLabelBuilder().WithJob(job.ID).WithProject(job.ProjectID).Build()),
		deploy.WithLogger(s.log.WithName("deploy")),
	)
}

// inactive reports whether a job in state s no longer needs its instance.
func inactive(s lifecycle.State) bool {
	return s == lifecycle.StateStopped || s == lifecycle.StateFailed || s.IsTerminal()
}

func requireDeploying(job *Job) error {
	if job.State != lifecycle.StateDeploying {
		return errNotDeploying
	}
	return nil
}

// Resume schedules the tasks lost when the process stopped: installs for
// deploying jobs and removals for running machines of jobs that are no
// longer active. It returns how many tasks were scheduled.
func (s *Service) Resume(ctx context.Context) (int, error) {
	jobs, err := s.repo.Jobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	scheduled := 0
	for _, job := range jobs {
		task, err := s.pendingTask(ctx, job)
		if err != nil {
			return scheduled, err
		}
		if task == "" {
			continue
		}
		if err := s.scheduler.Schedule(ctx, task, taskArgs(job)); err != nil {
			return scheduled, fmt.Errorf("failed to schedule %s for job %s: %w", task, job.ID, err)
		}
		s.log.Info("resumed task", "task", task, "job", job.ID, "state", job.State)
		scheduled++
	}
	return scheduled, nil
}

func (s *Service) pendingTask(ctx context.Context, job *Job) (string, error) {
	switch {
	case job.State == lifecycle.StateDeploying:
		return TaskInstallInstance, nil
	case job.MachineID == "":
		return "", nil
	case !inactive(job.State):
		return "", nil
	}

	m, err := s.repo.Machine(ctx, job.MachineID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load machine %s: %w", job.MachineID, err)
	}
	if m.Running() {
		return TaskRemoveInstance, nil
	}
	return "", nil
}
