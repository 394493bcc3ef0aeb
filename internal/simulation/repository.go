package simulation

import (
	"context"

	"github.com/imamik/simrun/internal/store"
)

// Repository persists jobs, machines and projects.
type Repository interface {
	Job(ctx context.Context, id string) (*Job, error)
	SaveJob(ctx context.Context, job *Job) error
	Jobs(ctx context.Context) ([]*Job, error)

	Machine(ctx context.Context, id string) (*Machine, error)
	SaveMachine(ctx context.Context, m *Machine) error

	Project(ctx context.Context, id string) (*Project, error)
	SaveProject(ctx context.Context, p *Project) error
}

type storeRepository struct {
	jobs     *store.Collection[Job]
	machines *store.Collection[Machine]
	projects *store.Collection[Project]
}

// NewRepository returns a Repository backed by db. Missing records are
// reported as store.ErrNotFound.
func NewRepository(db *store.DB) Repository {
	return &storeRepository{
		jobs:     store.NewCollection[Job](db, "job"),
		machines: store.NewCollection[Machine](db, "machine"),
		projects: store.NewCollection[Project](db, "project"),
	}
}

func (r *storeRepository) Job(ctx context.Context, id string) (*Job, error) {
	return r.jobs.Get(ctx, id)
}

func (r *storeRepository) SaveJob(ctx context.Context, job *Job) error {
	return r.jobs.Save(ctx, job.ID, job)
}

func (r *storeRepository) Jobs(ctx context.Context) ([]*Job, error) {
	return r.jobs.List(ctx)
}

func (r *storeRepository) Machine(ctx context.Context, id string) (*Machine, error) {
	return r.machines.Get(ctx, id)
}

func (r *storeRepository) SaveMachine(ctx context.Context, m *Machine) error {
	return r.machines.Save(ctx, m.ID, m)
}

func (r *storeRepository) Project(ctx context.Context, id string) (*Project, error) {
	return r.projects.Get(ctx, id)
}

func (r *storeRepository) SaveProject(ctx context.Context, p *Project) error {
	return r.projects.Save(ctx, p.ID, p)
}
