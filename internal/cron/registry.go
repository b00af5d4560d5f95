package cron

import "context"

// Job is a unit of scheduled work executed by the worker loop.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker instance executes each cycle.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the given jobs, skipping nils.
func NewRegistry(jobs ...Job) *Registry {
	reg := &Registry{}
	for _, job := range jobs {
		reg.Register(job)
	}
	return reg
}

// Register appends a job to the run order.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
