package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of scheduled work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the sweeps a cron cycle runs, keyed by name. Two jobs with
// the same name would transition the same listings twice, so names are unique.
type Registry struct {
	jobs    []Job
	byName  map[string]Job
	enabled map[string]bool
}

// NewRegistry registers jobs in order, skipping nils. The zero Registry is
// also ready to use.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job. A nil job is ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("cron job %T has no name", job)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	r.byName[name] = job
	r.jobs = append(r.jobs, job)
	return nil
}

// Enable restricts cycles to the named jobs. An empty list runs everything.
func (r *Registry) Enable(names []string) error {
	if len(names) == 0 {
		r.enabled = nil
		return nil
	}
	enabled := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, ok := r.byName[name]; !ok {
			return fmt.Errorf("unknown cron job %q", name)
		}
		enabled[name] = true
	}
	r.enabled = enabled
	return nil
}

// Names lists enabled job names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.Jobs() {
		names = append(names, job.Name())
	}
	return names
}

// Jobs returns the enabled jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if r.enabled == nil || r.enabled[job.Name()] {
			jobs = append(jobs, job)
		}
	}
	return jobs
}
