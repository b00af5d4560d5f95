package cron

import (
	"context"
	"testing"
)

type namedJob struct {
	name string
}

func (j *namedJob) Name() string              { return j.name }
func (j *namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	sweep := &namedJob{name: "rest-timer-expiry"}
	sync := &namedJob{name: "order-sync"}
	registry := NewRegistry(sweep, nil, sync)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != sweep || jobs[1] != sync {
		t.Fatal("jobs returned out of order")
	}

	// callers must not be able to mutate the internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal slice leaked")
	}
}
