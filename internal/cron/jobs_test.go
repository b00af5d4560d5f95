package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/rmagedov/p2pdesk-backend/internal/assignment"
	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

type fakeExpirer struct {
	expired int
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireOverdue(context.Context) (int, error) {
	f.calls++
	return f.expired, f.err
}

type fakeSyncer struct {
	result *trades.SyncResult
	err    error
	calls  int
}

func (f *fakeSyncer) SyncOrders(context.Context) (*trades.SyncResult, error) {
	f.calls++
	return f.result, f.err
}

func TestRestTimerJobSweepsOverdueTimers(t *testing.T) {
	expirer := &fakeExpirer{expired: 1}
	job, err := NewRestTimerJob(RestTimerJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Timers: expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "rest-timer-expiry" {
		t.Fatalf("unexpected job name: %s", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one sweep, got %d", expirer.calls)
	}
}

func TestRestTimerJobPropagatesFailure(t *testing.T) {
	job, err := NewRestTimerJob(RestTimerJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Timers: &fakeExpirer{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep failure to surface")
	}
}

func TestOrderSyncJobRunsSync(t *testing.T) {
	syncer := &fakeSyncer{result: &trades.SyncResult{
		Fetched:  3,
		New:      2,
		Assigned: assignment.Summary{Assigned: 2},
	}}
	job, err := NewOrderSyncJob(OrderSyncJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Trades: syncer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "order-sync" {
		t.Fatalf("unexpected job name: %s", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if syncer.calls != 1 {
		t.Fatalf("expected one sync, got %d", syncer.calls)
	}
}

func TestOrderSyncJobPropagatesFailure(t *testing.T) {
	job, err := NewOrderSyncJob(OrderSyncJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Trades: &fakeSyncer{err: errors.New("exchange down")},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sync failure to surface")
	}
}
