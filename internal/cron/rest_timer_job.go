package cron

import (
	"context"
	"fmt"

	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

const restTimerJobName = "rest-timer-expiry"

type timerExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// RestTimerJobParams configure the rest timer sweep.
type RestTimerJobParams struct {
	Logger *logger.Logger
	Timers timerExpirer
}

type restTimerJob struct {
	logg   *logger.Logger
	timers timerExpirer
}

// NewRestTimerJob builds the job that closes overdue rest windows and
// brings the ads they took offline back online.
func NewRestTimerJob(params RestTimerJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Timers == nil {
		return nil, fmt.Errorf("rest timer service required")
	}
	return &restTimerJob{logg: params.Logger, timers: params.Timers}, nil
}

func (j *restTimerJob) Name() string { return restTimerJobName }

func (j *restTimerJob) Run(ctx context.Context) error {
	expired, err := j.timers.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("expire overdue rest timers: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "rest timers swept")
	}
	return nil
}
