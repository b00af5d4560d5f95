package cron

import (
	"context"
	"fmt"

	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

const orderSyncJobName = "order-sync"

type orderSyncer interface {
	SyncOrders(ctx context.Context) (*trades.SyncResult, error)
}

// OrderSyncJobParams configure the exchange order sync.
type OrderSyncJobParams struct {
	Logger *logger.Logger
	Trades orderSyncer
}

type orderSyncJob struct {
	logg   *logger.Logger
	trades orderSyncer
}

// NewOrderSyncJob builds the job that pulls open orders from the exchange,
// refreshes the local mirror, and routes new orders through auto-assignment.
func NewOrderSyncJob(params OrderSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Trades == nil {
		return nil, fmt.Errorf("trades service required")
	}
	return &orderSyncJob{logg: params.Logger, trades: params.Trades}, nil
}

func (j *orderSyncJob) Name() string { return orderSyncJobName }

func (j *orderSyncJob) Run(ctx context.Context) error {
	result, err := j.trades.SyncOrders(ctx)
	if err != nil {
		return fmt.Errorf("sync exchange orders: %w", err)
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"fetched":  result.Fetched,
		"new":      result.New,
		"closed":   result.Closed,
		"assigned": result.Assigned.Assigned,
		"skipped":  result.Assigned.Skipped,
	})
	j.logg.Info(ctx, "order mirror synced")
	return nil
}
