package trades

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmagedov/p2pdesk-backend/internal/assignment"
	"github.com/rmagedov/p2pdesk-backend/pkg/binance"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
	"github.com/rmagedov/p2pdesk-backend/pkg/pagination"
)

type exchangeClient interface {
	ListPendingOrders(ctx context.Context) ([]binance.Order, error)
	ListAds(ctx context.Context) ([]binance.Ad, error)
	SetAdsStatus(ctx context.Context, adNos []string, status enums.AdStatus) error
}

type orderAssigner interface {
	Assign(ctx context.Context, input assignment.AssignInput) assignment.Decision
}

type workloadReleaser interface {
	ReleaseOrder(ctx context.Context, operatorID uuid.UUID) error
}

// IncomingOrder is one order in a sync push from the exchange bridge.
type IncomingOrder struct {
	OrderNumber     string `json:"order_number" validate:"required"`
	TradeType       string `json:"trade_type" validate:"required,oneof=BUY SELL"`
	Asset           string `json:"asset" validate:"required"`
	FiatUnit        string `json:"fiat_unit" validate:"required"`
	Quantity        string `json:"quantity" validate:"required"`
	Price           string `json:"price" validate:"required"`
	TotalPrice      string `json:"total_price" validate:"required"`
	Status          string `json:"status" validate:"required"`
	CounterpartyUID string `json:"counterparty_uid"`
}

// SyncResult summarizes one ingest run.
type SyncResult struct {
	Fetched  int                `json:"fetched"`
	New      int                `json:"new"`
	Closed   int                `json:"closed"`
	Assigned assignment.Summary `json:"assignment"`
}

// Service mirrors exchange orders and ads locally and hands new orders to
// the assignment engine.
type Service interface {
	SyncOrders(ctx context.Context) (*SyncResult, error)
	Ingest(ctx context.Context, incoming []IncomingOrder) (*SyncResult, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.TradeOrder, string, error)
	ListUnassignedInputs(ctx context.Context) ([]assignment.AssignInput, error)
	RefreshAds(ctx context.Context) ([]models.Advertisement, error)
	ListAds(ctx context.Context) ([]models.Advertisement, error)
	SetAdsStatus(ctx context.Context, adNos []string, status enums.AdStatus) error
}

type service struct {
	repo     Repository
	exchange exchangeClient
	assigner orderAssigner
	releaser workloadReleaser
	logger   *logger.Logger
	now      func() time.Time
}

// Params carries the service dependencies.
type Params struct {
	Repo     Repository
	Exchange exchangeClient
	Assigner orderAssigner
	Releaser workloadReleaser
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService builds the trades service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("trades repository required")
	}
	if params.Exchange == nil {
		return nil, fmt.Errorf("exchange client required")
	}
	if params.Assigner == nil {
		return nil, fmt.Errorf("order assigner required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("workload releaser required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		exchange: params.Exchange,
		assigner: params.Assigner,
		releaser: params.Releaser,
		logger:   params.Logger,
		now:      now,
	}, nil
}

// SyncOrders pulls the open-order feed, upserts the mirror, routes new
// orders, and closes mirrored orders that left the feed.
func (s *service) SyncOrders(ctx context.Context) (*SyncResult, error) {
	feed, err := s.exchange.ListPendingOrders(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]models.TradeOrder, 0, len(feed))
	for _, incoming := range feed {
		order, err := orderFromExchange(incoming)
		if err != nil {
			s.logger.Error(s.logger.WithOrderNumber(ctx, incoming.OrderNumber), "skip malformed exchange order", err)
			continue
		}
		orders = append(orders, order)
	}

	result, err := s.ingestOrders(ctx, orders)
	if err != nil {
		return nil, err
	}

	closed, err := s.closeMissing(ctx, orders)
	if err != nil {
		s.logger.Error(ctx, "close mirrored orders missing from feed", err)
	}
	result.Closed = closed
	return result, nil
}

// Ingest accepts a pushed batch in the same shape the pull sync produces.
func (s *service) Ingest(ctx context.Context, incoming []IncomingOrder) (*SyncResult, error) {
	orders := make([]models.TradeOrder, 0, len(incoming))
	for _, in := range incoming {
		order, err := orderFromIncoming(in)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order "+in.OrderNumber)
		}
		orders = append(orders, order)
	}
	return s.ingestOrders(ctx, orders)
}

func (s *service) ingestOrders(ctx context.Context, orders []models.TradeOrder) (*SyncResult, error) {
	result := &SyncResult{Fetched: len(orders)}

	var fresh []assignment.AssignInput
	for i := range orders {
		order := &orders[i]
		isNew, err := s.repo.UpsertOrder(ctx, order)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert order "+order.OrderNumber)
		}
		if isNew {
			result.New++
		}
		if order.AssignedTo == nil && order.Status.Open() {
			fresh = append(fresh, assignInputFor(*order))
		}
	}

	if len(fresh) > 0 {
		result.Assigned = bulkAssign(ctx, s.assigner, fresh)
	}
	return result, nil
}

// closeMissing marks mirrored open orders that vanished from the feed as
// completed and releases their operators' workload.
func (s *service) closeMissing(ctx context.Context, feed []models.TradeOrder) (int, error) {
	inFeed := make(map[string]struct{}, len(feed))
	for _, order := range feed {
		inFeed[order.OrderNumber] = struct{}{}
	}

	open, err := s.repo.ListOpenAssigned(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, order := range open {
		if _, ok := inFeed[order.OrderNumber]; ok {
			continue
		}
		if err := s.repo.UpdateOrderStatus(ctx, order.OrderNumber, enums.OrderStatusCompleted); err != nil {
			s.logger.Error(s.logger.WithOrderNumber(ctx, order.OrderNumber), "close order", err)
			continue
		}
		closed++
		if order.AssignedTo != nil {
			if err := s.releaser.ReleaseOrder(ctx, *order.AssignedTo); err != nil {
				s.logger.Error(s.logger.WithOrderNumber(ctx, order.OrderNumber), "release operator workload", err)
			}
		}
	}
	return closed, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.TradeOrder, string, error) {
	orders, next, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, next, nil
}

// ListUnassignedInputs feeds the manual assignment run endpoint.
func (s *service) ListUnassignedInputs(ctx context.Context) ([]assignment.AssignInput, error) {
	orders, err := s.repo.ListOpenUnassigned(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	inputs := make([]assignment.AssignInput, 0, len(orders))
	for _, order := range orders {
		inputs = append(inputs, assignInputFor(order))
	}
	return inputs, nil
}

// RefreshAds pulls the ad list from the exchange and refreshes the mirror.
func (s *service) RefreshAds(ctx context.Context) ([]models.Advertisement, error) {
	ads, err := s.exchange.ListAds(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, ad := range ads {
		mirror, err := adFromExchange(ad, now)
		if err != nil {
			s.logger.Error(s.logger.WithField(ctx, "ad_no", ad.AdNo), "skip malformed exchange ad", err)
			continue
		}
		if err := s.repo.UpsertAd(ctx, mirror); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert ad "+ad.AdNo)
		}
	}
	return s.ListAds(ctx)
}

func (s *service) ListAds(ctx context.Context) ([]models.Advertisement, error) {
	ads, err := s.repo.ListAds(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ads")
	}
	return ads, nil
}

// SetAdsStatus is the manual bulk passthrough: the exchange call must
// succeed before the mirror is updated.
func (s *service) SetAdsStatus(ctx context.Context, adNos []string, status enums.AdStatus) error {
	if len(adNos) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one ad required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown ad status "+status.String())
	}

	if err := s.exchange.SetAdsStatus(ctx, adNos, status); err != nil {
		return err
	}
	if err := s.repo.UpdateAdStatuses(ctx, adNos, status); err != nil {
		s.logger.Error(ctx, "refresh ad mirror after status change", err)
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{"ads": len(adNos), "status": status.String()}), "ads status changed")
	return nil
}

func bulkAssign(ctx context.Context, assigner orderAssigner, inputs []assignment.AssignInput) assignment.Summary {
	summary := assignment.Summary{Results: make([]assignment.OrderResult, 0, len(inputs))}
	for _, input := range inputs {
		decision := assigner.Assign(ctx, input)
		if decision.Assigned {
			summary.Assigned++
		} else {
			summary.Skipped++
		}
		summary.Results = append(summary.Results, assignment.OrderResult{
			OrderNumber: input.OrderNumber,
			Decision:    decision,
		})
	}
	return summary
}

func assignInputFor(order models.TradeOrder) assignment.AssignInput {
	return assignment.AssignInput{
		OrderNumber:     order.OrderNumber,
		TradeType:       order.TradeType,
		TotalPrice:      order.TotalPrice,
		CounterpartyUID: order.CounterpartyUID,
	}
}

func orderFromExchange(in binance.Order) (models.TradeOrder, error) {
	quantity, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return models.TradeOrder{}, fmt.Errorf("amount %q: %w", in.Amount, err)
	}
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return models.TradeOrder{}, fmt.Errorf("unit price %q: %w", in.Price, err)
	}
	total, err := decimal.NewFromString(in.TotalPrice)
	if err != nil {
		return models.TradeOrder{}, fmt.Errorf("total price %q: %w", in.TotalPrice, err)
	}
	tradeType, err := enums.ParseTradeType(in.TradeType)
	if err != nil {
		return models.TradeOrder{}, err
	}
	status, err := enums.ParseOrderStatus(strings.ToLower(in.OrderStatus))
	if err != nil {
		return models.TradeOrder{}, err
	}

	return models.TradeOrder{
		OrderNumber:     in.OrderNumber,
		TradeType:       tradeType,
		Asset:           in.Asset,
		FiatUnit:        in.FiatUnit,
		Quantity:        quantity,
		Price:           price,
		TotalPrice:      total,
		Status:          status,
		CounterpartyUID: in.CounterpartyUID,
	}, nil
}

func orderFromIncoming(in IncomingOrder) (models.TradeOrder, error) {
	return orderFromExchange(binance.Order{
		OrderNumber:     in.OrderNumber,
		TradeType:       in.TradeType,
		Asset:           in.Asset,
		FiatUnit:        in.FiatUnit,
		Amount:          in.Quantity,
		Price:           in.Price,
		TotalPrice:      in.TotalPrice,
		OrderStatus:     in.Status,
		CounterpartyUID: in.CounterpartyUID,
	})
}

func adFromExchange(in binance.Ad, syncedAt time.Time) (*models.Advertisement, error) {
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", in.Price, err)
	}
	tradeType, err := enums.ParseTradeType(in.TradeType)
	if err != nil {
		return nil, err
	}

	status := enums.AdStatusOffline
	if in.Online() {
		status = enums.AdStatusOnline
	}
	return &models.Advertisement{
		AdNo:      in.AdNo,
		TradeType: tradeType,
		Asset:     in.Asset,
		FiatUnit:  in.FiatUnit,
		Price:     price,
		Status:    status,
		SyncedAt:  syncedAt,
	}, nil
}
