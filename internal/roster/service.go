package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderClaimer marks a trade order as owned by an operator inside the
// caller's transaction.
type OrderClaimer interface {
	ClaimOrder(ctx context.Context, tx *gorm.DB, orderNumber string, operatorID uuid.UUID, at time.Time) error
}

// Criteria narrows the operator pool for one order.
type Criteria struct {
	Side                    enums.TradeType
	OrderTotal              decimal.Decimal
	CounterpartyUID         string
	ConsiderSpecialization  bool
	ConsiderShift           bool
	ConsiderSizeRange       bool
	ConsiderExchangeMapping bool
}

// Service exposes roster reads and the transactional order hand-off.
type Service interface {
	EligibleOperators(ctx context.Context, criteria Criteria) ([]models.Operator, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
	SetShift(ctx context.Context, operatorID uuid.UUID, onShift bool) error
	AssignOrder(ctx context.Context, orderNumber string, operatorID uuid.UUID) error
	ReleaseOrder(ctx context.Context, operatorID uuid.UUID) error
}

type service struct {
	repo    Repository
	tx      txRunner
	claimer OrderClaimer
	now     func() time.Time
}

// Params carries the service dependencies.
type Params struct {
	Repo    Repository
	Tx      txRunner
	Claimer OrderClaimer
	Now     func() time.Time
}

// NewService builds the roster service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("roster repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Claimer == nil {
		return nil, fmt.Errorf("order claimer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		claimer: params.Claimer,
		now:     now,
	}, nil
}

// EligibleOperators returns the filtered pool sorted ascending by active
// order count, ties broken by display name. The repository already orders
// rows that way, so filtering preserves it.
func (s *service) EligibleOperators(ctx context.Context, criteria Criteria) ([]models.Operator, error) {
	operators, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list operators")
	}

	pool := make([]models.Operator, 0, len(operators))
	for _, op := range operators {
		if criteria.ConsiderShift && !op.OnShift {
			continue
		}
		if criteria.ConsiderSpecialization && !op.Specialization.Covers(criteria.Side) {
			continue
		}
		if criteria.ConsiderSizeRange && !withinSizeRange(op, criteria.OrderTotal) {
			continue
		}
		if criteria.ConsiderExchangeMapping && !mappedToUID(op, criteria.CounterpartyUID) {
			continue
		}
		pool = append(pool, op)
	}
	return pool, nil
}

func (s *service) ListOperators(ctx context.Context) ([]models.Operator, error) {
	operators, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list operators")
	}
	return operators, nil
}

func (s *service) SetShift(ctx context.Context, operatorID uuid.UUID, onShift bool) error {
	if operatorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	if err := s.repo.UpdateShift(ctx, operatorID, onShift); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shift")
	}
	return nil
}

// AssignOrder claims the order and bumps the operator's workload atomically.
func (s *service) AssignOrder(ctx context.Context, orderNumber string, operatorID uuid.UUID) error {
	if strings.TrimSpace(orderNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if operatorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, operatorID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "operator not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load operator")
		}
		if err := s.claimer.ClaimOrder(ctx, tx, orderNumber, operatorID, s.now()); err != nil {
			return err
		}
		if err := repo.IncrementActiveOrders(ctx, operatorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump active order count")
		}
		return nil
	})
}

// ReleaseOrder lowers the operator's workload when an owned order closes.
func (s *service) ReleaseOrder(ctx context.Context, operatorID uuid.UUID) error {
	if operatorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	if err := s.repo.DecrementActiveOrders(ctx, operatorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lower active order count")
	}
	return nil
}

func withinSizeRange(op models.Operator, total decimal.Decimal) bool {
	if op.MinOrderSize.IsPositive() && total.LessThan(op.MinOrderSize) {
		return false
	}
	if op.MaxOrderSize.IsPositive() && total.GreaterThan(op.MaxOrderSize) {
		return false
	}
	return true
}

// An order without a counterparty UID carries nothing to match on, so the
// mapping filter does not apply to it.
func mappedToUID(op models.Operator, uid string) bool {
	if strings.TrimSpace(uid) == "" {
		return true
	}
	for _, candidate := range op.ExchangeUIDs {
		if candidate == uid {
			return true
		}
	}
	return false
}
