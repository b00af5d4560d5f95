package assignment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmagedov/p2pdesk-backend/internal/roster"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
	"github.com/rmagedov/p2pdesk-backend/pkg/pagination"
)

// Skip reasons recorded on decisions and the audit log.
const (
	ReasonAssigned          = "assigned"
	ReasonDisabled          = "auto_assignment_disabled"
	ReasonNoEligible        = "no_eligible_operators"
	ReasonAllAtCapacity     = "all_operators_at_capacity"
	ReasonConfigUnavailable = "config_unavailable"
	ReasonRosterUnavailable = "roster_unavailable"
	ReasonCommitFailed      = "assignment_commit_failed"
	ReasonInvalidOrder      = "invalid_order"
)

type rosterService interface {
	EligibleOperators(ctx context.Context, criteria roster.Criteria) ([]models.Operator, error)
	AssignOrder(ctx context.Context, orderNumber string, operatorID uuid.UUID) error
}

type decisionMetrics interface {
	IncAssigned(strategy string)
	IncSkipped(reason string)
}

// AssignInput describes one order to route.
type AssignInput struct {
	OrderNumber     string
	TradeType       enums.TradeType
	TotalPrice      decimal.Decimal
	CounterpartyUID string
}

// Decision is the outcome for a single order. Assign never fails outright;
// anything unexpected becomes an unassigned decision with a reason.
type Decision struct {
	Assigned   bool       `json:"assigned"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`
	Strategy   string     `json:"strategy,omitempty"`
	Reason     string     `json:"reason"`
}

// OrderResult pairs an order with its decision for bulk runs.
type OrderResult struct {
	OrderNumber string   `json:"order_number"`
	Decision    Decision `json:"decision"`
}

// Summary aggregates a bulk run.
type Summary struct {
	Assigned int           `json:"assigned"`
	Skipped  int           `json:"skipped"`
	Results  []OrderResult `json:"results"`
}

// UpdateConfigInput carries admin edits to the assignment config. Nil fields
// are left untouched.
type UpdateConfigInput struct {
	IsEnabled               *bool
	Strategy                *enums.AssignmentStrategy
	MaxOrdersPerOperator    *int
	ConsiderSpecialization  *bool
	ConsiderShift           *bool
	ConsiderSizeRange       *bool
	ConsiderExchangeMapping *bool
	CooldownMinutes         *int
	UpdatedBy               uuid.UUID
}

// Service routes incoming orders to operators and manages the config.
type Service interface {
	Assign(ctx context.Context, input AssignInput) Decision
	BulkAssign(ctx context.Context, inputs []AssignInput) Summary
	Config(ctx context.Context) (*models.AutoAssignmentConfig, error)
	UpdateConfig(ctx context.Context, input UpdateConfigInput) (*models.AutoAssignmentConfig, error)
	ListLogs(ctx context.Context, params pagination.Params) ([]models.AssignmentLog, string, error)
}

type service struct {
	repo    Repository
	roster  rosterService
	logger  *logger.Logger
	metrics decisionMetrics
}

// Params carries the service dependencies.
type Params struct {
	Repo    Repository
	Roster  rosterService
	Logger  *logger.Logger
	Metrics decisionMetrics
}

// NewService builds the assignment engine with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if params.Roster == nil {
		return nil, fmt.Errorf("roster service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		roster:  params.Roster,
		logger:  params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Assign runs the routing pipeline for one order: config gate, eligibility
// filters, workload cap, strategy pick, transactional commit, audit log.
func (s *service) Assign(ctx context.Context, input AssignInput) Decision {
	ctx = s.logger.WithOrderNumber(ctx, input.OrderNumber)

	if input.OrderNumber == "" || !input.TradeType.IsValid() {
		return s.skip(ctx, ReasonInvalidOrder)
	}

	config, err := s.repo.GetConfig(ctx)
	if err != nil {
		s.logger.Error(ctx, "load assignment config", err)
		return s.skip(ctx, ReasonConfigUnavailable)
	}
	if !config.IsEnabled {
		return s.skip(ctx, ReasonDisabled)
	}

	if config.ConsiderExchangeMapping && input.CounterpartyUID == "" {
		s.logger.Warn(ctx, "order carries no counterparty uid, exchange mapping filter will not narrow the pool")
	}

	pool, err := s.roster.EligibleOperators(ctx, roster.Criteria{
		Side:                    input.TradeType,
		OrderTotal:              input.TotalPrice,
		CounterpartyUID:         input.CounterpartyUID,
		ConsiderSpecialization:  config.ConsiderSpecialization,
		ConsiderShift:           config.ConsiderShift,
		ConsiderSizeRange:       config.ConsiderSizeRange,
		ConsiderExchangeMapping: config.ConsiderExchangeMapping,
	})
	if err != nil {
		s.logger.Error(ctx, "load eligible operators", err)
		return s.skip(ctx, ReasonRosterUnavailable)
	}

	if len(pool) == 0 {
		return s.skip(ctx, ReasonNoEligible)
	}

	pool = applyWorkloadCap(pool, config.MaxOrdersPerOperator)
	if len(pool) == 0 {
		return s.skip(ctx, ReasonAllAtCapacity)
	}

	chosen := s.pick(ctx, pool, config.Strategy)

	if err := s.roster.AssignOrder(ctx, input.OrderNumber, chosen.ID); err != nil {
		s.logger.Error(ctx, "commit assignment", err)
		return s.skip(ctx, ReasonCommitFailed)
	}

	entry := &models.AssignmentLog{
		OrderNumber:   input.OrderNumber,
		AssignedTo:    chosen.ID,
		StrategyUsed:  config.Strategy,
		EligibleCount: len(pool),
		Reason:        ReasonAssigned,
	}
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		// The order is already owned; a missing audit row is logged, not fatal.
		s.logger.Error(ctx, "append assignment log", err)
	}

	if s.metrics != nil {
		s.metrics.IncAssigned(config.Strategy.String())
	}
	s.logger.Info(s.logger.WithOperatorID(ctx, chosen.ID.String()), "order auto-assigned")

	assignedTo := chosen.ID
	return Decision{
		Assigned:   true,
		AssignedTo: &assignedTo,
		Strategy:   config.Strategy.String(),
		Reason:     ReasonAssigned,
	}
}

// BulkAssign routes orders sequentially so workload counts stay current
// between picks.
func (s *service) BulkAssign(ctx context.Context, inputs []AssignInput) Summary {
	summary := Summary{Results: make([]OrderResult, 0, len(inputs))}
	for _, input := range inputs {
		decision := s.Assign(ctx, input)
		if decision.Assigned {
			summary.Assigned++
		} else {
			summary.Skipped++
		}
		summary.Results = append(summary.Results, OrderResult{
			OrderNumber: input.OrderNumber,
			Decision:    decision,
		})
	}
	return summary
}

func (s *service) Config(ctx context.Context) (*models.AutoAssignmentConfig, error) {
	config, err := s.repo.GetConfig(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment config not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment config")
	}
	return config, nil
}

func (s *service) UpdateConfig(ctx context.Context, input UpdateConfigInput) (*models.AutoAssignmentConfig, error) {
	updates := map[string]any{}
	if input.IsEnabled != nil {
		updates["is_enabled"] = *input.IsEnabled
	}
	if input.Strategy != nil {
		if !input.Strategy.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown strategy "+input.Strategy.String())
		}
		updates["strategy"] = *input.Strategy
	}
	if input.MaxOrdersPerOperator != nil {
		if *input.MaxOrdersPerOperator <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max orders per operator must be positive")
		}
		updates["max_orders_per_operator"] = *input.MaxOrdersPerOperator
	}
	if input.ConsiderSpecialization != nil {
		updates["consider_specialization"] = *input.ConsiderSpecialization
	}
	if input.ConsiderShift != nil {
		updates["consider_shift"] = *input.ConsiderShift
	}
	if input.ConsiderSizeRange != nil {
		updates["consider_size_range"] = *input.ConsiderSizeRange
	}
	if input.ConsiderExchangeMapping != nil {
		updates["consider_exchange_mapping"] = *input.ConsiderExchangeMapping
	}
	if input.CooldownMinutes != nil {
		if *input.CooldownMinutes < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooldown minutes cannot be negative")
		}
		updates["cooldown_minutes"] = *input.CooldownMinutes
	}
	if len(updates) == 0 {
		return s.Config(ctx)
	}
	if input.UpdatedBy != uuid.Nil {
		updates["updated_by"] = input.UpdatedBy
	}

	if err := s.repo.UpdateConfig(ctx, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment config")
	}
	return s.Config(ctx)
}

func (s *service) ListLogs(ctx context.Context, params pagination.Params) ([]models.AssignmentLog, string, error) {
	entries, next, err := s.repo.ListLogs(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignment logs")
	}
	return entries, next, nil
}

// pick selects one operator from a non-empty pool.
func (s *service) pick(ctx context.Context, pool []models.Operator, strategy enums.AssignmentStrategy) models.Operator {
	if strategy == enums.AssignmentStrategyRoundRobin {
		return pool[s.nextRoundRobinIndex(ctx, pool)]
	}
	// least_workload: the pool is sorted ascending by active order count.
	return pool[0]
}

// nextRoundRobinIndex continues after the most recent assignee. When the last
// assignee is no longer in the pool, the rotation restarts at the front.
func (s *service) nextRoundRobinIndex(ctx context.Context, pool []models.Operator) int {
	last, err := s.repo.LastAssignment(ctx)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logger.Error(ctx, "load last assignment", err)
		}
		return 0
	}
	for i, op := range pool {
		if op.ID == last.AssignedTo {
			return (i + 1) % len(pool)
		}
	}
	return 0
}

func (s *service) skip(ctx context.Context, reason string) Decision {
	if s.metrics != nil {
		s.metrics.IncSkipped(reason)
	}
	s.logger.Info(s.logger.WithField(ctx, "reason", reason), "order not auto-assigned")
	return Decision{Assigned: false, Reason: reason}
}

func applyWorkloadCap(pool []models.Operator, max int) []models.Operator {
	if max <= 0 {
		return pool
	}
	capped := make([]models.Operator, 0, len(pool))
	for _, op := range pool {
		if op.ActiveOrderCount < max {
			capped = append(capped, op)
		}
	}
	return capped
}
