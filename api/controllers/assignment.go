package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/api/responses"
	"github.com/rmagedov/p2pdesk-backend/api/validators"
	"github.com/rmagedov/p2pdesk-backend/internal/assignment"
	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
	"github.com/rmagedov/p2pdesk-backend/pkg/pagination"
)

// AssignmentConfigUpdateRequest carries partial config edits; nil fields are
// left untouched.
type AssignmentConfigUpdateRequest struct {
	IsEnabled               *bool   `json:"is_enabled"`
	Strategy                *string `json:"strategy" validate:"omitempty,oneof=least_workload round_robin"`
	MaxOrdersPerOperator    *int    `json:"max_orders_per_operator" validate:"omitempty,min=0"`
	ConsiderSpecialization  *bool   `json:"consider_specialization"`
	ConsiderShift           *bool   `json:"consider_shift"`
	ConsiderSizeRange       *bool   `json:"consider_size_range"`
	ConsiderExchangeMapping *bool   `json:"consider_exchange_mapping"`
	CooldownMinutes         *int    `json:"cooldown_minutes" validate:"omitempty,min=0"`
}

type assignmentConfigResponse struct {
	IsEnabled               bool       `json:"is_enabled"`
	Strategy                string     `json:"strategy"`
	MaxOrdersPerOperator    int        `json:"max_orders_per_operator"`
	ConsiderSpecialization  bool       `json:"consider_specialization"`
	ConsiderShift           bool       `json:"consider_shift"`
	ConsiderSizeRange       bool       `json:"consider_size_range"`
	ConsiderExchangeMapping bool       `json:"consider_exchange_mapping"`
	CooldownMinutes         int        `json:"cooldown_minutes"`
	UpdatedBy               *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

func configResponse(cfg *models.AutoAssignmentConfig) assignmentConfigResponse {
	return assignmentConfigResponse{
		IsEnabled:               cfg.IsEnabled,
		Strategy:                string(cfg.Strategy),
		MaxOrdersPerOperator:    cfg.MaxOrdersPerOperator,
		ConsiderSpecialization:  cfg.ConsiderSpecialization,
		ConsiderShift:           cfg.ConsiderShift,
		ConsiderSizeRange:       cfg.ConsiderSizeRange,
		ConsiderExchangeMapping: cfg.ConsiderExchangeMapping,
		CooldownMinutes:         cfg.CooldownMinutes,
		UpdatedBy:               cfg.UpdatedBy,
		UpdatedAt:               cfg.UpdatedAt,
	}
}

// AssignmentConfig returns the desk-wide auto-assignment settings.
func AssignmentConfig(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.Config(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, configResponse(cfg))
	}
}

// AssignmentConfigUpdate applies admin edits to the auto-assignment settings.
func AssignmentConfigUpdate(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body AssignmentConfigUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adminID, err := operatorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := assignment.UpdateConfigInput{
			IsEnabled:               body.IsEnabled,
			MaxOrdersPerOperator:    body.MaxOrdersPerOperator,
			ConsiderSpecialization:  body.ConsiderSpecialization,
			ConsiderShift:           body.ConsiderShift,
			ConsiderSizeRange:       body.ConsiderSizeRange,
			ConsiderExchangeMapping: body.ConsiderExchangeMapping,
			CooldownMinutes:         body.CooldownMinutes,
			UpdatedBy:               adminID,
		}
		if body.Strategy != nil {
			strategy, err := enums.ParseAssignmentStrategy(*body.Strategy)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid strategy"))
				return
			}
			input.Strategy = &strategy
		}

		cfg, err := svc.UpdateConfig(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, configResponse(cfg))
	}
}

// AssignmentRun routes every open unassigned order through the engine once.
func AssignmentRun(assignSvc assignment.Service, tradesSvc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inputs, err := tradesSvc.ListUnassignedInputs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignSvc.BulkAssign(r.Context(), inputs))
	}
}

type assignmentLogsResponse struct {
	Logs       []assignmentLogEntry `json:"logs"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type assignmentLogEntry struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"order_number"`
	AssignedTo    uuid.UUID `json:"assigned_to"`
	StrategyUsed  string    `json:"strategy_used"`
	EligibleCount int       `json:"eligible_count"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// AssignmentLogs returns the routing audit trail, newest first.
func AssignmentLogs(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, next, err := svc.ListLogs(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := assignmentLogsResponse{NextCursor: next, Logs: make([]assignmentLogEntry, 0, len(logs))}
		for _, entry := range logs {
			resp.Logs = append(resp.Logs, assignmentLogEntry{
				ID:            entry.ID,
				OrderNumber:   entry.OrderNumber,
				AssignedTo:    entry.AssignedTo,
				StrategyUsed:  string(entry.StrategyUsed),
				EligibleCount: entry.EligibleCount,
				Reason:        entry.Reason,
				CreatedAt:     entry.CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}
