package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/api/middleware"
	"github.com/rmagedov/p2pdesk-backend/api/responses"
	"github.com/rmagedov/p2pdesk-backend/api/validators"
	"github.com/rmagedov/p2pdesk-backend/internal/roster"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

type operatorResponse struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name"`
	Role             string    `json:"role"`
	Specialization   string    `json:"specialization"`
	OnShift          bool      `json:"on_shift"`
	MinOrderSize     string    `json:"min_order_size"`
	MaxOrderSize     string    `json:"max_order_size"`
	ExchangeUIDs     []string  `json:"exchange_uids"`
	ActiveOrderCount int       `json:"active_order_count"`
	IsActive         bool      `json:"is_active"`
}

func operatorToResponse(op models.Operator) operatorResponse {
	return operatorResponse{
		ID:               op.ID,
		Email:            op.Email,
		DisplayName:      op.DisplayName,
		Role:             string(op.Role),
		Specialization:   string(op.Specialization),
		OnShift:          op.OnShift,
		MinOrderSize:     op.MinOrderSize.StringFixed(2),
		MaxOrderSize:     op.MaxOrderSize.StringFixed(2),
		ExchangeUIDs:     []string(op.ExchangeUIDs),
		ActiveOrderCount: op.ActiveOrderCount,
		IsActive:         op.IsActive,
	}
}

// OperatorsList returns the roster in workload order.
func OperatorsList(svc roster.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operators, err := svc.ListOperators(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]operatorResponse, 0, len(operators))
		for _, op := range operators {
			out = append(out, operatorToResponse(op))
		}
		responses.WriteSuccess(w, map[string]any{"operators": out})
	}
}

// ShiftRequest toggles an operator's shift flag.
type ShiftRequest struct {
	OnShift *bool `json:"on_shift" validate:"required"`
}

// OperatorShift toggles shift state. Operators may only toggle themselves;
// admins may toggle anyone.
func OperatorShift(svc roster.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, err := uuid.Parse(chi.URLParam(r, "operatorID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operator id"))
			return
		}

		callerID, err := operatorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := middleware.RoleFromContext(r.Context())
		if callerID != targetID && role != string(enums.OperatorRoleAdmin) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot toggle another operator's shift"))
			return
		}

		var body ShiftRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetShift(r.Context(), targetID, *body.OnShift); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"operator_id": targetID, "on_shift": *body.OnShift})
	}
}
