package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/api/responses"
	"github.com/rmagedov/p2pdesk-backend/api/validators"
	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
	"github.com/rmagedov/p2pdesk-backend/pkg/pagination"
)

type orderResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderNumber string     `json:"order_number"`
	TradeType   string     `json:"trade_type"`
	Asset       string     `json:"asset"`
	FiatUnit    string     `json:"fiat_unit"`
	Quantity    string     `json:"quantity"`
	Price       string     `json:"price"`
	TotalPrice  string     `json:"total_price"`
	Status      string     `json:"status"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func orderToResponse(order models.TradeOrder) orderResponse {
	return orderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		TradeType:   string(order.TradeType),
		Asset:       order.Asset,
		FiatUnit:    order.FiatUnit,
		Quantity:    order.Quantity.StringFixed(8),
		Price:       order.Price.StringFixed(2),
		TotalPrice:  order.TotalPrice.StringFixed(2),
		Status:      string(order.Status),
		AssignedTo:  order.AssignedTo,
		AssignedAt:  order.AssignedAt,
		CreatedAt:   order.CreatedAt,
	}
}

// OrdersList returns mirrored orders with optional status and assignee
// filters, newest first.
func OrdersList(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := trades.OrderFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("assigned_to")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assigned_to"))
				return
			}
			filters.AssignedTo = &id
		}
		unassigned, err := validators.ParseQueryBool(r, "unassigned", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Unassigned = unassigned

		orders, next, err := svc.ListOrders(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for _, order := range orders {
			out = append(out, orderToResponse(order))
		}
		responses.WriteSuccess(w, map[string]any{"orders": out, "next_cursor": next})
	}
}

// OrdersSync pulls the exchange feed on demand and reports what changed.
func OrdersSync(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.SyncOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
