package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/api/responses"
	"github.com/rmagedov/p2pdesk-backend/api/validators"
	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/db/models"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

type adResponse struct {
	ID        uuid.UUID `json:"id"`
	AdNo      string    `json:"ad_no"`
	TradeType string    `json:"trade_type"`
	Asset     string    `json:"asset"`
	FiatUnit  string    `json:"fiat_unit"`
	Price     string    `json:"price"`
	Status    string    `json:"status"`
	SyncedAt  time.Time `json:"synced_at"`
}

func adToResponse(ad models.Advertisement) adResponse {
	return adResponse{
		ID:        ad.ID,
		AdNo:      ad.AdNo,
		TradeType: string(ad.TradeType),
		Asset:     ad.Asset,
		FiatUnit:  ad.FiatUnit,
		Price:     ad.Price.StringFixed(2),
		Status:    string(ad.Status),
		SyncedAt:  ad.SyncedAt,
	}
}

func writeAds(w http.ResponseWriter, ads []models.Advertisement) {
	out := make([]adResponse, 0, len(ads))
	for _, ad := range ads {
		out = append(out, adToResponse(ad))
	}
	responses.WriteSuccess(w, map[string]any{"ads": out})
}

// AdsList returns the mirrored ads without touching the exchange.
func AdsList(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ads, err := svc.ListAds(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeAds(w, ads)
	}
}

// AdsRefresh pulls the exchange ad list and returns the refreshed mirror.
func AdsRefresh(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ads, err := svc.RefreshAds(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeAds(w, ads)
	}
}

// AdsStatusRequest is the bulk online/offline toggle payload.
type AdsStatusRequest struct {
	AdNos  []string `json:"ad_nos" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required,oneof=online offline"`
}

// AdsSetStatus toggles ads on the exchange and mirrors the outcome.
func AdsSetStatus(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body AdsStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseAdStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		if err := svc.SetAdsStatus(r.Context(), body.AdNos, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"ads": len(body.AdNos), "status": body.Status})
	}
}
