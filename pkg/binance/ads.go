package binance

import (
	"context"
	"net/http"

	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
)

const (
	adsListPath         = "/sapi/v1/c2c/ads/listWithPagination"
	adsUpdateStatusPath = "/sapi/v1/c2c/ads/updateStatus"

	adsPageSize = 100
)

// advStatus values on the exchange wire.
var advStatusCodes = map[enums.AdStatus]int{
	enums.AdStatusOnline:  1,
	enums.AdStatusOffline: 4,
}

// Ad is a merchant advertisement as returned by the exchange.
type Ad struct {
	AdNo      string `json:"advNo"`
	TradeType string `json:"tradeType"`
	Asset     string `json:"asset"`
	FiatUnit  string `json:"fiatUnit"`
	Price     string `json:"price"`
	AdvStatus int    `json:"advStatus"`
}

// Online reports whether the ad is visible on the exchange.
func (a Ad) Online() bool {
	return a.AdvStatus == advStatusCodes[enums.AdStatusOnline]
}

type adsListRequest struct {
	Page int `json:"page"`
	Rows int `json:"rows"`
}

type adsListResponse struct {
	Ads   []Ad `json:"data"`
	Total int  `json:"total"`
}

// ListAds returns all of the merchant's advertisements, walking pagination.
func (c *Client) ListAds(ctx context.Context) ([]Ad, error) {
	var ads []Ad
	for page := 1; ; page++ {
		var resp adsListResponse
		body := adsListRequest{Page: page, Rows: adsPageSize}
		if err := c.doSigned(ctx, http.MethodPost, adsListPath, nil, body, &resp); err != nil {
			return nil, err
		}
		ads = append(ads, resp.Ads...)
		if len(resp.Ads) < adsPageSize || len(ads) >= resp.Total {
			break
		}
	}
	return ads, nil
}

type adsUpdateStatusRequest struct {
	AdNos     []string `json:"advNos"`
	AdvStatus int      `json:"advStatus"`
}

// SetAdsStatus flips the given ads to the requested status in one batch call.
// A nil or empty adNos slice is a no-op.
func (c *Client) SetAdsStatus(ctx context.Context, adNos []string, status enums.AdStatus) error {
	if len(adNos) == 0 {
		return nil
	}
	code, ok := advStatusCodes[status]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown ad status "+status.String())
	}

	body := adsUpdateStatusRequest{AdNos: adNos, AdvStatus: code}
	return c.doSigned(ctx, http.MethodPost, adsUpdateStatusPath, nil, body, nil)
}
