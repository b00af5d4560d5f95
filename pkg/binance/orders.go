package binance

import (
	"context"
	"net/http"
)

const (
	ordersListPath = "/sapi/v1/c2c/orderMatch/listOrders"

	ordersPageSize = 100
)

// Order statuses on the exchange wire. Orders in any of these states still
// need operator attention.
var pendingOrderStatuses = []string{"PENDING", "PAID", "APPEALING"}

// Order is a C2C trade order as returned by the exchange.
type Order struct {
	OrderNumber     string `json:"orderNumber"`
	AdNo            string `json:"advNo"`
	TradeType       string `json:"tradeType"`
	Asset           string `json:"asset"`
	FiatUnit        string `json:"fiat"`
	Amount          string `json:"amount"`
	Price           string `json:"unitPrice"`
	TotalPrice      string `json:"totalPrice"`
	OrderStatus     string `json:"orderStatus"`
	CounterpartyUID string `json:"counterPartUid"`
	CreateTime      int64  `json:"createTime"`
}

type ordersListRequest struct {
	Page          int      `json:"page"`
	Rows          int      `json:"rows"`
	OrderStatuses []string `json:"orderStatusList,omitempty"`
}

type ordersListResponse struct {
	Orders []Order `json:"data"`
	Total  int     `json:"total"`
}

// ListPendingOrders returns every open order the desk is a counterparty to,
// walking pagination.
func (c *Client) ListPendingOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	for page := 1; ; page++ {
		var resp ordersListResponse
		body := ordersListRequest{
			Page:          page,
			Rows:          ordersPageSize,
			OrderStatuses: pendingOrderStatuses,
		}
		if err := c.doSigned(ctx, http.MethodPost, ordersListPath, nil, body, &resp); err != nil {
			return nil, err
		}
		orders = append(orders, resp.Orders...)
		if len(resp.Orders) < ordersPageSize || len(orders) >= resp.Total {
			break
		}
	}
	return orders, nil
}
