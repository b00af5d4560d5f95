package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "binance-test", Level: zerolog.Disabled, Output: io.Discard})
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.BinanceConfig{
		APIKey:     "test-key",
		APISecret:  "test-secret",
		BaseURL:    baseURL,
		RecvWindow: 5 * time.Second,
		Timeout:    5 * time.Second,
	}, testLogger(), WithClock(func() time.Time {
		return time.UnixMilli(1750000000000)
	}))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.BinanceConfig{APISecret: "s"}, testLogger())
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(config.BinanceConfig{APIKey: "k"}, testLogger())
	require.ErrorIs(t, err, errAPISecretRequired)

	_, err = NewClient(config.BinanceConfig{APIKey: "k", APISecret: "s"}, nil)
	require.ErrorIs(t, err, errLoggerRequired)
}

func TestSignedQueryCarriesValidSignature(t *testing.T) {
	client := testClient(t, "https://example.invalid")

	encoded := client.signedQuery(nil)
	parsed, err := url.ParseQuery(encoded)
	require.NoError(t, err)

	assert.Equal(t, "1750000000000", parsed.Get("timestamp"))
	assert.Equal(t, "5000", parsed.Get("recvWindow"))

	signature := parsed.Get("signature")
	require.NotEmpty(t, signature)

	unsigned := url.Values{}
	unsigned.Set("timestamp", parsed.Get("timestamp"))
	unsigned.Set("recvWindow", parsed.Get("recvWindow"))
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(unsigned.Encode()))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestSetAdsStatusSendsSignedBatch(t *testing.T) {
	var captured struct {
		header string
		query  url.Values
		body   adsUpdateStatusRequest
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.header = r.Header.Get(apiKeyHeader)
		captured.query = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "000000", "success": true})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	err := client.SetAdsStatus(context.Background(), []string{"ad-1", "ad-2"}, enums.AdStatusOffline)
	require.NoError(t, err)

	assert.Equal(t, "test-key", captured.header)
	assert.NotEmpty(t, captured.query.Get("signature"))
	assert.Equal(t, []string{"ad-1", "ad-2"}, captured.body.AdNos)
	assert.Equal(t, 4, captured.body.AdvStatus)
}

func TestSetAdsStatusEmptyIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty batch")
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	require.NoError(t, client.SetAdsStatus(context.Background(), nil, enums.AdStatusOffline))
}

func TestListAdsWalksPagination(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		var req adsListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		ads := make([]Ad, 0, adsPageSize)
		count := adsPageSize
		if req.Page == 2 {
			count = 3
		}
		for i := 0; i < count; i++ {
			ads = append(ads, Ad{AdNo: "ad", TradeType: "SELL", AdvStatus: 1})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "000000",
			"data": map[string]any{"data": ads, "total": adsPageSize + 3},
		})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	ads, err := client.ListAds(context.Background())
	require.NoError(t, err)
	assert.Len(t, ads, adsPageSize+3)
	assert.Equal(t, 2, pages)
	assert.True(t, ads[0].Online())
}

func TestDoSignedMapsExchangeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	_, err := client.ListPendingOrders(context.Background())
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeExchange, appErr.Code())
}

func TestDoSignedMapsBusinessErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "83001", "message": "ad does not exist"})
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	err := client.SetAdsStatus(context.Background(), []string{"missing"}, enums.AdStatusOnline)
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeExchange, appErr.Code())
}
