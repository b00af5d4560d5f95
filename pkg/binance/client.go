package binance

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

const (
	defaultBaseURL             = "https://api.binance.com"
	defaultRecvWindow          = 5 * time.Second
	apiKeyHeader               = "X-MBX-APIKEY"
	errorBodyReadLimit   int64 = 2048
	successCode                = "000000"
)

var (
	errAPIKeyRequired    = errors.New("binance api key is required")
	errAPISecretRequired = errors.New("binance api secret is required")
	errLoggerRequired    = errors.New("binance logger is required")
)

// Client wraps the Binance C2C merchant endpoints the desk depends on, with
// centralized signing, logging, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  []byte
	recvWindow time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides the timestamp source used when signing requests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the Binance client from configuration.
func NewClient(cfg config.BinanceConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	apiSecret := strings.TrimSpace(cfg.APISecret)
	if apiSecret == "" {
		return nil, errAPISecretRequired
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		apiSecret:  []byte(apiSecret),
		recvWindow: cfg.RecvWindow,
		logger:     logg,
		now:        time.Now,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	}
	if client.recvWindow <= 0 {
		client.recvWindow = defaultRecvWindow
	}
	if client.httpClient.Timeout <= 0 {
		client.httpClient.Timeout = 10 * time.Second
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// sign returns the hex HMAC-SHA256 signature over the canonical encoded query.
// url.Values.Encode sorts keys, which keeps the signature deterministic.
func (c *Client) sign(query url.Values) string {
	mac := hmac.New(sha256.New, c.apiSecret)
	mac.Write([]byte(query.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedQuery stamps the query with timestamp and recvWindow and appends the
// signature, which the exchange requires as the last parameter.
func (c *Client) signedQuery(extra url.Values) string {
	query := url.Values{}
	for key, values := range extra {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	query.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	query.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
	return query.Encode() + "&signature=" + c.sign(query)
}

// envelope is the standard SAPI C2C response wrapper.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

// doSigned executes a signed request and decodes the data payload into out.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "binance client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, c.signedQuery(params))
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "build request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx = c.logger.WithFields(ctx, map[string]any{"path": path, "method": method})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "exchange request failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "execute exchange request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		c.logger.Error(ctx, "exchange returned non-200", err)
		return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "exchange request failed")
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "decode exchange response")
	}
	if env.Code != "" && env.Code != successCode {
		err := fmt.Errorf("code %s: %s", env.Code, env.Message)
		c.logger.Error(ctx, "exchange rejected request", err)
		return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "exchange request failed")
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeExchange, err, "decode exchange payload")
		}
	}
	return nil
}
