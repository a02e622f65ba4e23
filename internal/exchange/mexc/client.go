package mexc

import (
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
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"token-sniper/internal/config"
	"token-sniper/internal/core"
)

type AuthType int

const (
	AuthNone AuthType = iota
	AuthSigned
)

// Client talks to the MEXC spot REST API (Binance-compatible /api/v3
// surface). Trading calls are HMAC-SHA256 signed; all parameters travel in
// the query string, write operations included.
type Client struct {
	apiKey            string
	apiSecret         string
	baseURL           string
	clientOrderPrefix string
	recvWindow        time.Duration
	httpClient        *http.Client

	mu         sync.Mutex
	rulesCache map[string]core.Rules
}

type Options struct {
	APIKey            string
	APISecret         string
	BaseURL           string
	ClientOrderPrefix string
	RecvWindowMs      int64
	HTTPTimeoutSec    int64
}

// NewClient builds a trading client. Both credentials are required: without
// the secret no request can be signed, so this is fatal up front.
func NewClient(cfg config.ExchangeConfig) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("api_key/api_secret required")
	}
	return NewClientWithOptions(Options{
		APIKey:         cfg.APIKey,
		APISecret:      cfg.APISecret,
		BaseURL:        cfg.RestBaseURL,
		RecvWindowMs:   cfg.RecvWindowMs,
		HTTPTimeoutSec: cfg.HTTPTimeoutSec,
	}), nil
}

func NewClientWithOptions(opts Options) *Client {
	timeout := 10 * time.Second
	if opts.HTTPTimeoutSec > 0 {
		timeout = time.Duration(opts.HTTPTimeoutSec) * time.Second
	}
	prefix := strings.ToLower(strings.TrimSpace(opts.ClientOrderPrefix))
	if prefix == "" {
		prefix = "snipe"
	}
	return &Client{
		apiKey:            opts.APIKey,
		apiSecret:         opts.APISecret,
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		clientOrderPrefix: prefix,
		recvWindow:        time.Duration(opts.RecvWindowMs) * time.Millisecond,
		httpClient:        &http.Client{Timeout: timeout},
		rulesCache:        make(map[string]core.Rules),
	}
}

func (c *Client) Name() string { return "mexc" }

// Rules resolves the instrument filters for symbol, fetching exchangeInfo at
// most once per symbol per run.
func (c *Client) Rules(ctx context.Context, symbol string) (core.Rules, error) {
	if symbol == "" {
		return core.Rules{}, errors.New("symbol is required")
	}
	c.mu.Lock()
	if rules, ok := c.rulesCache[symbol]; ok {
		c.mu.Unlock()
		return rules, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/exchangeInfo", params, AuthNone)
	if err != nil {
		return core.Rules{}, err
	}
	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Rules{}, err
	}
	if len(resp.Symbols) == 0 {
		return core.Rules{}, fmt.Errorf("%w: %s", core.ErrSymbolNotFound, symbol)
	}
	rules := parseRules(resp.Symbols[0])
	c.mu.Lock()
	c.rulesCache[symbol] = rules
	c.mu.Unlock()
	return rules, nil
}

// TickerPrice fetches the last traded price. A missing or non-positive price
// maps to core.ErrNoQuoteYet; transport and API failures come back as their
// own error values so callers can tell the two apart.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/ticker/price", params, AuthNone)
	if err != nil {
		return decimal.Zero, err
	}
	var resp tickerPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Price == "" {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrNoQuoteYet, symbol)
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrNoQuoteYet, symbol)
	}
	if price.Cmp(decimal.Zero) <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrNoQuoteYet, symbol)
	}
	return price, nil
}

// PlaceOrder submits a new order. Every order carries a client-generated id
// so an ambiguous failure can be recovered without submitting a duplicate.
func (c *Client) PlaceOrder(ctx context.Context, order core.Order) (core.Order, error) {
	if order.Symbol == "" {
		return core.Order{}, errors.New("symbol required")
	}
	if order.Qty.Cmp(decimal.Zero) <= 0 {
		return core.Order{}, errors.New("invalid order qty")
	}
	if order.Type == core.Limit && order.Price.Cmp(decimal.Zero) <= 0 {
		return core.Order{}, errors.New("invalid order price")
	}
	if order.ClientID == "" {
		order.ClientID = newClientOrderID(c.clientOrderPrefix)
	}

	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", string(order.Type))
	params.Set("quantity", order.Qty.String())
	params.Set("newClientOrderId", order.ClientID)
	if order.Type == core.Limit {
		params.Set("timeInForce", "GTC")
		params.Set("price", order.Price.String())
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v3/order", params, AuthSigned)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateOrder) {
			if existing, qerr := c.queryOrderByClientID(ctx, order.Symbol, order.ClientID); qerr == nil {
				return existing, nil
			}
		}
		return core.Order{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, err
	}
	order.ID = resp.OrderID
	if resp.Status != "" {
		order.Status = core.OrderStatus(resp.Status)
	} else {
		order.Status = core.OrderNew
	}
	order.CreatedAt = time.Now()
	return order, nil
}

// QueryOrder fetches current order state by exchange-assigned id.
func (c *Client) QueryOrder(ctx context.Context, symbol, orderID string) (core.Order, error) {
	if symbol == "" || orderID == "" {
		return core.Order{}, errors.New("symbol and orderID required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	return c.queryOrder(ctx, params)
}

func (c *Client) queryOrderByClientID(ctx context.Context, symbol, clientID string) (core.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("origClientOrderId", clientID)
	return c.queryOrder(ctx, params)
}

func (c *Client) queryOrder(ctx context.Context, params url.Values) (core.Order, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/order", params, AuthSigned)
	if err != nil {
		return core.Order{}, err
	}
	var resp orderQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Order{}, err
	}
	price, _ := decimal.NewFromString(resp.Price)
	qty, _ := decimal.NewFromString(resp.OrigQty)
	order := core.Order{
		ID:       resp.OrderID,
		ClientID: resp.ClientOrderID,
		Symbol:   resp.Symbol,
		Side:     core.Side(resp.Side),
		Type:     core.OrderType(resp.Type),
		Price:    price,
		Qty:      qty,
		Status:   core.OrderStatus(resp.Status),
	}
	if resp.Time > 0 {
		order.CreatedAt = time.UnixMilli(resp.Time)
	}
	return order, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, auth AuthType) ([]byte, error) {
	if auth == AuthSigned {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		if c.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
		}
		params.Set("signature", sign(c.apiSecret, params.Encode()))
	}
	urlStr := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		urlStr += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return nil, err
	}
	if auth == AuthSigned {
		req.Header.Set("X-MEXC-APIKEY", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func parseAPIError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return wrapAPIError(apiErr.Code, apiErr.Msg)
	}
	return fmt.Errorf("mexc http error %d: %s", status, strings.TrimSpace(string(body)))
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

var orderSeq uint64

func newClientOrderID(prefix string) string {
	tsPart := strconv.FormatInt(time.Now().UnixNano(), 36)
	seqPart := strconv.FormatUint(atomic.AddUint64(&orderSeq, 1), 36)
	suffix := tsPart + "-" + seqPart
	maxPrefix := 32 - 1 - len(suffix)
	if len(prefix) > maxPrefix {
		prefix = prefix[:maxPrefix]
	}
	return prefix + "-" + suffix
}
