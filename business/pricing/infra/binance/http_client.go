package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/triarb-bot/business/pricing/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/circuitbreaker"
	"github.com/fd1az/triarb-bot/internal/httpclient"
	"github.com/fd1az/triarb-bot/internal/logger"
)

const (
	// Binance REST API endpoints
	BaseAPIURL = "https://api.binance.com"

	exchangeInfoEndpoint = "/api/v3/exchangeInfo"
	depthEndpoint        = "/api/v3/depth"
	orderEndpoint        = "/api/v3/order"

	// Default HTTP client settings
	httpTimeout = 10 * time.Second

	// rate limit usage header
	usedWeightHeader = "X-Mbx-Used-Weight-1m"
)

// HTTPClientConfig holds configuration for the Binance REST client.
type HTTPClientConfig struct {
	BaseURL    string        // API base URL (empty = default)
	APIKey     string        // required for order endpoints
	APISecret  string        // required for order endpoints
	Timeout    time.Duration // Request timeout
	RecvWindow time.Duration // signed request validity window
}

// DefaultHTTPClientConfig returns sensible defaults.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL:    BaseAPIURL,
		Timeout:    httpTimeout,
		RecvWindow: 5 * time.Second,
	}
}

// HTTPClient provides Binance REST API access: market metadata, depth
// fallback and order submission. All calls run through a circuit
// breaker so a failing venue stops being hammered.
type HTTPClient struct {
	client httpclient.Client
	config HTTPClientConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
	cb     *circuitbreaker.CircuitBreaker[*httpclient.Response]

	// onRateLimited is invoked with the reported 1m weight when the
	// venue signals throttling.
	onRateLimited func(usedWeight int)
}

// NewHTTPClient creates a new Binance REST client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("binance-rest")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &HTTPClient{
		client: client,
		config: cfg,
		logger: log,
		tracer: tracer,
		cb:     circuitbreaker.New[*httpclient.Response](cbCfg),
	}, nil
}

// OnRateLimited registers a callback for venue throttling responses.
func (c *HTTPClient) OnRateLimited(fn func(usedWeight int)) {
	c.onRateLimited = fn
}

// GetExchangeInfo fetches the full market list with trading filters.
func (c *HTTPClient) GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.exchange_info")
	defer span.End()

	var result ExchangeInfoResponse
	resp, err := c.cb.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "exchangeInfo")),
			httpclient.WithResponseErrorHandler(binanceErrorHandler),
		).
			SetResult(&result).
			Get(ctx, exchangeInfoEndpoint)
	})

	if err != nil {
		span.RecordError(err)
		c.handleVenueError(ctx, resp)
		return nil, apperror.New(apperror.CodeConnectivityError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch exchange info"))
	}

	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	span.SetAttributes(attribute.Int("symbols", len(result.Symbols)))

	return &result, nil
}

// GetDepth fetches the orderbook depth for a symbol via REST API.
// This is used as a fallback when WebSocket data is stale or unavailable.
func (c *HTTPClient) GetDepth(ctx context.Context, symbol string, limit int) (*DepthResponse, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.get_depth",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	// Validate limit (Binance accepts: 5, 10, 20, 50, 100, 500, 1000, 5000)
	validLimits := map[int]bool{5: true, 10: true, 20: true, 50: true, 100: true, 500: true, 1000: true, 5000: true}
	if !validLimits[limit] {
		limit = 5
	}

	var result DepthResponse
	resp, err := c.cb.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequestWithOptions(
			httpclient.WithLabels(
				httpclient.NewLabel("endpoint", "depth"),
				httpclient.NewLabel("symbol", symbol),
			),
			httpclient.WithResponseErrorHandler(binanceErrorHandler),
		).
			SetQueryParam("symbol", symbol).
			SetQueryParam("limit", strconv.Itoa(limit)).
			SetResult(&result).
			Get(ctx, depthEndpoint)
	})

	if err != nil {
		span.RecordError(err)
		c.handleVenueError(ctx, resp)
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch depth from REST API"))
	}

	if resp.IsError() {
		return nil, apperror.New(apperror.CodeOrderbookFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	span.SetAttributes(
		attribute.Int("bids", len(result.Bids)),
		attribute.Int("asks", len(result.Asks)),
		attribute.Int64("last_update_id", result.LastUpdateID),
	)

	c.logger.Debug(ctx, "fetched depth via HTTP",
		"symbol", symbol,
		"bids", len(result.Bids),
		"asks", len(result.Asks))

	return &result, nil
}

// SubmitMarketOrder submits a signed MARKET order and returns the
// fill derived from the FULL response.
func (c *HTTPClient) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.Fill, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.submit_order",
		trace.WithAttributes(
			attribute.String("symbol", req.Symbol),
			attribute.String("side", string(req.Side)),
		),
	)
	defer span.End()

	if c.config.APIKey == "" || c.config.APISecret == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("API credentials required for order submission"))
	}

	body := c.signedOrderBody(req)

	var result OrderResponse
	resp, err := c.cb.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequestWithOptions(
			httpclient.WithLabels(
				httpclient.NewLabel("endpoint", "order"),
				httpclient.NewLabel("symbol", req.Symbol),
			),
			httpclient.WithResponseErrorHandler(binanceErrorHandler),
		).
			SetHeader("X-MBX-APIKEY", c.config.APIKey).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(body).
			SetResult(&result).
			Post(ctx, orderEndpoint)
	})

	if err != nil {
		span.RecordError(err)
		c.handleVenueError(ctx, resp)
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("order %s %s", req.Side, req.Symbol)))
	}

	if resp.IsError() {
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	fill, err := result.toFill(req.Side)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("parsing order response"))
	}

	span.SetAttributes(
		attribute.String("status", result.Status),
		attribute.String("executed_qty", result.ExecutedQty),
	)

	return fill, nil
}

// signedOrderBody builds the ordered, HMAC-signed form body.
func (c *HTTPClient) signedOrderBody(req domain.OrderRequest) string {
	v := url.Values{}
	v.Set("symbol", req.Symbol)
	v.Set("side", string(req.Side))
	v.Set("type", "MARKET")
	if !req.QuoteQty.IsZero() {
		v.Set("quoteOrderQty", req.QuoteQty.String())
	} else {
		v.Set("quantity", req.Qty.String())
	}
	v.Set("newOrderRespType", "FULL")
	if c.config.RecvWindow > 0 {
		v.Set("recvWindow", strconv.FormatInt(c.config.RecvWindow.Milliseconds(), 10))
	}
	v.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	payload := v.Encode()
	mac := hmac.New(sha256.New, []byte(c.config.APISecret))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	return payload + "&signature=" + signature
}

// toFill converts an order response into a domain fill.
func (r *OrderResponse) toFill(side domain.OrderSide) (*domain.Fill, error) {
	executed, err := decimal.NewFromString(r.ExecutedQty)
	if err != nil {
		return nil, err
	}
	quoteQty, err := decimal.NewFromString(r.CummulativeQuoteQty)
	if err != nil {
		return nil, err
	}

	commission := decimal.Zero
	for _, f := range r.Fills {
		com, err := decimal.NewFromString(f.Commission)
		if err != nil {
			return nil, err
		}
		commission = commission.Add(com)
	}

	avgPrice := decimal.Zero
	if !executed.IsZero() {
		avgPrice = quoteQty.Div(executed)
	}

	return &domain.Fill{
		Symbol:     r.Symbol,
		Side:       side,
		FilledQty:  executed,
		QuoteQty:   quoteQty,
		AvgPrice:   avgPrice,
		Commission: commission,
		FilledAt:   time.UnixMilli(r.TransactTime),
	}, nil
}

// handleVenueError inspects a failed response for throttling signals.
func (c *HTTPClient) handleVenueError(ctx context.Context, resp *httpclient.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	if resp.StatusCode == 429 || resp.StatusCode == 418 {
		used, _ := strconv.Atoi(resp.Header.Get(usedWeightHeader))
		c.logger.Warn(ctx, "venue rate limit hit",
			"status", resp.StatusCode, "used_weight", used)
		if c.onRateLimited != nil {
			c.onRateLimited(used)
		}
	}
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
