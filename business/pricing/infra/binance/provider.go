package binance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/triarb-bot/business/pricing/app"
	"github.com/fd1az/triarb-bot/business/pricing/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/logger"
)

// Ensure Provider implements the pricing ports.
var (
	_ app.MarketData   = (*Provider)(nil)
	_ app.OrderGateway = (*Provider)(nil)
)

// ProviderConfig holds configuration for the Binance provider.
type ProviderConfig struct {
	WebSocketURL string          // WebSocket base URL (empty = default)
	RESTURL      string          // REST API base URL (empty = default)
	APIKey       string          // required for live order submission
	APISecret    string          // required for live order submission
	DepthLevels  int             // Partial depth levels (5, 10 or 20)
	DepthSpeedMs int             // Depth update speed (100 or 1000)
	StaleTimeout time.Duration   // How long before book data is considered stale
	FeeRate      decimal.Decimal // Taker fee applied to every pair
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		DepthLevels:  5,
		DepthSpeedMs: 100,
		StaleTimeout: 5 * time.Second,
		FeeRate:      decimal.RequireFromString("0.001"),
	}
}

// bookState holds the current order book view for one symbol.
type bookState struct {
	bids      []domain.Level
	asks      []domain.Level
	updatedAt time.Time
	mu        sync.RWMutex
}

// Provider implements MarketData and OrderGateway against Binance.
// Book data arrives over WebSocket streams; the REST API serves the
// pair list, order submission and a depth fallback for stale books.
type Provider struct {
	config     ProviderConfig
	logger     logger.LoggerInterface
	httpClient *HTTPClient

	client   *Client // WebSocket client, created on SubscribeSymbols
	clientMu sync.Mutex

	onConnState func(connected bool)
	stateMu     sync.RWMutex

	books   map[string]*bookState
	booksMu sync.RWMutex

	tracer trace.Tracer
}

// NewProvider creates a new Binance provider. The WebSocket connection
// is deferred until SubscribeSymbols, since the symbol set is only
// known after the pair universe is loaded.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	if cfg.DepthLevels == 0 {
		cfg.DepthLevels = 5
	}
	if cfg.DepthSpeedMs == 0 {
		cfg.DepthSpeedMs = 100
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 5 * time.Second
	}

	httpCfg := DefaultHTTPClientConfig()
	if cfg.RESTURL != "" {
		httpCfg.BaseURL = cfg.RESTURL
	}
	httpCfg.APIKey = cfg.APIKey
	httpCfg.APISecret = cfg.APISecret

	httpClient, err := NewHTTPClient(httpCfg, log)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     cfg,
		logger:     log,
		httpClient: httpClient,
		books:      make(map[string]*bookState),
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// OnRateLimited registers a callback for venue throttling responses.
func (p *Provider) OnRateLimited(fn func(usedWeight int)) {
	p.httpClient.OnRateLimited(fn)
}

// OnConnectionState registers a callback for stream connectivity
// transitions. Safe to call before or after SubscribeSymbols.
func (p *Provider) OnConnectionState(fn func(connected bool)) {
	p.stateMu.Lock()
	p.onConnState = fn
	p.stateMu.Unlock()
}

func (p *Provider) notifyConnState(connected bool) {
	p.stateMu.RLock()
	fn := p.onConnState
	p.stateMu.RUnlock()
	if fn != nil {
		fn(connected)
	}
}

// Connected reports whether the stream connection is up.
func (p *Provider) Connected() bool {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()
	return p.client != nil && p.client.IsConnected()
}

// ListTradablePairs fetches exchange info and returns the pairs open
// for trading, with fee and filter metadata attached.
func (p *Provider) ListTradablePairs(ctx context.Context) ([]universeDomain.Pair, error) {
	ctx, span := p.tracer.Start(ctx, "binance.list_tradable_pairs")
	defer span.End()

	info, err := p.httpClient.GetExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}

	pairs := make([]universeDomain.Pair, 0, len(info.Symbols))
	skipped := 0
	for _, s := range info.Symbols {
		if !s.IsTrading() {
			continue
		}

		pair, err := universeDomain.NewPair(
			s.Symbol, s.BaseAsset, s.QuoteAsset,
			p.config.FeeRate,
			filterDecimal(s, "NOTIONAL", func(f SymbolFilter) string { return f.MinNotional }),
			filterDecimal(s, "LOT_SIZE", func(f SymbolFilter) string { return f.StepSize }),
			filterDecimal(s, "PRICE_FILTER", func(f SymbolFilter) string { return f.TickSize }),
		)
		if err != nil {
			skipped++
			p.logger.Debug(ctx, "skipping malformed pair", "symbol", s.Symbol, "error", err)
			continue
		}
		pairs = append(pairs, pair)
	}

	span.SetAttributes(
		attribute.Int("pairs", len(pairs)),
		attribute.Int("skipped", skipped),
	)

	p.logger.Info(ctx, "tradable pairs loaded", "pairs", len(pairs), "skipped", skipped)

	return pairs, nil
}

// filterDecimal extracts a decimal field from a symbol filter, falling
// back to MIN_NOTIONAL for venues still reporting the legacy filter.
func filterDecimal(s SymbolInfo, filterType string, get func(SymbolFilter) string) decimal.Decimal {
	f, ok := s.Filter(filterType)
	if !ok && filterType == "NOTIONAL" {
		f, ok = s.Filter("MIN_NOTIONAL")
	}
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(get(f))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SubscribeSymbols connects the WebSocket streams for the given
// symbols. On the first call it dials the combined stream endpoint;
// later calls add subscriptions for symbols not yet streamed.
func (p *Provider) SubscribeSymbols(ctx context.Context, symbols []string) error {
	ctx, span := p.tracer.Start(ctx, "binance.subscribe_symbols",
		trace.WithAttributes(attribute.Int("symbols", len(symbols))),
	)
	defer span.End()

	if len(symbols) == 0 {
		return nil
	}

	// Register book state for every symbol up front so stream events
	// arriving during connect have a home.
	p.booksMu.Lock()
	fresh := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, ok := p.books[sym]; !ok {
			p.books[sym] = &bookState{}
			fresh = append(fresh, sym)
		}
	}
	p.booksMu.Unlock()

	p.clientMu.Lock()
	defer p.clientMu.Unlock()

	if p.client == nil {
		clientCfg := ClientConfig{
			BaseURL:      p.config.WebSocketURL,
			Symbols:      symbols,
			DepthLevels:  p.config.DepthLevels,
			DepthSpeedMs: p.config.DepthSpeedMs,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		if clientCfg.BaseURL == "" {
			clientCfg.BaseURL = BaseWSURL
		}

		client, err := NewClient(clientCfg, p.logger)
		if err != nil {
			return err
		}
		client.OnBookTicker(p.handleBookTicker)
		client.OnDepthUpdate(p.handleDepthUpdate)
		client.OnConnectionState(p.notifyConnState)

		if err := client.Connect(ctx); err != nil {
			return err
		}
		p.client = client
		return nil
	}

	if len(fresh) == 0 {
		return nil
	}

	streams := make([]string, 0, len(fresh)*2)
	for _, sym := range fresh {
		streams = append(streams, BookTickerStream(sym))
		streams = append(streams, DepthStream(sym, p.config.DepthLevels, p.config.DepthSpeedMs))
	}
	return p.client.Subscribe(ctx, streams...)
}

// Close shuts down the WebSocket connection.
func (p *Provider) Close() error {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// GetQuote returns the current order book view for a symbol. Stale or
// empty books fall back to the REST depth endpoint.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "binance.get_quote",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	p.booksMu.RLock()
	state, ok := p.books[symbol]
	p.booksMu.RUnlock()

	if !ok {
		// Symbol never subscribed. Serve it via REST so ad hoc lookups
		// still work, without registering a stream.
		span.SetAttributes(attribute.String("source", "http_unsubscribed"))
		return p.getQuoteViaHTTP(ctx, symbol, nil)
	}

	state.mu.RLock()
	stale := time.Since(state.updatedAt) > p.config.StaleTimeout
	empty := len(state.bids) == 0 || len(state.asks) == 0
	state.mu.RUnlock()

	if stale || empty {
		span.SetAttributes(
			attribute.Bool("stale", stale),
			attribute.String("source", "http_fallback"),
		)
		p.logger.Debug(ctx, "book stale, using REST fallback", "symbol", symbol)
		return p.getQuoteViaHTTP(ctx, symbol, state)
	}

	state.mu.RLock()
	defer state.mu.RUnlock()

	quote := &domain.Quote{
		Symbol:     symbol,
		Bids:       make([]domain.Level, len(state.bids)),
		Asks:       make([]domain.Level, len(state.asks)),
		CapturedAt: state.updatedAt,
	}
	copy(quote.Bids, state.bids)
	copy(quote.Asks, state.asks)

	span.SetAttributes(
		attribute.Int("bids", len(quote.Bids)),
		attribute.Int("asks", len(quote.Asks)),
		attribute.String("source", "websocket"),
	)

	return quote, nil
}

// getQuoteViaHTTP fetches depth via REST and refreshes the cached
// state when the symbol is subscribed.
func (p *Provider) getQuoteViaHTTP(ctx context.Context, symbol string, state *bookState) (*domain.Quote, error) {
	depth, err := p.httpClient.GetDepth(ctx, symbol, p.config.DepthLevels)
	if err != nil {
		return nil, err
	}

	bids, err := toLevels(depth.Bids)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: parsing bid levels", symbol)))
	}
	asks, err := toLevels(depth.Asks)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: parsing ask levels", symbol)))
	}

	now := time.Now()
	if state != nil {
		state.mu.Lock()
		state.bids = bids
		state.asks = asks
		state.updatedAt = now
		state.mu.Unlock()
	}

	quote := &domain.Quote{
		Symbol:     symbol,
		Bids:       make([]domain.Level, len(bids)),
		Asks:       make([]domain.Level, len(asks)),
		CapturedAt: now,
	}
	copy(quote.Bids, bids)
	copy(quote.Asks, asks)

	return quote, nil
}

// SubmitOrder submits a live market order to the venue.
func (p *Provider) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.Fill, error) {
	return p.httpClient.SubmitMarketOrder(ctx, req)
}

// handleBookTicker updates the top of book for a symbol.
func (p *Provider) handleBookTicker(event *BookTickerEvent) {
	p.booksMu.RLock()
	state, ok := p.books[event.Symbol]
	p.booksMu.RUnlock()

	if !ok {
		return
	}

	bidPrice, err := event.ParseBidPrice()
	if err != nil {
		return
	}
	bidQty, err := event.ParseBidQty()
	if err != nil {
		return
	}
	askPrice, err := event.ParseAskPrice()
	if err != nil {
		return
	}
	askQty, err := event.ParseAskQty()
	if err != nil {
		return
	}

	state.mu.Lock()
	if len(state.bids) > 0 {
		state.bids[0] = domain.Level{Price: bidPrice, Qty: bidQty}
	} else {
		state.bids = []domain.Level{{Price: bidPrice, Qty: bidQty}}
	}
	if len(state.asks) > 0 {
		state.asks[0] = domain.Level{Price: askPrice, Qty: askQty}
	} else {
		state.asks = []domain.Level{{Price: askPrice, Qty: askQty}}
	}
	state.updatedAt = time.Now()
	state.mu.Unlock()
}

// handleDepthUpdate replaces the book with the partial depth snapshot.
func (p *Provider) handleDepthUpdate(event *PartialDepthEvent) {
	p.booksMu.RLock()
	state, ok := p.books[event.Symbol]
	p.booksMu.RUnlock()

	if !ok {
		return
	}

	bids, err := toLevels(event.Bids)
	if err != nil {
		p.logger.Debug(context.Background(), "bad bid levels", "symbol", event.Symbol, "error", err)
		return
	}
	asks, err := toLevels(event.Asks)
	if err != nil {
		p.logger.Debug(context.Background(), "bad ask levels", "symbol", event.Symbol, "error", err)
		return
	}

	state.mu.Lock()
	state.bids = bids
	state.asks = asks
	state.updatedAt = time.Now()
	state.mu.Unlock()
}

// toLevels converts raw [price, qty] string pairs to domain levels.
func toLevels(raw [][]string) ([]domain.Level, error) {
	parsed, err := ParseOrderbookLevels(raw)
	if err != nil {
		return nil, err
	}
	levels := make([]domain.Level, 0, len(parsed))
	for _, l := range parsed {
		levels = append(levels, domain.Level{Price: l.Price, Qty: l.Quantity})
	}
	return levels, nil
}
