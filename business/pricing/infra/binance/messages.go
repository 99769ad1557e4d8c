// Package binance implements the venue market data and order gateway for Binance.
package binance

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// WebSocket request/response messages

// WSRequest is a WebSocket subscription request.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is a WebSocket subscription response.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent is the base wrapper for all combined stream messages.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// PartialDepthEvent represents a partial book depth snapshot.
// Stream: <symbol>@depth5, @depth10, @depth20 (with optional @100ms/@1000ms speed)
// Note: Symbol is not in the JSON payload - it must be set from the stream name.
type PartialDepthEvent struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // Top bids [[price, qty], ...]
	Asks         [][]string `json:"asks"` // Top asks [[price, qty], ...]
	Symbol       string     `json:"-"`    // Set from stream name, not in payload
}

// BookTickerEvent represents best bid/ask update (real-time).
// Stream: <symbol>@bookTicker
type BookTickerEvent struct {
	UpdateID int64  `json:"u"` // Order book updateId
	Symbol   string `json:"s"` // Symbol
	BidPrice string `json:"b"` // Best bid price
	BidQty   string `json:"B"` // Best bid qty
	AskPrice string `json:"a"` // Best ask price
	AskQty   string `json:"A"` // Best ask qty
}

// ParseBidPrice parses the best bid price.
func (e *BookTickerEvent) ParseBidPrice() (decimal.Decimal, error) {
	return decimal.NewFromString(e.BidPrice)
}

// ParseAskPrice parses the best ask price.
func (e *BookTickerEvent) ParseAskPrice() (decimal.Decimal, error) {
	return decimal.NewFromString(e.AskPrice)
}

// ParseBidQty parses the best bid quantity.
func (e *BookTickerEvent) ParseBidQty() (decimal.Decimal, error) {
	return decimal.NewFromString(e.BidQty)
}

// ParseAskQty parses the best ask quantity.
func (e *BookTickerEvent) ParseAskQty() (decimal.Decimal, error) {
	return decimal.NewFromString(e.AskQty)
}

// OrderbookLevel represents a price level in the orderbook.
type OrderbookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// ParseOrderbookLevels parses raw orderbook levels from Binance format.
func ParseOrderbookLevels(raw [][]string) ([]OrderbookLevel, error) {
	levels := make([]OrderbookLevel, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, err
		}
		qty, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, err
		}
		// Skip zero quantity levels (removed from book)
		if qty.IsZero() {
			continue
		}
		levels = append(levels, OrderbookLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

// REST API responses

// DepthResponse is the REST API response for orderbook depth.
type DepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // [[price, qty], ...]
	Asks         [][]string `json:"asks"` // [[price, qty], ...]
}

// ToPartialDepthEvent converts a DepthResponse to a PartialDepthEvent.
// This allows the HTTP response to be processed the same way as WebSocket data.
func (d *DepthResponse) ToPartialDepthEvent(symbol string) *PartialDepthEvent {
	return &PartialDepthEvent{
		LastUpdateID: d.LastUpdateID,
		Bids:         d.Bids,
		Asks:         d.Asks,
		Symbol:       symbol,
	}
}

// ExchangeInfoResponse is the /api/v3/exchangeInfo response, reduced
// to the fields the pair universe needs.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes one market in exchangeInfo.
type SymbolInfo struct {
	Symbol     string         `json:"symbol"`
	Status     string         `json:"status"` // "TRADING" when open
	BaseAsset  string         `json:"baseAsset"`
	QuoteAsset string         `json:"quoteAsset"`
	Filters    []SymbolFilter `json:"filters"`
}

// SymbolFilter is one entry of a symbol's filters array. Only the
// fields for LOT_SIZE, PRICE_FILTER and NOTIONAL are mapped.
type SymbolFilter struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize,omitempty"`
	TickSize    string `json:"tickSize,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
}

// IsTrading reports whether the market is open for trading.
func (s *SymbolInfo) IsTrading() bool {
	return s.Status == "TRADING"
}

// Filter returns the filter with the given type, if present.
func (s *SymbolInfo) Filter(filterType string) (SymbolFilter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return SymbolFilter{}, false
}

// OrderResponse is the /api/v3/order FULL response.
type OrderResponse struct {
	Symbol              string      `json:"symbol"`
	OrderID             int64       `json:"orderId"`
	Status              string      `json:"status"`
	ExecutedQty         string      `json:"executedQty"`
	CummulativeQuoteQty string      `json:"cummulativeQuoteQty"`
	TransactTime        int64       `json:"transactTime"`
	Fills               []OrderFill `json:"fills"`
}

// OrderFill is one fill within an order response.
type OrderFill struct {
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}

// Stream name helpers

// DepthStream returns the partial book depth stream name for a symbol.
func DepthStream(symbol string, levels, speedMs int) string {
	return lowercase(symbol) + "@depth" + strconv.Itoa(levels) + "@" + strconv.Itoa(speedMs) + "ms"
}

// BookTickerStream returns the bookTicker stream name for a symbol.
func BookTickerStream(symbol string) string {
	return lowercase(symbol) + "@bookTicker"
}

func lowercase(s string) string {
	// Simple ASCII lowercase for symbols
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 32
		}
	}
	return string(b)
}
