// Package domain contains the pricing context value objects.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level is one price level of an order book side.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Quote is a point-in-time view of a pair's order book. Bids are
// sorted descending, asks ascending. The first level of each side is
// the top of book.
type Quote struct {
	Symbol     string
	Bids       []Level
	Asks       []Level
	CapturedAt time.Time
}

// BestBid returns the top bid. ok is false on an empty side.
func (q *Quote) BestBid() (Level, bool) {
	if len(q.Bids) == 0 {
		return Level{}, false
	}
	return q.Bids[0], true
}

// BestAsk returns the top ask. ok is false on an empty side.
func (q *Quote) BestAsk() (Level, bool) {
	if len(q.Asks) == 0 {
		return Level{}, false
	}
	return q.Asks[0], true
}

// Stale reports whether the quote is older than the freshness window.
func (q *Quote) Stale(window time.Duration) bool {
	return time.Since(q.CapturedAt) > window
}

// OrderSide is the venue-facing trade direction.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderRequest is a market order to submit. Exactly one of Qty (base
// quantity) or QuoteQty (spend this much quote) is set.
type OrderRequest struct {
	Symbol   string
	Side     OrderSide
	Qty      decimal.Decimal
	QuoteQty decimal.Decimal
}

// Fill is the result of a filled (or partially filled) order.
type Fill struct {
	Symbol     string
	Side       OrderSide
	FilledQty  decimal.Decimal // base quantity filled
	QuoteQty   decimal.Decimal // quote amount exchanged
	AvgPrice   decimal.Decimal
	Commission decimal.Decimal // in the received asset
	FilledAt   time.Time
}
