// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/triarb-bot/business/pricing/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
)

// MarketData exposes venue market data: the tradable pair list and
// order book quotes.
type MarketData interface {
	// ListTradablePairs fetches the pairs currently open for trading,
	// with fee and filter metadata attached.
	ListTradablePairs(ctx context.Context) ([]universeDomain.Pair, error)

	// GetQuote returns the current order book view for a symbol.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// OrderGateway submits orders to the venue. The dry-run paper gateway
// implements the same interface; this is the only boundary where
// simulated and live trading differ.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.Fill, error)
}
