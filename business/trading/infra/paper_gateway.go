// Package infra contains infrastructure adapters for the trading context.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricingApp "github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/logger"
)

// Ensure PaperGateway implements the order port.
var _ pricingApp.OrderGateway = (*PaperGateway)(nil)

// PaperGateway simulates fills at the current top of book. It is the
// dry-run substitute for the live gateway behind the same port, so
// the execution state machine runs identically in both modes.
type PaperGateway struct {
	market  pricingApp.MarketData
	feeRate decimal.Decimal
	logger  logger.LoggerInterface
}

// NewPaperGateway creates a simulated gateway charging feeRate on the
// received asset, matching the venue's taker commission model.
func NewPaperGateway(market pricingApp.MarketData, feeRate decimal.Decimal, log logger.LoggerInterface) *PaperGateway {
	return &PaperGateway{
		market:  market,
		feeRate: feeRate,
		logger:  log,
	}
}

// SubmitOrder fills the order against the live quote without touching
// the venue. Fill quantity is capped by the top-of-book level.
func (g *PaperGateway) SubmitOrder(ctx context.Context, req pricingDomain.OrderRequest) (*pricingDomain.Fill, error) {
	quote, err := g.market.GetQuote(ctx, req.Symbol)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeOrderRejected,
			fmt.Sprintf("%s: no quote for simulated fill", req.Symbol))
	}

	var (
		price decimal.Decimal
		avail decimal.Decimal
	)
	if req.Side == pricingDomain.OrderSideBuy {
		ask, ok := quote.BestAsk()
		if !ok || ask.Price.IsZero() {
			return nil, apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContext(fmt.Sprintf("%s: empty ask side", req.Symbol)))
		}
		price, avail = ask.Price, ask.Qty
	} else {
		bid, ok := quote.BestBid()
		if !ok || bid.Price.IsZero() {
			return nil, apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContext(fmt.Sprintf("%s: empty bid side", req.Symbol)))
		}
		price, avail = bid.Price, bid.Qty
	}

	baseQty := req.Qty
	if baseQty.IsZero() {
		baseQty = req.QuoteQty.Div(price)
	}
	if baseQty.IsZero() || baseQty.IsNegative() {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext(fmt.Sprintf("%s: zero order quantity", req.Symbol)))
	}
	baseQty = decimal.Min(baseQty, avail)

	quoteQty := baseQty.Mul(price)

	// Commission in the received asset, like the live venue.
	var commission decimal.Decimal
	if req.Side == pricingDomain.OrderSideBuy {
		commission = baseQty.Mul(g.feeRate)
	} else {
		commission = quoteQty.Mul(g.feeRate)
	}

	fill := &pricingDomain.Fill{
		Symbol:     req.Symbol,
		Side:       req.Side,
		FilledQty:  baseQty,
		QuoteQty:   quoteQty,
		AvgPrice:   price,
		Commission: commission,
		FilledAt:   time.Now(),
	}

	g.logger.Debug(ctx, "simulated fill",
		"symbol", req.Symbol,
		"side", string(req.Side),
		"qty", baseQty.String(),
		"price", price.String())

	return fill, nil
}
