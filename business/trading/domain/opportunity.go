// Package domain contains the trading context value objects: priced
// opportunities and execution results.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
)

// LegPlan is the executable plan for one hop of a cycle: the price it
// was evaluated at and the amounts that flow through it.
type LegPlan struct {
	Hop      universeDomain.Hop
	Price    decimal.Decimal // ask on buys, bid on sells
	Spend    decimal.Decimal // amount of Hop.From consumed
	Receive  decimal.Decimal // amount of Hop.To produced, fee deducted
	BaseQty  decimal.Decimal // order quantity in base asset terms
	Notional decimal.Decimal // BaseQty * Price, in quote asset terms
	Capped   bool            // book depth limited this leg
}

// Opportunity is a cycle priced against a consistent set of quotes.
type Opportunity struct {
	Cycle       universeDomain.Cycle
	Legs        [3]LegPlan
	Notional    decimal.Decimal // configured starting amount
	FinalAmount decimal.Decimal // stablecoin amount after the third leg
	NetYield    decimal.Decimal // pure rate product, fees included
	LimitingLeg int             // index of the depth-capped leg, -1 if none
	PricedAt    time.Time
}

// Profitable reports whether the net yield clears 1 + margin.
func (o *Opportunity) Profitable(margin decimal.Decimal) bool {
	return o.NetYield.GreaterThan(decimal.NewFromInt(1).Add(margin))
}

// ProfitPct returns the net yield as a percentage gain.
func (o *Opportunity) ProfitPct() decimal.Decimal {
	return o.NetYield.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
}

// PriceCycle evaluates a cycle against live quotes, starting from
// notional units of the cycle's stablecoin. Buys execute at the best
// ask, sells at the best bid, and each hop's fee rate is deducted from
// the received amount. Executable amounts are capped by the quantity
// available at the top of book; the rate product itself ignores depth
// so NetYield is reproducible from prices and fees alone.
//
// Returns CodeStaleQuote when a quote is missing a side and
// CodeInsufficientLiquidity when any leg's executable notional falls
// below the pair's minimum.
func PriceCycle(cycle universeDomain.Cycle, quotes map[string]*pricingDomain.Quote, notional decimal.Decimal) (*Opportunity, error) {
	if notional.IsNegative() || notional.IsZero() {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext(fmt.Sprintf("notional %s", notional)))
	}

	one := decimal.NewFromInt(1)
	opp := &Opportunity{
		Cycle:       cycle,
		Notional:    notional,
		NetYield:    one,
		LimitingLeg: -1,
		PricedAt:    time.Now(),
	}

	amount := notional
	for i, hop := range cycle.Hops {
		quote, ok := quotes[hop.Pair.Symbol]
		if !ok {
			return nil, apperror.New(apperror.CodeStaleQuote,
				apperror.WithContext(fmt.Sprintf("no quote for %s", hop.Pair.Symbol)))
		}

		leg, rate, err := priceHop(hop, quote, amount)
		if err != nil {
			return nil, err
		}

		if !hop.Pair.MeetsMinNotional(leg.BaseQty, leg.Price) {
			return nil, apperror.New(apperror.CodeInsufficientLiquidity,
				apperror.WithContext(fmt.Sprintf("%s leg %d notional %s below minimum %s",
					cycle.String(), i+1, leg.Notional, hop.Pair.MinNotional)))
		}

		opp.Legs[i] = leg
		opp.NetYield = opp.NetYield.Mul(rate)
		if leg.Capped && opp.LimitingLeg == -1 {
			opp.LimitingLeg = i
		}
		amount = leg.Receive
	}

	opp.FinalAmount = amount
	return opp, nil
}

// priceHop evaluates one hop with amount units of hop.From in hand.
// The returned rate is the per-unit conversion factor, fee included.
func priceHop(hop universeDomain.Hop, quote *pricingDomain.Quote, amount decimal.Decimal) (LegPlan, decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	feeKeep := one.Sub(hop.Pair.FeeRate)

	leg := LegPlan{Hop: hop}

	switch hop.Side {
	case universeDomain.SideBuy:
		ask, ok := quote.BestAsk()
		if !ok {
			return leg, decimal.Decimal{}, apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContext(fmt.Sprintf("%s: empty ask side", hop.Pair.Symbol)))
		}
		if ask.Price.IsZero() {
			return leg, decimal.Decimal{}, apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContext(fmt.Sprintf("%s: zero ask price", hop.Pair.Symbol)))
		}

		// Spend quote asset, receive base. Depth caps the base quantity.
		wantBase := amount.Div(ask.Price)
		base := decimal.Min(wantBase, ask.Qty)
		base = hop.Pair.RoundQty(base)
		if base.IsZero() {
			return leg, decimal.Decimal{}, apperror.New(apperror.CodeInsufficientLiquidity,
				apperror.WithContext(fmt.Sprintf("%s: executable quantity rounds to zero", hop.Pair.Symbol)))
		}

		leg.Price = ask.Price
		leg.BaseQty = base
		leg.Notional = base.Mul(ask.Price)
		leg.Spend = leg.Notional
		leg.Receive = base.Mul(feeKeep)
		leg.Capped = wantBase.GreaterThan(ask.Qty)

		return leg, feeKeep.Div(ask.Price), nil

	case universeDomain.SideSell:
		bid, ok := quote.BestBid()
		if !ok {
			return leg, decimal.Decimal{}, apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContext(fmt.Sprintf("%s: empty bid side", hop.Pair.Symbol)))
		}

		// Spend base asset, receive quote. Depth caps the base quantity.
		base := decimal.Min(amount, bid.Qty)
		base = hop.Pair.RoundQty(base)
		if base.IsZero() {
			return leg, decimal.Decimal{}, apperror.New(apperror.CodeInsufficientLiquidity,
				apperror.WithContext(fmt.Sprintf("%s: executable quantity rounds to zero", hop.Pair.Symbol)))
		}

		leg.Price = bid.Price
		leg.BaseQty = base
		leg.Notional = base.Mul(bid.Price)
		leg.Spend = base
		leg.Receive = leg.Notional.Mul(feeKeep)
		leg.Capped = amount.GreaterThan(bid.Qty)

		return leg, bid.Price.Mul(feeKeep), nil

	default:
		return leg, decimal.Decimal{}, apperror.New(apperror.CodeInvalidPairData,
			apperror.WithContext(fmt.Sprintf("%s: unknown side %q", hop.Pair.Symbol, hop.Side)))
	}
}
