// Package domain contains the pair universe value objects.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/triarb-bot/internal/apperror"
)

// Side represents the direction of a trade on a pair.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the reverse side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Pair is a tradable market on the venue. Base is the asset being
// bought or sold, Quote is the asset it is priced in.
type Pair struct {
	Symbol      string
	Base        string
	Quote       string
	FeeRate     decimal.Decimal
	MinNotional decimal.Decimal
	QtyStep     decimal.Decimal
	PriceStep   decimal.Decimal
}

// NewPair validates and constructs a Pair.
func NewPair(symbol, base, quote string, feeRate, minNotional, qtyStep, priceStep decimal.Decimal) (Pair, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if symbol == "" || base == "" || quote == "" {
		return Pair{}, apperror.New(apperror.CodeInvalidPairData,
			apperror.WithContext(fmt.Sprintf("empty symbol or asset in %q", symbol)))
	}
	if base == quote {
		return Pair{}, apperror.New(apperror.CodeInvalidPairData,
			apperror.WithContext(fmt.Sprintf("%s: base equals quote", symbol)))
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Pair{}, apperror.New(apperror.CodeInvalidPairData,
			apperror.WithContext(fmt.Sprintf("%s: fee rate %s out of range", symbol, feeRate)))
	}
	if qtyStep.IsNegative() || priceStep.IsNegative() {
		return Pair{}, apperror.New(apperror.CodeInvalidPairData,
			apperror.WithContext(fmt.Sprintf("%s: negative step size", symbol)))
	}

	return Pair{
		Symbol:      symbol,
		Base:        base,
		Quote:       quote,
		FeeRate:     feeRate,
		MinNotional: minNotional,
		QtyStep:     qtyStep,
		PriceStep:   priceStep,
	}, nil
}

// String returns the pair in BASE/QUOTE notation.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// RoundQty rounds a quantity down to the pair's quantity step.
func (p Pair) RoundQty(qty decimal.Decimal) decimal.Decimal {
	if p.QtyStep.IsZero() {
		return qty
	}
	steps := qty.Div(p.QtyStep).Floor()
	return steps.Mul(p.QtyStep)
}

// MeetsMinNotional reports whether a trade of qty at price clears the
// pair's minimum notional.
func (p Pair) MeetsMinNotional(qty, price decimal.Decimal) bool {
	if p.MinNotional.IsZero() {
		return true
	}
	return qty.Mul(price).GreaterThanOrEqual(p.MinNotional)
}
