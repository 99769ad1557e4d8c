// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/triarb-bot/business/pricing/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/ratelimit"
)

// PricingService fronts the venue market data behind the shared
// request budget. Every quote fetch waits for a rate limit token so
// concurrent scanners cannot exceed the venue's weight allowance.
type PricingService struct {
	provider MarketData
	limiter  *ratelimit.Limiter
}

// NewPricingService creates a PricingService with the given provider
// and request budget.
func NewPricingService(provider MarketData, limiter *ratelimit.Limiter) *PricingService {
	return &PricingService{
		provider: provider,
		limiter:  limiter,
	}
}

// ListTradablePairs fetches the tradable pair list.
func (s *PricingService) ListTradablePairs(ctx context.Context) ([]universeDomain.Pair, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.provider.ListTradablePairs(ctx)
}

// GetQuote fetches an order book quote, blocking on the budget first.
func (s *PricingService) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.provider.GetQuote(ctx, symbol)
}

// Budget returns the remaining request tokens.
func (s *PricingService) Budget() float64 {
	return s.limiter.Tokens()
}

// Throttle lowers the request rate after a venue rate limit response.
func (s *PricingService) Throttle(requestsPerMinute int) {
	s.limiter.SetLimit(requestsPerMinute)
}
