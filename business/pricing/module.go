// Package pricing implements the venue market data bounded context.
package pricing

import (
	"context"

	"github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDI "github.com/fd1az/triarb-bot/business/pricing/di"
	"github.com/fd1az/triarb-bot/business/pricing/infra/binance"
	"github.com/fd1az/triarb-bot/internal/config"
	"github.com/fd1az/triarb-bot/internal/di"
	"github.com/fd1az/triarb-bot/internal/logger"
	"github.com/fd1az/triarb-bot/internal/monolith"
	"github.com/fd1az/triarb-bot/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Binance provider - private, owns the WebSocket and REST clients
	di.RegisterToken(c, pricingDI.BinanceProvider, func(sr di.ServiceRegistry) *binance.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		providerCfg := binance.ProviderConfig{
			WebSocketURL: cfg.Binance.WebSocketURL,
			RESTURL:      cfg.Binance.RESTURL,
			APIKey:       cfg.Binance.APIKey,
			APISecret:    cfg.Binance.APISecret,
			DepthLevels:  cfg.Binance.DepthLimit,
			DepthSpeedMs: cfg.Binance.DepthSpeedMs,
			StaleTimeout: cfg.Binance.StaleTimeout,
			FeeRate:      cfg.Trading.FeeRateDecimal(),
		}

		provider, err := binance.NewProvider(providerCfg, log)
		if err != nil {
			panic("failed to create binance provider: " + err.Error())
		}
		return provider
	})

	// Port views over the provider
	di.RegisterToken(c, pricingDI.MarketData, func(sr di.ServiceRegistry) app.MarketData {
		return pricingDI.GetBinanceProvider(sr)
	})
	di.RegisterToken(c, pricingDI.OrderGateway, func(sr di.ServiceRegistry) app.OrderGateway {
		return pricingDI.GetBinanceProvider(sr)
	})

	// PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		limiter := ratelimit.New(cfg.Binance.RequestsPerMin)
		return app.NewPricingService(pricingDI.GetMarketData(sr), limiter)
	})

	return nil
}

// Startup wires the throttle feedback loop. The WebSocket connection
// itself is deferred until the pair universe yields the symbol set.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	provider := pricingDI.GetBinanceProvider(mono.Services())
	svc := pricingDI.GetPricingService(mono.Services())

	provider.OnRateLimited(func(usedWeight int) {
		reduced := cfg.Binance.RequestsPerMin / 2
		if reduced < 10 {
			reduced = 10
		}
		log.Warn(ctx, "venue throttling detected, reducing request rate",
			"used_weight", usedWeight, "requests_per_min", reduced)
		svc.Throttle(reduced)
	})

	log.Info(ctx, "pricing module started")
	return nil
}
