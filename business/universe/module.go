// Package universe implements the pair universe bounded context.
package universe

import (
	"context"
	"time"

	pricingDI "github.com/fd1az/triarb-bot/business/pricing/di"
	"github.com/fd1az/triarb-bot/business/universe/app"
	universeDI "github.com/fd1az/triarb-bot/business/universe/di"
	"github.com/fd1az/triarb-bot/business/universe/infra/pathstore"
	"github.com/fd1az/triarb-bot/internal/config"
	"github.com/fd1az/triarb-bot/internal/di"
	"github.com/fd1az/triarb-bot/internal/logger"
	"github.com/fd1az/triarb-bot/internal/monolith"
)

// Module implements the universe bounded context.
type Module struct{}

// RegisterServices registers all universe services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// SQLite path store - private dependency
	di.RegisterToken(c, universeDI.PathStore, func(sr di.ServiceRegistry) app.PathStore {
		cfg := sr.Get("config").(*config.Config)

		store, err := pathstore.New(cfg.Universe.CachePath)
		if err != nil {
			panic("failed to open path store: " + err.Error())
		}
		return store
	})

	// UniverseService (public - exposed to other modules)
	di.RegisterToken(c, universeDI.UniverseService, func(sr di.ServiceRegistry) *app.UniverseService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewUniverseService(
			app.ServiceConfig{
				Stablecoins: cfg.Universe.Stablecoins,
				QuoteAssets: cfg.Universe.QuoteAssets,
				PruneCache:  cfg.Universe.PruneOldEntries,
			},
			pricingDI.GetPricingService(sr),
			universeDI.GetPathStore(sr),
			log,
		)
		if err != nil {
			panic("failed to create universe service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup loads the universe and subscribes the market data streams
// for every symbol the cycles touch. A failed initial load is fatal;
// a failed stream subscription retries in the background while quote
// fetches fall back to REST.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := universeDI.GetUniverseService(mono.Services())
	if err := svc.Load(ctx); err != nil {
		return err
	}

	set, err := svc.Snapshot()
	if err != nil {
		return err
	}

	provider := pricingDI.GetBinanceProvider(mono.Services())
	symbols := set.DistinctSymbols()

	if err := provider.SubscribeSymbols(ctx, symbols); err != nil {
		log.Warn(ctx, "stream subscription failed, will retry in background", "error", err)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
					if err := provider.SubscribeSymbols(ctx, symbols); err != nil {
						log.Warn(ctx, "stream subscription retry failed", "error", err)
					} else {
						log.Info(ctx, "market data streams connected", "symbols", len(symbols))
						return
					}
				}
			}
		}()
	}

	log.Info(ctx, "universe module started", "cycles", len(set.Cycles), "symbols", len(symbols))
	return nil
}
