// Package trading implements the scan, rank and execute bounded context.
package trading

import (
	"context"

	pricingApp "github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDI "github.com/fd1az/triarb-bot/business/pricing/di"
	"github.com/fd1az/triarb-bot/business/trading/app"
	tradingDI "github.com/fd1az/triarb-bot/business/trading/di"
	"github.com/fd1az/triarb-bot/business/trading/infra"
	"github.com/fd1az/triarb-bot/business/trading/infra/auditstore"
	universeDI "github.com/fd1az/triarb-bot/business/universe/di"
	"github.com/fd1az/triarb-bot/internal/config"
	"github.com/fd1az/triarb-bot/internal/di"
	"github.com/fd1az/triarb-bot/internal/logger"
	"github.com/fd1az/triarb-bot/internal/monolith"
	"github.com/fd1az/triarb-bot/pkg/ui"
)

// Module implements the trading bounded context.
type Module struct{}

// RegisterServices registers all trading services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Execution audit store - private, shares the db file with the path cache
	di.RegisterToken(c, tradingDI.AuditLog, func(sr di.ServiceRegistry) app.AuditLog {
		cfg := sr.Get("config").(*config.Config)

		store, err := auditstore.New(cfg.Universe.CachePath)
		if err != nil {
			panic("failed to open audit store: " + err.Error())
		}
		return store
	})

	// Reporter - TUI or console depending on run mode
	di.RegisterToken(c, tradingDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)

		if cfg.Trading.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, tradingDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		scanner, err := app.NewScanner(
			app.ScannerConfig{
				Notional:         cfg.Trading.TradeNotionalDecimal(),
				ProfitMargin:     cfg.Trading.ProfitMarginDecimal(),
				MaxParallelFetch: cfg.Trading.MaxParallelFetch,
				FetchTimeout:     cfg.Binance.RequestTimeout,
				QuoteFreshness:   cfg.Trading.QuoteFreshness,
				MaxOpportunities: cfg.Trading.MaxOpportunities,
			},
			universeDI.GetUniverseService(sr),
			pricingDI.GetPricingService(sr),
			log,
		)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return scanner
	})

	di.RegisterToken(c, tradingDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// Dry-run fills against the live book without touching the venue
		var gateway pricingApp.OrderGateway
		if cfg.Trading.DryRun {
			gateway = infra.NewPaperGateway(
				pricingDI.GetMarketData(sr),
				cfg.Trading.FeeRateDecimal(),
				log,
			)
		} else {
			gateway = pricingDI.GetOrderGateway(sr)
		}

		executor, err := app.NewExecutor(
			app.ExecutorConfig{
				Slippage:        cfg.Trading.SlippageDecimal(),
				LegTimeout:      cfg.Trading.LegTimeout,
				UnwindOnPartial: cfg.Trading.UnwindOnPartial,
				DryRun:          cfg.Trading.DryRun,
			},
			gateway,
			pricingDI.GetPricingService(sr),
			tradingDI.GetAuditLog(sr),
			log,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	// Orchestrator (public - owns the scan loop)
	di.RegisterToken(c, tradingDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewOrchestrator(
			app.OrchestratorConfig{ScanInterval: cfg.Trading.ScanInterval},
			tradingDI.GetScanner(sr),
			tradingDI.GetExecutor(sr),
			tradingDI.GetReporter(sr),
			log,
		)
	})

	return nil
}

// Startup starts the scan loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	orch := tradingDI.GetOrchestrator(mono.Services())
	if err := orch.Start(ctx); err != nil {
		return err
	}

	// Surface stream connectivity on the operator display.
	provider := pricingDI.GetBinanceProvider(mono.Services())
	reporter := tradingDI.GetReporter(mono.Services())
	provider.OnConnectionState(func(connected bool) {
		reporter.UpdateConnectionStatus("Binance", connected, 0)
	})
	reporter.UpdateConnectionStatus("Binance", provider.Connected(), 0)

	if cfg.Trading.TUIMode {
		ui.Send(ui.DryRunMsg{DryRun: cfg.Trading.DryRun})
	}

	if !cfg.Trading.DryRun {
		log.Warn(ctx, "live trading enabled, orders will be submitted to the venue")
	}

	log.Info(ctx, "trading module started",
		"dry_run", cfg.Trading.DryRun,
		"scan_interval", cfg.Trading.ScanInterval,
		"notional", cfg.Trading.TradeNotional,
	)
	return nil
}
