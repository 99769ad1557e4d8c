// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/triarb-bot/business/pricing/app"
	"github.com/fd1az/triarb-bot/business/pricing/infra/binance"
	"github.com/fd1az/triarb-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
	MarketData     = di.NewToken[app.MarketData]("pricing.MarketData")
	OrderGateway   = di.NewToken[app.OrderGateway]("pricing.OrderGateway")
)

// Private dependency tokens - internal to pricing module
var (
	BinanceProvider = di.NewToken[*binance.Provider]("pricing:binanceProvider")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetMarketData(c di.ServiceRegistry) app.MarketData {
	return di.GetToken(c, MarketData)
}

// GetOrderGateway returns the live venue gateway. Dry-run wiring swaps
// this for the paper gateway in the trading module.
func GetOrderGateway(c di.ServiceRegistry) app.OrderGateway {
	return di.GetToken(c, OrderGateway)
}

func GetBinanceProvider(c di.ServiceRegistry) *binance.Provider {
	return di.GetToken(c, BinanceProvider)
}
