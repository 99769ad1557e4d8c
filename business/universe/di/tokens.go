// Package di contains dependency injection tokens for the universe context.
package di

import (
	"github.com/fd1az/triarb-bot/business/universe/app"
	"github.com/fd1az/triarb-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	UniverseService = di.NewToken[*app.UniverseService]("universe.UniverseService")
)

// Private dependency tokens - internal to universe module
var (
	PathStore = di.NewToken[app.PathStore]("universe:pathStore")
)

// Helper functions for type-safe access
func GetUniverseService(c di.ServiceRegistry) *app.UniverseService {
	return di.GetToken(c, UniverseService)
}

func GetPathStore(c di.ServiceRegistry) app.PathStore {
	return di.GetToken(c, PathStore)
}
