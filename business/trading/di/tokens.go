// Package di contains dependency injection tokens for the trading context.
package di

import (
	"github.com/fd1az/triarb-bot/business/trading/app"
	"github.com/fd1az/triarb-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("trading.Orchestrator")
)

// Private dependency tokens - internal to trading module
var (
	Scanner  = di.NewToken[*app.Scanner]("trading:scanner")
	Executor = di.NewToken[*app.Executor]("trading:executor")
	Reporter = di.NewToken[app.Reporter]("trading:reporter")
	AuditLog = di.NewToken[app.AuditLog]("trading:auditLog")
)

// Helper functions for type-safe access
func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetAuditLog(c di.ServiceRegistry) app.AuditLog {
	return di.GetToken(c, AuditLog)
}
