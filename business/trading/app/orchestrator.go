package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/triarb-bot/internal/logger"
)

// OrchestratorConfig holds the scan loop settings.
type OrchestratorConfig struct {
	ScanInterval time.Duration
}

// Orchestrator drives the scan, rank and execute loop. Execution is
// single-flight: while one opportunity runs, scan passes keep going
// but their candidates are reported only, never executed.
type Orchestrator struct {
	config   OrchestratorConfig
	scanner  *Scanner
	executor *Executor
	reporter Reporter
	logger   logger.LoggerInterface
	tracer   trace.Tracer

	executing atomic.Bool
	wg        sync.WaitGroup
}

// NewOrchestrator wires the loop.
func NewOrchestrator(cfg OrchestratorConfig, scanner *Scanner, executor *Executor, reporter Reporter, log logger.LoggerInterface) *Orchestrator {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 3 * time.Second
	}
	return &Orchestrator{
		config:   cfg,
		scanner:  scanner,
		executor: executor,
		reporter: reporter,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// Start begins the scan loop. It returns immediately; Run blocks.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.reporter.Start(ctx); err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx)
	}()

	o.logger.Info(ctx, "orchestrator started", "scan_interval", o.config.ScanInterval)
	return nil
}

// Wait blocks until the loop and any in-flight execution finish. An
// execution past its first submission always reaches a terminal state
// before Wait returns; abandoning it mid-sequence would leave an
// unhedged position.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Stop shuts the reporter down after the loop has drained.
func (o *Orchestrator) Stop() error {
	o.wg.Wait()
	return o.reporter.Stop()
}

func (o *Orchestrator) run(ctx context.Context) {
	ticker := time.NewTicker(o.config.ScanInterval)
	defer ticker.Stop()

	// First pass immediately rather than waiting a full interval.
	o.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info(context.WithoutCancel(ctx), "scan loop stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			o.pass(ctx)
		}
	}
}

// pass runs one scan and hands the top candidate to the executor if
// none is already running.
func (o *Orchestrator) pass(ctx context.Context) {
	ctx, span := o.tracer.Start(ctx, "trading.pass")
	defer span.End()

	candidates, stats, err := o.scanner.Scan(ctx)
	if err != nil {
		o.logger.Warn(ctx, "scan pass failed", "error", err)
		return
	}

	o.reporter.UpdateScanStats(stats)
	for _, opp := range candidates {
		o.reporter.ReportOpportunity(opp)
	}

	if len(candidates) == 0 {
		return
	}
	if ctx.Err() != nil {
		// Shutdown already requested: report findings, start nothing.
		return
	}
	if !o.executing.CompareAndSwap(false, true) {
		o.logger.Debug(ctx, "execution in flight, holding candidates",
			"candidates", len(candidates))
		return
	}

	top := candidates[0]
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.executing.Store(false)

		// Detach from the shutdown signal so a started execution runs
		// to a terminal state.
		execCtx := context.WithoutCancel(ctx)
		result := o.executor.Execute(execCtx, top)
		o.reporter.ReportExecution(result)
	}()
}
