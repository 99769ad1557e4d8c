package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pricingApp "github.com/fd1az/triarb-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
	"github.com/fd1az/triarb-bot/business/trading/domain"
	universeDomain "github.com/fd1az/triarb-bot/business/universe/domain"
	"github.com/fd1az/triarb-bot/internal/apperror"
	"github.com/fd1az/triarb-bot/internal/logger"
)

// ExecutorConfig holds execution engine settings.
type ExecutorConfig struct {
	Slippage        decimal.Decimal // max adverse move vs the priced quote, as a fraction
	LegTimeout      time.Duration   // per-leg deadline covering re-validation and submission
	UnwindOnPartial bool            // reverse filled legs after a partial execution
	DryRun          bool            // recorded on results; the gateway decides actual behavior
}

type executorMetrics struct {
	executions metric.Int64Counter
	partials   metric.Int64Counter
	legTime    metric.Float64Histogram
}

// Executor runs the three-leg state machine for one opportunity. Legs
// are strictly sequential; each submission depends on the prior fill.
// The gateway is the single live/dry-run substitution boundary.
type Executor struct {
	config  ExecutorConfig
	gateway pricingApp.OrderGateway
	pricing *pricingApp.PricingService
	audit   AuditLog
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor wires the executor. audit may be nil.
func NewExecutor(cfg ExecutorConfig, gateway pricingApp.OrderGateway, pricing *pricingApp.PricingService, audit AuditLog, log logger.LoggerInterface) (*Executor, error) {
	if cfg.LegTimeout <= 0 {
		cfg.LegTimeout = 5 * time.Second
	}

	e := &Executor{
		config:  cfg,
		gateway: gateway,
		pricing: pricing,
		audit:   audit,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.executions, err = meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Terminal executions by status"),
	)
	if err != nil {
		return err
	}

	e.metrics.partials, err = meter.Int64Counter(
		"partial_executions_total",
		metric.WithDescription("Executions leaving an unbalanced position"),
	)
	if err != nil {
		return err
	}

	e.metrics.legTime, err = meter.Float64Histogram(
		"execution_leg_seconds",
		metric.WithDescription("Per-leg execution time"),
	)
	return err
}

// Execute runs an opportunity to a terminal state and records the
// result in the audit log. It never returns early on leg failure: the
// result always carries every leg attempted.
func (e *Executor) Execute(ctx context.Context, opp *domain.Opportunity) *domain.ExecutionResult {
	ctx, span := e.tracer.Start(ctx, "trading.execute",
		trace.WithAttributes(
			attribute.String("cycle", opp.Cycle.String()),
			attribute.String("net_yield", opp.NetYield.String()),
		),
	)
	defer span.End()

	result := &domain.ExecutionResult{
		Opportunity: opp,
		FailedLeg:   -1,
		StartAmount: opp.Legs[0].Spend,
		DryRun:      e.config.DryRun,
		StartedAt:   time.Now(),
	}

	e.transition(ctx, domain.StatePending)

	amount := opp.Legs[0].Spend
	for i, plan := range opp.Legs {
		legStart := time.Now()

		leg, received := e.runLeg(ctx, i, plan, amount)
		result.Legs = append(result.Legs, leg)
		e.metrics.legTime.Record(ctx, time.Since(legStart).Seconds())

		if leg.Failed() {
			result.FailedLeg = i
			if i == 0 && leg.FilledQty.IsZero() {
				result.Status = domain.StatusAborted
				e.transition(ctx, domain.StateAborted)
			} else {
				result.Status = domain.StatusPartial
				e.transition(ctx, domain.StateAborted)
			}
			break
		}

		e.transition(ctx, domain.StateLegFilled(i+1))
		amount = received
	}

	if result.FailedLeg == -1 {
		result.Status = domain.StatusCompleted
		result.FinalAmount = amount
		e.transition(ctx, domain.StateCompleted)
	}

	if result.Status == domain.StatusPartial && e.config.UnwindOnPartial {
		result.Unwound = e.unwind(ctx, result)
	}

	result.FinishedAt = time.Now()
	e.finalize(ctx, result, span)
	return result
}

// runLeg re-validates the book, submits the order and converts the
// fill into the amount carried into the next leg.
func (e *Executor) runLeg(ctx context.Context, index int, plan domain.LegPlan, amount decimal.Decimal) (domain.LegResult, decimal.Decimal) {
	leg := domain.LegResult{
		Index:     index,
		Symbol:    plan.Hop.Pair.Symbol,
		Side:      orderSide(plan.Hop.Side),
		PlanPrice: plan.Price,
	}

	legCtx, cancel := context.WithTimeout(ctx, e.config.LegTimeout)
	defer cancel()

	if err := e.checkSlippage(legCtx, plan); err != nil {
		leg.FailureCode = string(apperror.GetCode(err))
		e.logger.Warn(ctx, "leg aborted before submission",
			"leg", index+1, "symbol", leg.Symbol, "error", err)
		return leg, decimal.Zero
	}

	req := pricingDomain.OrderRequest{
		Symbol: plan.Hop.Pair.Symbol,
		Side:   leg.Side,
	}
	if plan.Hop.Side == universeDomain.SideBuy {
		// Spend the quote amount in hand; the venue derives the base
		// quantity at execution price.
		req.QuoteQty = amount
	} else {
		req.Qty = plan.Hop.Pair.RoundQty(amount)
	}

	leg.SubmittedAt = time.Now()
	e.transition(ctx, domain.StateLegSubmitted(index+1))

	fill, err := e.gateway.SubmitOrder(legCtx, req)
	if err != nil {
		leg.FailureCode = string(apperror.GetCode(err))
		e.logger.Error(ctx, "leg submission failed",
			"leg", index+1, "symbol", leg.Symbol, "error", err)
		return leg, decimal.Zero
	}

	leg.FilledQty = fill.FilledQty
	leg.QuoteQty = fill.QuoteQty
	leg.AvgPrice = fill.AvgPrice
	leg.Fee = fill.Commission
	leg.FilledAt = fill.FilledAt

	if fill.FilledQty.IsZero() {
		leg.FailureCode = string(apperror.CodeOrderRejected)
		return leg, decimal.Zero
	}

	// Commission is charged in the received asset on both sides.
	var received decimal.Decimal
	if plan.Hop.Side == universeDomain.SideBuy {
		received = fill.FilledQty.Sub(fill.Commission)
	} else {
		received = fill.QuoteQty.Sub(fill.Commission)
	}
	return leg, received
}

// checkSlippage fetches a fresh top of book and rejects the leg when
// the executable price moved against the plan beyond tolerance.
func (e *Executor) checkSlippage(ctx context.Context, plan domain.LegPlan) error {
	quote, err := e.pricing.GetQuote(ctx, plan.Hop.Pair.Symbol)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeStaleQuote,
			fmt.Sprintf("%s: re-validation fetch failed", plan.Hop.Pair.Symbol))
	}

	one := decimal.NewFromInt(1)

	if plan.Hop.Side == universeDomain.SideBuy {
		ask, ok := quote.BestAsk()
		if !ok {
			return apperror.New(apperror.CodeInvalidOrderbook,
				apperror.WithContext(fmt.Sprintf("%s: empty ask side", plan.Hop.Pair.Symbol)))
		}
		limit := plan.Price.Mul(one.Add(e.config.Slippage))
		if ask.Price.GreaterThan(limit) {
			return apperror.New(apperror.CodeSlippageExceeded,
				apperror.WithContext(fmt.Sprintf("%s: ask %s above limit %s",
					plan.Hop.Pair.Symbol, ask.Price, limit)))
		}
		return nil
	}

	bid, ok := quote.BestBid()
	if !ok {
		return apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithContext(fmt.Sprintf("%s: empty bid side", plan.Hop.Pair.Symbol)))
	}
	limit := plan.Price.Mul(one.Sub(e.config.Slippage))
	if bid.Price.LessThan(limit) {
		return apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext(fmt.Sprintf("%s: bid %s below limit %s",
				plan.Hop.Pair.Symbol, bid.Price, limit)))
	}
	return nil
}

// unwind reverses the filled legs in reverse order, best effort. Each
// reversal trades back at current market price, which may itself lose
// money; failures are recorded and left for the operator.
func (e *Executor) unwind(ctx context.Context, result *domain.ExecutionResult) []domain.LegResult {
	filled := result.FilledLegs()
	unwound := make([]domain.LegResult, 0, len(filled))

	for i := len(filled) - 1; i >= 0; i-- {
		leg := filled[i]

		req := pricingDomain.OrderRequest{Symbol: leg.Symbol}
		if leg.Side == pricingDomain.OrderSideBuy {
			req.Side = pricingDomain.OrderSideSell
			req.Qty = leg.FilledQty.Sub(leg.Fee)
		} else {
			req.Side = pricingDomain.OrderSideBuy
			req.QuoteQty = leg.QuoteQty.Sub(leg.Fee)
		}

		legCtx, cancel := context.WithTimeout(ctx, e.config.LegTimeout)
		fill, err := e.gateway.SubmitOrder(legCtx, req)
		cancel()

		rev := domain.LegResult{
			Index:       leg.Index,
			Symbol:      leg.Symbol,
			Side:        req.Side,
			SubmittedAt: time.Now(),
		}
		if err != nil {
			rev.FailureCode = string(apperror.CodeUnwindFailed)
			e.logger.Error(ctx, "unwind leg failed",
				"leg", leg.Index+1, "symbol", leg.Symbol, "error", err)
		} else {
			rev.FilledQty = fill.FilledQty
			rev.QuoteQty = fill.QuoteQty
			rev.AvgPrice = fill.AvgPrice
			rev.Fee = fill.Commission
			rev.FilledAt = fill.FilledAt
		}
		unwound = append(unwound, rev)
	}

	return unwound
}

// finalize records metrics, the audit row and the operator log line.
// Partial executions are financial exposure: they always hit the
// error log and the audit store, regardless of who reads the result.
func (e *Executor) finalize(ctx context.Context, result *domain.ExecutionResult, span trace.Span) {
	span.SetAttributes(attribute.String("status", string(result.Status)))
	e.metrics.executions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", string(result.Status))))

	switch result.Status {
	case domain.StatusCompleted:
		e.logger.Info(ctx, "execution completed",
			"cycle", result.Opportunity.Cycle.String(),
			"profit", result.Profit().String(),
			"dry_run", result.DryRun)
	case domain.StatusAborted:
		e.logger.Info(ctx, "execution aborted before exposure",
			"cycle", result.Opportunity.Cycle.String(),
			"leg", result.FailedLeg+1)
	case domain.StatusPartial:
		e.metrics.partials.Add(ctx, 1)
		e.logger.Error(ctx, "partial execution, unbalanced position",
			"cycle", result.Opportunity.Cycle.String(),
			"failed_leg", result.FailedLeg+1,
			"filled_legs", len(result.FilledLegs()),
			"unwound", len(result.Unwound),
			"dry_run", result.DryRun)
	}

	if e.audit != nil {
		if err := e.audit.Record(ctx, result); err != nil {
			e.logger.Error(ctx, "audit record failed", "error", err)
		}
	}
}

func (e *Executor) transition(ctx context.Context, state domain.State) {
	e.logger.Debug(ctx, "execution state", "state", string(state))
}

func orderSide(side universeDomain.Side) pricingDomain.OrderSide {
	if side == universeDomain.SideBuy {
		return pricingDomain.OrderSideBuy
	}
	return pricingDomain.OrderSideSell
}
