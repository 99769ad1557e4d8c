package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/triarb-bot/business/pricing/domain"
)

// State is a node of the execution state machine.
type State string

const (
	StatePending   State = "PENDING"
	StateCompleted State = "COMPLETED"
	StateAborted   State = "ABORTED"
)

// StateLegSubmitted returns the submitted state for leg n (1-based).
func StateLegSubmitted(n int) State {
	return State(fmt.Sprintf("LEG%d_SUBMITTED", n))
}

// StateLegFilled returns the filled state for leg n (1-based).
func StateLegFilled(n int) State {
	return State(fmt.Sprintf("LEG%d_FILLED", n))
}

// Status classifies a terminal execution result.
type Status string

const (
	// StatusCompleted means all three legs filled.
	StatusCompleted Status = "COMPLETED"

	// StatusAborted means execution stopped before any fill. No
	// position was taken.
	StatusAborted Status = "ABORTED"

	// StatusPartial means at least one leg filled and a later leg
	// failed, leaving an unbalanced position.
	StatusPartial Status = "PARTIAL_EXECUTION"
)

// LegResult is the outcome of one executed leg.
type LegResult struct {
	Index       int // 0-based leg position in the cycle
	Symbol      string
	Side        pricingDomain.OrderSide
	PlanPrice   decimal.Decimal
	FilledQty   decimal.Decimal
	QuoteQty    decimal.Decimal
	AvgPrice    decimal.Decimal
	Fee         decimal.Decimal
	FailureCode string // apperror code when the leg failed
	SubmittedAt time.Time
	FilledAt    time.Time
}

// Failed reports whether this leg terminated the execution.
func (l *LegResult) Failed() bool { return l.FailureCode != "" }

// ExecutionResult is the terminal outcome of executing an opportunity.
type ExecutionResult struct {
	Opportunity *Opportunity
	Status      Status
	FailedLeg   int // 0-based index of the failing leg, -1 on success
	Legs        []LegResult
	Unwound     []LegResult // reversal fills when the unwind policy ran
	StartAmount decimal.Decimal
	FinalAmount decimal.Decimal
	DryRun      bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Profit returns the realized stablecoin gain. Only meaningful for
// completed executions.
func (r *ExecutionResult) Profit() decimal.Decimal {
	return r.FinalAmount.Sub(r.StartAmount)
}

// FilledLegs returns the legs that actually filled.
func (r *ExecutionResult) FilledLegs() []LegResult {
	out := make([]LegResult, 0, len(r.Legs))
	for _, l := range r.Legs {
		if !l.Failed() && !l.FilledQty.IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// Exposed reports whether the result leaves an unbalanced position.
func (r *ExecutionResult) Exposed() bool {
	return r.Status == StatusPartial && len(r.Unwound) == 0
}
