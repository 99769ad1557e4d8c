package domain

import (
	"fmt"
	"strings"

	"github.com/fd1az/triarb-bot/internal/apperror"
)

// Hop is one leg of a triangular cycle.
type Hop struct {
	Pair Pair   `json:"pair"`
	Side Side   `json:"side"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Cycle is a three-hop path that starts and ends at the same
// stablecoin. Hops are executed in order.
type Cycle struct {
	Start string `json:"start"`
	Hops  [3]Hop `json:"hops"`
}

// NewCycle validates hop continuity and closure.
func NewCycle(start string, hops [3]Hop) (Cycle, error) {
	if hops[0].From != start {
		return Cycle{}, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("cycle does not start at %s", start)))
	}
	for i := 0; i < 2; i++ {
		if hops[i].To != hops[i+1].From {
			return Cycle{}, apperror.New(apperror.CodeInvalidState,
				apperror.WithContext(fmt.Sprintf("hop %d ends at %s but hop %d starts at %s",
					i+1, hops[i].To, i+2, hops[i+1].From)))
		}
	}
	if hops[2].To != start {
		return Cycle{}, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("cycle ends at %s, not %s", hops[2].To, start)))
	}
	for _, h := range hops {
		if err := validateHopDirection(h); err != nil {
			return Cycle{}, err
		}
	}
	return Cycle{Start: start, Hops: hops}, nil
}

// validateHopDirection checks that the side matches the traversal
// direction on the pair.
func validateHopDirection(h Hop) error {
	switch h.Side {
	case SideBuy:
		if h.From != h.Pair.Quote || h.To != h.Pair.Base {
			return apperror.New(apperror.CodeInvalidState,
				apperror.WithContext(fmt.Sprintf("buy on %s does not move %s to %s", h.Pair.Symbol, h.From, h.To)))
		}
	case SideSell:
		if h.From != h.Pair.Base || h.To != h.Pair.Quote {
			return apperror.New(apperror.CodeInvalidState,
				apperror.WithContext(fmt.Sprintf("sell on %s does not move %s to %s", h.Pair.Symbol, h.From, h.To)))
		}
	default:
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("unknown side %q", h.Side)))
	}
	return nil
}

// Key uniquely identifies the cycle by its ordered legs.
func (c Cycle) Key() string {
	parts := make([]string, 0, 4)
	parts = append(parts, c.Start)
	for _, h := range c.Hops {
		parts = append(parts, string(h.Side)+":"+h.Pair.Symbol)
	}
	return strings.Join(parts, "|")
}

// String renders the asset path, e.g. "USDT -> BTC -> ETH -> USDT".
func (c Cycle) String() string {
	return fmt.Sprintf("%s -> %s -> %s -> %s",
		c.Start, c.Hops[0].To, c.Hops[1].To, c.Hops[2].To)
}

// Assets returns the distinct intermediate assets (X, Y).
func (c Cycle) Assets() (string, string) {
	return c.Hops[0].To, c.Hops[1].To
}

// Symbols returns the three pair symbols in hop order.
func (c Cycle) Symbols() [3]string {
	return [3]string{c.Hops[0].Pair.Symbol, c.Hops[1].Pair.Symbol, c.Hops[2].Pair.Symbol}
}

// CycleSet is an immutable collection of cycles tied to the universe
// fingerprint they were discovered from.
type CycleSet struct {
	Fingerprint string
	Cycles      []Cycle
}

// DistinctSymbols returns the union of pair symbols across all cycles.
func (s *CycleSet) DistinctSymbols() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range s.Cycles {
		for _, sym := range c.Symbols() {
			if _, ok := seen[sym]; !ok {
				seen[sym] = struct{}{}
				out = append(out, sym)
			}
		}
	}
	return out
}
