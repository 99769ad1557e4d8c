package app

import (
	"sort"
	"strings"

	"github.com/fd1az/triarb-bot/business/universe/domain"
)

// CycleFinder enumerates three-hop cycles anchored on stablecoins.
//
// The shape is fixed: leg 1 buys asset X with stablecoin S, leg 2
// converts X to Y in whichever direction a pair exists, leg 3 sells Y
// back into S. Intermediate assets may themselves be stablecoins, but
// never equal to S or to each other. A (S, X, Y) triple yields at most
// one cycle.
type CycleFinder struct {
	stablecoins []string

	// allowed restricts intermediate assets when non-nil. It always
	// contains the stablecoins.
	allowed map[string]struct{}
}

// NewCycleFinder creates a finder for the given stablecoin set. A
// non-empty intermediates list limits legs 1 and 2 to those assets
// (plus the stablecoins); empty means any listed asset qualifies.
func NewCycleFinder(stablecoins, intermediates []string) *CycleFinder {
	sorted := make([]string, len(stablecoins))
	copy(sorted, stablecoins)
	sort.Strings(sorted)

	var allowed map[string]struct{}
	if len(intermediates) > 0 {
		allowed = make(map[string]struct{}, len(intermediates)+len(sorted))
		for _, a := range intermediates {
			allowed[strings.ToUpper(strings.TrimSpace(a))] = struct{}{}
		}
		for _, s := range sorted {
			allowed[s] = struct{}{}
		}
	}

	return &CycleFinder{stablecoins: sorted, allowed: allowed}
}

func (f *CycleFinder) permitted(asset string) bool {
	if f.allowed == nil {
		return true
	}
	_, ok := f.allowed[asset]
	return ok
}

// Find discovers every valid cycle in the universe. Each (S, X, Y)
// triple produces at most one cycle; when the venue lists both
// directions of the X/Y market the sell direction wins. An empty
// result is not an error here; callers decide how to surface it.
func (f *CycleFinder) Find(u *domain.Universe) []domain.Cycle {
	var cycles []domain.Cycle
	seen := make(map[string]struct{})

	for _, start := range f.stablecoins {
		for _, hop1 := range u.NeighborsOf(start) {
			// Leg 1 must buy X priced in S.
			if hop1.Side != domain.SideBuy {
				continue
			}
			x := hop1.To
			if x == start || !f.permitted(x) {
				continue
			}

			for _, hop2 := range middleEdges(u, x, start) {
				y := hop2.To
				if !f.permitted(y) {
					continue
				}

				// Leg 3 must sell Y into S, so a pair Y/S must exist.
				hop3, ok := sellEdge(u, y, start)
				if !ok {
					continue
				}

				triple := start + "|" + x + "|" + y
				if _, dup := seen[triple]; dup {
					continue
				}

				cycle, err := domain.NewCycle(start, [3]domain.Hop{
					{Pair: hop1.Pair, Side: hop1.Side, From: hop1.From, To: hop1.To},
					{Pair: hop2.Pair, Side: hop2.Side, From: hop2.From, To: hop2.To},
					{Pair: hop3.Pair, Side: hop3.Side, From: hop3.From, To: hop3.To},
				})
				if err != nil {
					continue
				}

				seen[triple] = struct{}{}
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

// middleEdges returns one conversion edge per asset reachable from x,
// in first-seen order. A venue listing both X/Y and Y/X exposes two
// edges to the same asset; the sell edge is kept.
func middleEdges(u *domain.Universe, x, start string) []domain.Edge {
	byAsset := make(map[string]domain.Edge)
	var order []string

	for _, e := range u.NeighborsOf(x) {
		y := e.To
		if y == start || y == x {
			continue
		}
		cur, ok := byAsset[y]
		if !ok {
			byAsset[y] = e
			order = append(order, y)
			continue
		}
		if cur.Side == domain.SideBuy && e.Side == domain.SideSell {
			byAsset[y] = e
		}
	}

	edges := make([]domain.Edge, 0, len(order))
	for _, y := range order {
		edges = append(edges, byAsset[y])
	}
	return edges
}

// sellEdge finds the edge that sells asset from into asset to.
func sellEdge(u *domain.Universe, from, to string) (domain.Edge, bool) {
	for _, e := range u.NeighborsOf(from) {
		if e.Side == domain.SideSell && e.To == to {
			return e, true
		}
	}
	return domain.Edge{}, false
}
