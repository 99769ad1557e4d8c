package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Edge is one traversal of a pair in a given direction. Buying the
// pair moves quote -> base, selling moves base -> quote.
type Edge struct {
	Pair Pair
	Side Side
	From string
	To   string
}

// Universe is an immutable snapshot of the tradable pairs and the
// asset graph derived from them. Build a new one instead of mutating.
type Universe struct {
	pairs       map[string]Pair   // by symbol
	adjacency   map[string][]Edge // by source asset
	fingerprint string
}

// NewUniverse builds a universe from validated pairs. Duplicate
// symbols keep the first occurrence.
func NewUniverse(pairs []Pair) *Universe {
	u := &Universe{
		pairs:     make(map[string]Pair, len(pairs)),
		adjacency: make(map[string][]Edge),
	}

	for _, p := range pairs {
		if _, exists := u.pairs[p.Symbol]; exists {
			continue
		}
		u.pairs[p.Symbol] = p

		u.adjacency[p.Quote] = append(u.adjacency[p.Quote], Edge{
			Pair: p, Side: SideBuy, From: p.Quote, To: p.Base,
		})
		u.adjacency[p.Base] = append(u.adjacency[p.Base], Edge{
			Pair: p, Side: SideSell, From: p.Base, To: p.Quote,
		})
	}

	u.fingerprint = computeFingerprint(u.pairs)
	return u
}

// computeFingerprint hashes the sorted symbol list so that any change
// in the pair set, and only such a change, produces a new value.
func computeFingerprint(pairs map[string]Pair) string {
	symbols := make([]string, 0, len(pairs))
	for sym := range pairs {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	h := sha256.Sum256([]byte(strings.Join(symbols, "\n")))
	return hex.EncodeToString(h[:])
}

// Fingerprint identifies this exact pair set.
func (u *Universe) Fingerprint() string {
	return u.fingerprint
}

// Pair looks up a pair by venue symbol.
func (u *Universe) Pair(symbol string) (Pair, bool) {
	p, ok := u.pairs[symbol]
	return p, ok
}

// NeighborsOf returns the outgoing edges from an asset.
func (u *Universe) NeighborsOf(asset string) []Edge {
	return u.adjacency[asset]
}

// Size returns the number of pairs.
func (u *Universe) Size() int {
	return len(u.pairs)
}

// Symbols returns all pair symbols in sorted order.
func (u *Universe) Symbols() []string {
	symbols := make([]string, 0, len(u.pairs))
	for sym := range u.pairs {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
