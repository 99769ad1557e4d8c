package domain

import "testing"

func TestNewUniverse_Adjacency(t *testing.T) {
	pairs := []Pair{
		testPair(t, "BTCUSDT", "BTC", "USDT"),
		testPair(t, "ETHBTC", "ETH", "BTC"),
	}

	u := NewUniverse(pairs)
	if u.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", u.Size())
	}

	// Each pair contributes a buy edge from its quote and a sell edge
	// from its base.
	fromUSDT := u.NeighborsOf("USDT")
	if len(fromUSDT) != 1 || fromUSDT[0].Side != SideBuy || fromUSDT[0].To != "BTC" {
		t.Errorf("NeighborsOf(USDT) = %+v", fromUSDT)
	}

	fromBTC := u.NeighborsOf("BTC")
	if len(fromBTC) != 2 {
		t.Fatalf("NeighborsOf(BTC) = %+v, want sell BTCUSDT and buy ETHBTC", fromBTC)
	}

	if edges := u.NeighborsOf("DOGE"); len(edges) != 0 {
		t.Errorf("unknown asset should have no edges, got %+v", edges)
	}
}

func TestNewUniverse_DuplicateSymbolsKeepFirst(t *testing.T) {
	first := testPair(t, "BTCUSDT", "BTC", "USDT")
	second := testPair(t, "BTCUSDT", "BTC", "USDT")
	second.MinNotional = second.MinNotional.Add(second.MinNotional)

	u := NewUniverse([]Pair{first, second})
	if u.Size() != 1 {
		t.Errorf("Size() = %d, want 1", u.Size())
	}
	got, _ := u.Pair("BTCUSDT")
	if !got.MinNotional.Equal(first.MinNotional) {
		t.Error("duplicate symbol should keep the first occurrence")
	}
}

func TestUniverse_Fingerprint(t *testing.T) {
	a := []Pair{
		testPair(t, "BTCUSDT", "BTC", "USDT"),
		testPair(t, "ETHUSDT", "ETH", "USDT"),
	}
	b := []Pair{a[1], a[0]} // same set, different order

	ua, ub := NewUniverse(a), NewUniverse(b)
	if ua.Fingerprint() != ub.Fingerprint() {
		t.Error("fingerprint should not depend on input order")
	}

	c := append([]Pair{testPair(t, "BNBUSDT", "BNB", "USDT")}, a...)
	if NewUniverse(c).Fingerprint() == ua.Fingerprint() {
		t.Error("adding a pair should change the fingerprint")
	}

	if len(ua.Fingerprint()) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(ua.Fingerprint()))
	}
}
