package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
)

// riskFreeEvaluator builds an evaluator over one security with expected
// payoff $1.45 and no risk penalty, so fair value sits at 145 cents.
func riskFreeEvaluator(t *testing.T) *portfolio.Evaluator {
	t.Helper()
	m, err := market.NewPayoffModel(map[string]market.Security{
		"a": {ID: "a", Payoffs: []int64{145, 145, 145}},
	})
	require.NoError(t, err)
	ev, err := portfolio.NewEvaluator(m, 0)
	require.NoError(t, err)
	return ev
}

func TestSearchEmptyQuoteSetIsOptimal(t *testing.T) {
	ev := riskFreeEvaluator(t)
	h := portfolio.Holdings{Cash: 1000, CashAvailable: 1000}

	res := Search(ev, h, nil)
	assert.True(t, res.Optimal, "no quotes means nothing to improve with")
	assert.Equal(t, 1, res.Evaluated, "only the empty subset exists")
	assert.Empty(t, res.Counter)
}

func TestSearchPicksBestCounterTrade(t *testing.T) {
	ev := riskFreeEvaluator(t)
	h := portfolio.Holdings{
		Cash: 1000, CashAvailable: 1000,
		Assets: map[string]portfolio.Position{"a": {Units: 2, UnitsAvailable: 2}},
	}

	// Fair value 145. Selling into the 150 bid gains $0.05; buying the
	// 140 ask gains $0.05 too, and hitting both gains $0.10.
	quotes := []market.Quote{
		{Security: "a", Side: order.SideSell, Price: 140, Units: 1},
		{Security: "a", Side: order.SideBuy, Price: 150, Units: 1},
	}

	res := Search(ev, h, quotes)
	require.False(t, res.Optimal)
	assert.InDelta(t, 0.10, res.Improvement, 1e-9)
	require.Len(t, res.Counter, 2)
	assert.Equal(t, order.SideBuy, res.Counter[0].Side, "counter-trade flips the quote's side")
	assert.Equal(t, int64(140), res.Counter[0].Price)
	assert.Equal(t, order.SideSell, res.Counter[1].Side)
	assert.Equal(t, int64(150), res.Counter[1].Price)
	assert.Equal(t, 4, res.Evaluated, "power set of two quotes")
}

func TestSearchExcludesInfeasibleCandidates(t *testing.T) {
	ev := riskFreeEvaluator(t)
	// No units available: the profitable sell into the 150 bid is not
	// actionable and must not count against optimality.
	h := portfolio.Holdings{
		Cash: 1000, CashAvailable: 1000,
		Assets: map[string]portfolio.Position{"a": {Units: 2, UnitsAvailable: 0}},
	}

	quotes := []market.Quote{
		{Security: "a", Side: order.SideBuy, Price: 150, Units: 1},
	}
	res := Search(ev, h, quotes)
	assert.True(t, res.Optimal, "profitable but unfundable subsets are not candidates")

	// The buy side stays actionable with cash available.
	quotes = []market.Quote{
		{Security: "a", Side: order.SideSell, Price: 140, Units: 1},
	}
	res = Search(ev, h, quotes)
	require.False(t, res.Optimal)
	assert.Equal(t, order.SideBuy, res.Counter[0].Side)
}

func TestSearchPrefersStrictlyGreaterOnly(t *testing.T) {
	ev := riskFreeEvaluator(t)
	h := portfolio.Holdings{
		Cash: 1000, CashAvailable: 1000,
		Assets: map[string]portfolio.Position{"a": {Units: 2, UnitsAvailable: 2}},
	}

	// Two identical bids: hitting either gains the same. The first
	// subset attaining the maximum must be kept.
	quotes := []market.Quote{
		{Security: "a", Side: order.SideBuy, Price: 150, Units: 1},
		{Security: "a", Side: order.SideBuy, Price: 150, Units: 1},
	}
	res := Search(ev, h, quotes)
	require.False(t, res.Optimal)
	// Selling into both bids beats selling into one, so size two wins,
	// and within size two there is only one subset. With three equal
	// bids the first pair in lexicographic order would win.
	assert.Len(t, res.Counter, 2)
}

func TestSearchSkipsLosingTrades(t *testing.T) {
	ev := riskFreeEvaluator(t)
	h := portfolio.Holdings{
		Cash: 1000, CashAvailable: 1000,
		Assets: map[string]portfolio.Position{"a": {Units: 2, UnitsAvailable: 2}},
	}

	// Bid below fair and ask above fair: every counter-trade loses.
	quotes := []market.Quote{
		{Security: "a", Side: order.SideBuy, Price: 140, Units: 1},
		{Security: "a", Side: order.SideSell, Price: 150, Units: 1},
	}
	res := Search(ev, h, quotes)
	assert.True(t, res.Optimal)
}

func TestCombinationsOrder(t *testing.T) {
	var got [][]int
	combinations(4, 2, func(idx []int) {
		got = append(got, append([]int(nil), idx...))
	})
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	require.Equal(t, want, got)

	count := 0
	combinations(3, 0, func(idx []int) { count++ })
	assert.Equal(t, 1, count, "the empty combination appears exactly once")

	combinations(2, 3, func(idx []int) { t.Fatal("k > n must produce nothing") })
}
