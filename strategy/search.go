package strategy

import (
	"portfolio-trader-go/market"
	"portfolio-trader-go/portfolio"
)

// SearchResult is the outcome of the portfolio optimality search.
type SearchResult struct {
	// Optimal is true when no feasible subset of the visible best quotes
	// strictly improves performance.
	Optimal bool
	// Counter is the counter-trade set for the winning subset: the
	// orders to submit to hit those quotes, one unit each at the quote's
	// price.
	Counter []portfolio.Prospect
	// Improvement is the performance gain of the winning subset over the
	// baseline.
	Improvement float64
	// Evaluated counts the subsets examined.
	Evaluated int
}

// Search decides whether the current holdings are optimal against the
// visible best quotes, and if not, which combination of quotes to hit.
//
// It enumerates the power set of the quotes explicitly. Complexity is
// exponential in the quote count, which is acceptable only because that
// count is bounded by two per security. Enumeration runs in increasing
// subset size, then lexicographic combination order over the quote list;
// the first subset attaining the maximum improvement wins, and later
// subsets replace it only on strictly greater improvement. A subset
// counts as a candidate only if it strictly improves performance AND the
// holdings can feasibly fund the counter-trades; profitable but
// unfundable subsets are not evidence of non-optimality.
func Search(ev *portfolio.Evaluator, h portfolio.Holdings, quotes []market.Quote) SearchResult {
	base := ev.Performance(h, nil)
	best := base
	res := SearchResult{Optimal: true}

	counter := make([]portfolio.Prospect, 0, len(quotes))
	for r := 0; r <= len(quotes); r++ {
		combinations(len(quotes), r, func(idx []int) {
			res.Evaluated++
			counter = counter[:0]
			for _, i := range idx {
				q := quotes[i]
				counter = append(counter, portfolio.Prospect{
					Security: q.Security,
					Side:     q.Side.Opposite(),
					Price:    q.Price,
				})
			}
			perf := ev.Performance(h, counter)
			if perf > best && portfolio.CanFundAll(h, counter) {
				best = perf
				res.Optimal = false
				res.Counter = append([]portfolio.Prospect(nil), counter...)
				res.Improvement = perf - base
			}
		})
	}
	return res
}

// combinations invokes fn with every k-element index subset of [0, n) in
// lexicographic order. The slice passed to fn is reused between calls.
func combinations(n, k int, fn func(idx []int)) {
	if k == 0 {
		fn(nil)
		return
	}
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
