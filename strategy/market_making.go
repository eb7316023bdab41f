package strategy

import (
	"math"
	"sort"

	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
)

// Intent is an order the strategy wants submitted: one unit at a
// tick-aligned price.
type Intent struct {
	Security string
	Side     order.Side
	Price    int64
	Units    int64
}

// BuildQuotes derives the market-making orders for one cycle: for every
// security whose fair value clears the margin, one limit order per
// qualifying side, priced at fair value less (buys) or plus (sells) the
// margin and rounded to the price tick. Each intent is feasibility
// checked against the holdings before inclusion.
//
// Sell-side sign handling mirrors the buy case: a fair sell value that
// is already positive means shedding the unit improves performance on
// its own, so any positive price works and the quote sits at just the
// margin; a negative fair sell value must have magnitude above the
// margin before quoting.
func BuildQuotes(secs map[string]market.Security, fair map[string]portfolio.Fair, margin float64, h portfolio.Holdings) []Intent {
	ids := make([]string, 0, len(fair))
	for id := range fair {
		if _, ok := secs[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	intents := make([]Intent, 0, 2*len(ids))
	for _, id := range ids {
		tick := secs[id].PriceTick
		if tick <= 0 {
			tick = 1
		}
		f := fair[id]

		// Buying below fair value improves performance; a fair value
		// under the margin leaves no room to quote.
		if f.BuyCents() > margin {
			price := alignDown(f.BuyCents()-margin, tick)
			if portfolio.CanFund(h, id, order.SideBuy, price, 1) {
				intents = append(intents, Intent{Security: id, Side: order.SideBuy, Price: price, Units: 1})
			}
		}

		switch {
		case f.SellCents() > 0:
			price := alignUp(margin, tick)
			if portfolio.CanFund(h, id, order.SideSell, price, 1) {
				intents = append(intents, Intent{Security: id, Side: order.SideSell, Price: price, Units: 1})
			}
		case -f.SellCents() > margin:
			price := alignUp(-f.SellCents()+margin, tick)
			if portfolio.CanFund(h, id, order.SideSell, price, 1) {
				intents = append(intents, Intent{Security: id, Side: order.SideSell, Price: price, Units: 1})
			}
		}
	}
	return intents
}

func alignDown(cents float64, tick int64) int64 {
	return int64(math.Floor(cents/float64(tick))) * tick
}

func alignUp(cents float64, tick int64) int64 {
	return int64(math.Ceil(cents/float64(tick))) * tick
}
