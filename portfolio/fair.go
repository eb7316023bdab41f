package portfolio

import "portfolio-trader-go/order"

// Fair holds the per-side fair values of one security, in dollars. Each
// is the performance delta of hypothetically trading one unit at price
// zero on that side: the marginal value contribution (expected payoff
// minus marginal risk contribution) isolated from price. The sell value
// is typically negative when holding the unit is worth more than
// shedding it; sign handling at the quoting layer mirrors the buy case.
type Fair struct {
	Buy  float64
	Sell float64
}

// BuyCents and SellCents convert to the venue's minor units.
func (f Fair) BuyCents() float64  { return f.Buy * 100 }
func (f Fair) SellCents() float64 { return f.Sell * 100 }

// FairPrices derives fair values for every security in the model from
// the current holdings. Recomputed whenever holdings change.
func (e *Evaluator) FairPrices(h Holdings) map[string]Fair {
	base := e.Performance(h, nil)
	fair := make(map[string]Fair, e.model.Len())
	for _, id := range e.model.IDs() {
		buy := e.Performance(h, []Prospect{{Security: id, Side: order.SideBuy, Price: 0}}) - base
		sell := e.Performance(h, []Prospect{{Security: id, Side: order.SideSell, Price: 0}}) - base
		fair[id] = Fair{Buy: buy, Sell: sell}
	}
	return fair
}

// FairPrice derives the fair value for a single security and side.
func (e *Evaluator) FairPrice(h Holdings, security string, side order.Side) float64 {
	base := e.Performance(h, nil)
	return e.Performance(h, []Prospect{{Security: security, Side: side, Price: 0}}) - base
}
