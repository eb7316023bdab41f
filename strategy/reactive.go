package strategy

import (
	"portfolio-trader-go/market"
	"portfolio-trader-go/portfolio"
)

// React runs the optimality search over the visible best quotes and
// converts the winning counter-trade set into submittable intents. An
// optimal portfolio yields no intents.
func React(ev *portfolio.Evaluator, h portfolio.Holdings, book *market.Book) (SearchResult, []Intent) {
	quotes := book.BestQuotes(ev.Model().IDs())
	res := Search(ev, h, quotes)
	if res.Optimal {
		return res, nil
	}
	intents := make([]Intent, 0, len(res.Counter))
	for _, p := range res.Counter {
		intents = append(intents, Intent{
			Security: p.Security,
			Side:     p.Side,
			Price:    p.Price,
			Units:    1,
		})
	}
	return res, intents
}
