package portfolio

import "portfolio-trader-go/order"

// CanFund reports whether the holdings can back a single order: a buy
// needs available cash for its full notional, a sell needs the units
// available in that security.
func CanFund(h Holdings, security string, side order.Side, price, units int64) bool {
	switch side {
	case order.SideBuy:
		return h.CashAvailable >= price*units
	case order.SideSell:
		return h.Position(security).UnitsAvailable >= units
	default:
		return false
	}
}

// CanFundAll reports whether the holdings can back a whole counter-trade
// set at once: available cash must cover the sum of buy prices, and for
// each security the units available must cover the number of sell-side
// trades referencing it. An improving trade set that fails this check is
// not actionable and therefore never counts as evidence the portfolio is
// suboptimal.
func CanFundAll(h Holdings, prospects []Prospect) bool {
	var cashRequired int64
	unitsRequired := make(map[string]int64)

	for _, p := range prospects {
		switch p.Side {
		case order.SideBuy:
			cashRequired += p.Price
		case order.SideSell:
			unitsRequired[p.Security]++
		}
	}

	if cashRequired > h.CashAvailable {
		return false
	}
	for security, required := range unitsRequired {
		if required > h.Position(security).UnitsAvailable {
			return false
		}
	}
	return true
}
