// Package portfolio implements the mean-variance performance model:
// holdings state, the performance evaluator, per-side fair prices and
// trade feasibility checks.
package portfolio

// Position is the unit count held in one security. UnitsAvailable is
// Units minus units reserved for pending sell orders.
type Position struct {
	Units          int64
	UnitsAvailable int64
}

// Holdings is a snapshot of the agent's account. Cash figures are in
// minor currency units; CashAvailable is Cash minus cash reserved for
// pending buy orders. Holdings are mutated only by venue-delivered
// snapshots; the core only derives hypothetical adjusted copies.
type Holdings struct {
	Cash          int64
	CashAvailable int64
	Assets        map[string]Position
}

// Position returns the position in a security, zero-valued if none.
func (h Holdings) Position(security string) Position {
	return h.Assets[security]
}

// Clone returns a deep copy.
func (h Holdings) Clone() Holdings {
	cp := Holdings{Cash: h.Cash, CashAvailable: h.CashAvailable}
	if h.Assets != nil {
		cp.Assets = make(map[string]Position, len(h.Assets))
		for id, p := range h.Assets {
			cp.Assets[id] = p
		}
	}
	return cp
}
