package strategy

// Phases holds the session timing parameters the guards decide on.
type Phases struct {
	// SessionMinutes is the configured total session duration.
	SessionMinutes float64
	// PhaseFraction splits the session: market making runs in the first
	// PhaseFraction of it, the reactive strategy in the remainder.
	PhaseFraction float64
	// WarmupMinutes suppresses both strategies right after session open,
	// before the first holdings and book snapshots have landed.
	WarmupMinutes float64
}

// PhaseEnd returns the end of the market-making phase in minutes.
func (p Phases) PhaseEnd() float64 {
	return p.SessionMinutes * p.PhaseFraction
}

// MarketMakingDecision is the outcome of the market-making guard.
type MarketMakingDecision struct {
	// Run is true only inside the market-making window with no orders
	// believed in flight.
	Run bool
	// ClearOrders is true when the window is right but orders are still
	// outstanding: the cycle must clear them instead of quoting.
	ClearOrders bool
}

// MarketMakingGuard gates the market-making strategy: it may run only in
// [warmup, phaseEnd) and never while any order is believed outstanding.
func (p Phases) MarketMakingGuard(elapsedMinutes float64, inFlight int64) MarketMakingDecision {
	if elapsedMinutes < p.WarmupMinutes {
		return MarketMakingDecision{}
	}
	if elapsedMinutes >= p.PhaseEnd() {
		return MarketMakingDecision{}
	}
	if inFlight != 0 {
		return MarketMakingDecision{ClearOrders: true}
	}
	return MarketMakingDecision{Run: true}
}

// ReactiveGuard gates the reactive strategy: it may run only at or after
// the phase split, and only while the agent has no pending orders of its
// own. The guards are mutually exclusive by construction; their time
// windows do not overlap.
func (p Phases) ReactiveGuard(elapsedMinutes float64, inFlight int64) bool {
	if elapsedMinutes < p.WarmupMinutes {
		return false
	}
	if elapsedMinutes < p.PhaseEnd() {
		return false
	}
	return inFlight == 0
}
