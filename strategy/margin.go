// Package strategy holds the decision logic: the margin curve, the phase
// guards, the market-making quoter and the reactive optimality search.
package strategy

import "math"

// MarginCurve converts elapsed session time into a quoting margin, in
// cents. The margin follows a logistic decay centred at the midpoint of
// the market-making phase: wide cautious quotes at session open,
// converging to fair value as the phase ends.
type MarginCurve struct {
	// MaxMargin is the margin at session open, in cents.
	MaxMargin float64
	// PhaseEnd is the end of the market-making phase in minutes
	// (sessionMinutes * phaseFraction).
	PhaseEnd float64
}

// Margin returns the margin at elapsed minutes t:
//
//	ceil(MaxMargin / (1 + exp((t - b) / sqrt(b))))  with b = PhaseEnd/2
//
// Monotonically non-increasing in t; Margin(0) is approximately
// MaxMargin, Margin(b) is MaxMargin/2 and Margin(PhaseEnd) is near zero.
func (c MarginCurve) Margin(t float64) float64 {
	b := c.PhaseEnd / 2
	if b <= 0 {
		return 0
	}
	denom := 1 + math.Exp((t-b)/math.Sqrt(b))
	return math.Ceil(c.MaxMargin / denom)
}
