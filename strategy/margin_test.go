package strategy

import "testing"

func TestMarginCurveShape(t *testing.T) {
	// 10-minute session with a 0.2 phase split: the market-making phase
	// ends at T = 2 minutes.
	c := MarginCurve{MaxMargin: 50, PhaseEnd: 2}

	if m := c.Margin(0); m < 35 || m > 50 {
		t.Errorf("Margin(0) = %v, want near MaxMargin", m)
	}
	// Logistic midpoint: exactly half of MaxMargin, before rounding up.
	if m := c.Margin(1); m != 25 {
		t.Errorf("Margin(T/2) = %v, want 25", m)
	}
	if m := c.Margin(2); m > 15 {
		t.Errorf("Margin(T) = %v, want well below MaxMargin/2", m)
	}
}

func TestMarginCurveMonotone(t *testing.T) {
	c := MarginCurve{MaxMargin: 50, PhaseEnd: 2}
	prev := c.Margin(0)
	for i := 1; i <= 40; i++ {
		t_ := float64(i) * 0.05
		m := c.Margin(t_)
		if m > prev {
			t.Fatalf("margin increased at t=%v: %v -> %v", t_, prev, m)
		}
		prev = m
	}
}

func TestMarginCurveDegenerate(t *testing.T) {
	c := MarginCurve{MaxMargin: 50, PhaseEnd: 0}
	if m := c.Margin(0); m != 0 {
		t.Errorf("Margin with zero phase = %v, want 0", m)
	}
}
