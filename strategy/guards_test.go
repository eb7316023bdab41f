package strategy

import "testing"

func TestMarketMakingGuard(t *testing.T) {
	p := Phases{SessionMinutes: 10, PhaseFraction: 0.2, WarmupMinutes: 2.0 / 30}

	tests := []struct {
		name      string
		elapsed   float64
		inFlight  int64
		run       bool
		clear     bool
	}{
		{"warmup", 0.01, 0, false, false},
		{"in window idle", 1.0, 0, true, false},
		{"in window with orders", 1.0, 2, false, true},
		{"at phase end", 2.0, 0, false, false},
		{"after phase end", 5.0, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.MarketMakingGuard(tt.elapsed, tt.inFlight)
			if d.Run != tt.run || d.ClearOrders != tt.clear {
				t.Errorf("MarketMakingGuard(%v, %d) = %+v, want run=%v clear=%v",
					tt.elapsed, tt.inFlight, d, tt.run, tt.clear)
			}
		})
	}
}

func TestReactiveGuard(t *testing.T) {
	p := Phases{SessionMinutes: 10, PhaseFraction: 0.2, WarmupMinutes: 2.0 / 30}

	if p.ReactiveGuard(1.0, 0) {
		t.Error("reactive ran inside the market-making window")
	}
	if !p.ReactiveGuard(2.0, 0) {
		t.Error("reactive refused to run at the phase split")
	}
	if p.ReactiveGuard(5.0, 1) {
		t.Error("reactive ran with an order outstanding")
	}
	if p.ReactiveGuard(0.01, 0) {
		t.Error("reactive ran during warmup")
	}
}

func TestGuardsMutuallyExclusive(t *testing.T) {
	p := Phases{SessionMinutes: 10, PhaseFraction: 0.2, WarmupMinutes: 0}
	for i := 0; i <= 100; i++ {
		elapsed := float64(i) * 0.1
		mm := p.MarketMakingGuard(elapsed, 0)
		if mm.Run && p.ReactiveGuard(elapsed, 0) {
			t.Fatalf("both guards open at t=%v", elapsed)
		}
	}
}
