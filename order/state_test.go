package order

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"created to submitted", StatusCreated, StatusSubmitted, false},
		{"submitted to accepted", StatusSubmitted, StatusAccepted, false},
		{"submitted to rejected", StatusSubmitted, StatusRejected, false},
		{"accepted to cancel pending", StatusAccepted, StatusCancelPending, false},
		{"cancel pending to cancelled", StatusCancelPending, StatusCancelled, false},
		{"cancel rejected back to accepted", StatusCancelPending, StatusAccepted, false},

		{"created straight to accepted", StatusCreated, StatusAccepted, true},
		{"rejected cannot resubmit", StatusRejected, StatusSubmitted, true},
		{"cancelled cannot resubmit", StatusCancelled, StatusSubmitted, true},
		{"cancelled cannot cancel again", StatusCancelled, StatusCancelled, true},
		{"accepted cannot re-enter submitted", StatusAccepted, StatusSubmitted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%s, %s) err = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestStateMachineTerminal(t *testing.T) {
	sm := NewStateMachine()
	for _, s := range []Status{StatusCancelled, StatusRejected} {
		if !sm.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{StatusCreated, StatusSubmitted, StatusAccepted, StatusCancelPending} {
		if sm.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestSideAndType(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Fatal("Opposite is not an involution")
	}
	s, err := ParseSide("SELL")
	if err != nil || s != SideSell {
		t.Fatalf("ParseSide(SELL) = %v, %v", s, err)
	}
	if _, err := ParseSide("HOLD"); err == nil {
		t.Fatal("ParseSide accepted unknown side")
	}
	ty, err := ParseType("CANCEL")
	if err != nil || ty != TypeCancel {
		t.Fatalf("ParseType(CANCEL) = %v, %v", ty, err)
	}
}
