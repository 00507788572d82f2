package orders

import "testing"

func TestCanTransitionForwardChain(t *testing.T) {
	chain := []string{
		StatusPending, StatusConfirmed, StatusPreparing, StatusPrepared,
		StatusOutForDelivery, StatusDelivered, StatusCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		if !CanTransition(chain[i], chain[i+1]) {
			t.Errorf("expected %s -> %s to be legal", chain[i], chain[i+1])
		}
	}
	// skipping a step is never legal
	for i := 0; i < len(chain)-2; i++ {
		if CanTransition(chain[i], chain[i+2]) {
			t.Errorf("expected %s -> %s to be illegal", chain[i], chain[i+2])
		}
	}
}

func TestCanTransitionNoBackwardMoves(t *testing.T) {
	cases := [][2]string{
		{StatusConfirmed, StatusPending},
		{StatusPreparing, StatusConfirmed},
		{StatusDelivered, StatusOutForDelivery},
		{StatusCompleted, StatusDelivered},
	}
	for _, c := range cases {
		if CanTransition(c[0], c[1]) {
			t.Errorf("expected %s -> %s to be illegal", c[0], c[1])
		}
	}
}

func TestCanTransitionCancellation(t *testing.T) {
	cancellable := []string{
		StatusPending, StatusConfirmed, StatusPreparing, StatusPrepared, StatusOutForDelivery,
	}
	for _, from := range cancellable {
		if !CanTransition(from, StatusCancelled) {
			t.Errorf("expected %s to be cancellable", from)
		}
	}
	for _, from := range []string{StatusDelivered, StatusCompleted, StatusCancelled} {
		if CanTransition(from, StatusCancelled) {
			t.Errorf("expected %s not to be cancellable", from)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusCancelled) {
		t.Error("COMPLETED and CANCELLED must be terminal")
	}
	if IsTerminal(StatusDelivered) {
		t.Error("DELIVERED is not terminal, it still moves to COMPLETED")
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus(StatusOutForDelivery) {
		t.Error("expected OUT_FOR_DELIVERY to be valid")
	}
	if ValidStatus("SHIPPED") || ValidStatus("") {
		t.Error("unknown statuses must be rejected")
	}
}
