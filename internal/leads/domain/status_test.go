package domain

import (
	"strings"
	"testing"
)

func TestCanTransitionIdentity(t *testing.T) {
	for _, s := range All() {
		ok, reason := CanTransition(s, s, PaymentSnapshot{})
		if !ok {
			t.Errorf("identity transition for %s rejected: %s", s, reason)
		}
		if reason != ReasonUnchanged {
			t.Errorf("identity transition for %s: reason = %q", s, reason)
		}
	}
}

func TestCanTransitionForwardSteps(t *testing.T) {
	paid := PaymentSnapshot{PriceCents: 100000, ReceivedCents: 100000, HasPaymentRecord: true}

	tests := []struct {
		from, to Status
	}{
		{StatusQueued, StatusInWork},
		{StatusInWork, StatusAwaitingPrepayment},
		{StatusAwaitingPrepayment, StatusPreparation},
		{StatusPreparation, StatusWarehouseProcessing},
		{StatusWarehouseProcessing, StatusWarehouseReady},
		{StatusWarehouseReady, StatusOnTheWay},
		{StatusOnTheWay, StatusCompleted},
	}
	for _, tt := range tests {
		if ok, reason := CanTransition(tt.from, tt.to, paid); !ok {
			t.Errorf("%s -> %s rejected for fully paid lead: %s", tt.from, tt.to, reason)
		}
	}
}

func TestCanTransitionForwardSkipsRejected(t *testing.T) {
	paid := PaymentSnapshot{PriceCents: 100000, ReceivedCents: 100000, HasPaymentRecord: true}

	tests := []struct {
		from, to Status
	}{
		{StatusQueued, StatusAwaitingPrepayment},
		{StatusQueued, StatusCompleted},
		{StatusInWork, StatusPreparation},
		{StatusAwaitingPrepayment, StatusWarehouseProcessing},
		{StatusPreparation, StatusOnTheWay},
		{StatusWarehouseProcessing, StatusOnTheWay},
		{StatusWarehouseReady, StatusCompleted},
	}
	for _, tt := range tests {
		ok, reason := CanTransition(tt.from, tt.to, paid)
		if ok {
			t.Errorf("%s -> %s should be rejected (skips a step)", tt.from, tt.to)
		}
		if reason != ReasonNotPermitted {
			t.Errorf("%s -> %s: reason = %q, want %q", tt.from, tt.to, reason, ReasonNotPermitted)
		}
	}
}

func TestCanTransitionBackwardSteps(t *testing.T) {
	snap := PaymentSnapshot{}

	allowed := []struct {
		from, to Status
	}{
		{StatusInWork, StatusQueued},
		{StatusAwaitingPrepayment, StatusInWork},
		{StatusPreparation, StatusAwaitingPrepayment},
		{StatusWarehouseProcessing, StatusPreparation},
		{StatusWarehouseReady, StatusWarehouseProcessing},
		{StatusOnTheWay, StatusWarehouseReady},
	}
	for _, tt := range allowed {
		if ok, reason := CanTransition(tt.from, tt.to, snap); !ok {
			t.Errorf("%s -> %s (one step back) rejected: %s", tt.from, tt.to, reason)
		}
	}

	rejected := []struct {
		from, to Status
	}{
		{StatusOnTheWay, StatusWarehouseProcessing},
		{StatusOnTheWay, StatusPreparation},
		{StatusWarehouseReady, StatusPreparation},
		{StatusPreparation, StatusInWork},
		{StatusWarehouseProcessing, StatusAwaitingPrepayment},
	}
	for _, tt := range rejected {
		if ok, _ := CanTransition(tt.from, tt.to, snap); ok {
			t.Errorf("%s -> %s should be rejected (jumps back more than one step)", tt.from, tt.to)
		}
	}
}

func TestCanTransitionDecline(t *testing.T) {
	snap := PaymentSnapshot{}

	for _, from := range []Status{
		StatusQueued, StatusInWork, StatusAwaitingPrepayment, StatusPreparation,
		StatusWarehouseProcessing, StatusWarehouseReady, StatusOnTheWay,
	} {
		if ok, reason := CanTransition(from, StatusDeclined, snap); !ok {
			t.Errorf("%s -> declined rejected: %s", from, reason)
		}
	}

	if ok, _ := CanTransition(StatusCompleted, StatusDeclined, snap); ok {
		t.Error("completed -> declined should be rejected")
	}
	if ok, _ := CanTransition(StatusDeclined, StatusQueued, snap); ok {
		t.Error("declined -> queued should be rejected")
	}
	if ok, _ := CanTransition(StatusCompleted, StatusOnTheWay, snap); ok {
		t.Error("completed -> on_the_way should be rejected")
	}
}

func TestCanTransitionWarehouseGuard(t *testing.T) {
	tests := []struct {
		name       string
		snap       PaymentSnapshot
		wantOK     bool
		wantReason string
	}{
		{
			name:       "no price",
			snap:       PaymentSnapshot{HasPaymentRecord: true},
			wantOK:     false,
			wantReason: ReasonPriceMissing,
		},
		{
			name:       "price but no payment record",
			snap:       PaymentSnapshot{PriceCents: 50000},
			wantOK:     false,
			wantReason: ReasonNoPaymentRecord,
		},
		{
			name:   "price and record present",
			snap:   PaymentSnapshot{PriceCents: 50000, HasPaymentRecord: true},
			wantOK: true,
		},
		{
			name:   "record suffices even with nothing received",
			snap:   PaymentSnapshot{PriceCents: 50000, ExpectedCents: 50000, HasPaymentRecord: true},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CanTransition(StatusPreparation, StatusWarehouseProcessing, tt.snap)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (reason %q)", ok, tt.wantOK, reason)
			}
			if !ok && reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestCanTransitionCompletionGuard(t *testing.T) {
	t.Run("underpaid includes shortage in reason", func(t *testing.T) {
		snap := PaymentSnapshot{PriceCents: 1000, ReceivedCents: 600, HasPaymentRecord: true}
		ok, reason := CanTransition(StatusOnTheWay, StatusCompleted, snap)
		if ok {
			t.Fatal("underpaid lead should not complete")
		}
		if !strings.Contains(reason, FormatMoney(400)) {
			t.Errorf("reason %q does not mention shortage %s", reason, FormatMoney(400))
		}
	})

	t.Run("no price", func(t *testing.T) {
		snap := PaymentSnapshot{ReceivedCents: 1000, HasPaymentRecord: true}
		ok, reason := CanTransition(StatusOnTheWay, StatusCompleted, snap)
		if ok {
			t.Fatal("lead without price should not complete")
		}
		if reason != ReasonPriceMissing {
			t.Errorf("reason = %q, want %q", reason, ReasonPriceMissing)
		}
	})

	t.Run("exactly paid", func(t *testing.T) {
		snap := PaymentSnapshot{PriceCents: 1000, ReceivedCents: 1000, HasPaymentRecord: true}
		if ok, reason := CanTransition(StatusOnTheWay, StatusCompleted, snap); !ok {
			t.Fatalf("fully paid lead rejected: %s", reason)
		}
	})

	t.Run("overpaid", func(t *testing.T) {
		snap := PaymentSnapshot{PriceCents: 1000, ReceivedCents: 1500, HasPaymentRecord: true}
		if ok, reason := CanTransition(StatusOnTheWay, StatusCompleted, snap); !ok {
			t.Fatalf("overpaid lead rejected: %s", reason)
		}
	})
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	if ok, _ := CanTransition(Status("bogus"), StatusQueued, PaymentSnapshot{}); ok {
		t.Error("unknown source status should be rejected")
	}
	if ok, _ := CanTransition(StatusQueued, Status("bogus"), PaymentSnapshot{}); ok {
		t.Error("unknown target status should be rejected")
	}
}

func TestAllowedTransitions(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		got := AllowedTransitions(StatusQueued, PaymentSnapshot{})
		assertStatusSet(t, got, []Status{StatusInWork, StatusDeclined})
	})

	t.Run("preparation without payments", func(t *testing.T) {
		got := AllowedTransitions(StatusPreparation, PaymentSnapshot{})
		assertStatusSet(t, got, []Status{StatusAwaitingPrepayment, StatusDeclined})
	})

	t.Run("preparation with price and record", func(t *testing.T) {
		snap := PaymentSnapshot{PriceCents: 50000, HasPaymentRecord: true}
		got := AllowedTransitions(StatusPreparation, snap)
		assertStatusSet(t, got, []Status{StatusAwaitingPrepayment, StatusWarehouseProcessing, StatusDeclined})
	})

	t.Run("on_the_way underpaid", func(t *testing.T) {
		snap := PaymentSnapshot{PriceCents: 1000, ReceivedCents: 600, HasPaymentRecord: true}
		got := AllowedTransitions(StatusOnTheWay, snap)
		assertStatusSet(t, got, []Status{StatusWarehouseReady, StatusDeclined})
	})

	t.Run("terminal statuses", func(t *testing.T) {
		if got := AllowedTransitions(StatusCompleted, PaymentSnapshot{}); len(got) != 0 {
			t.Errorf("completed should have no transitions, got %v", got)
		}
		if got := AllowedTransitions(StatusDeclined, PaymentSnapshot{}); len(got) != 0 {
			t.Errorf("declined should have no transitions, got %v", got)
		}
	})
}

func TestStatusesForRole(t *testing.T) {
	manager := StatusesForRole(RoleManager)
	assertStatusSet(t, manager, []Status{StatusQueued, StatusInWork, StatusAwaitingPrepayment, StatusDeclined})

	warehouse := StatusesForRole(RoleWarehouse)
	assertStatusSet(t, warehouse, []Status{
		StatusPreparation, StatusWarehouseProcessing, StatusWarehouseReady, StatusOnTheWay,
	})

	if got := StatusesForRole(RoleAdmin); len(got) != len(All()) {
		t.Errorf("admin should be able to set every status, got %v", got)
	}
	if got := StatusesForRole(Role("intern")); got != nil {
		t.Errorf("unknown role should set nothing, got %v", got)
	}

	if RoleCanSet(RoleManager, StatusCompleted) {
		t.Error("manager must not set completed")
	}
	if !RoleCanSet(RoleWarehouse, StatusWarehouseReady) {
		t.Error("warehouse must set warehouse_ready")
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{400, "4.00"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.cents); got != tt.want {
			t.Errorf("FormatMoney(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func assertStatusSet(t *testing.T, got, want []Status) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %s in %v", w, got)
		}
	}
}
