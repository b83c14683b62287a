// README: Reservation state machine and totals (no database).
package reservation

import (
	"testing"
	"time"

	"resbot/internal/modules/catalog"
	"resbot/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// forward flow
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusAwaitingPayment, true},
		{StatusAwaitingPayment, StatusConfirmed, true},
		{StatusConfirmed, StatusCompleted, true},
		// cancellation from every non-terminal status
		{StatusPending, StatusCancelled, true},
		{StatusAwaitingPayment, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		// invalid: terminal states have no outgoing transitions
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		// invalid: backwards
		{StatusConfirmed, StatusAwaitingPayment, false},
		{StatusAwaitingPayment, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestComputeTotal(t *testing.T) {
	r := &Reservation{
		Items: []catalog.Item{
			{ProductID: "p1", Quantity: 2, UnitPrice: 32000},
			{ProductID: "p2", Quantity: 1, UnitPrice: 5000},
		},
		ServiceFee: 4000,
	}
	if got := r.ComputeTotal(); got != 73000 {
		t.Fatalf("total = %d, want 73000", got)
	}
}

func TestHasReservedStock(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusAwaitingPayment, false},
		{StatusConfirmed, true},
		{StatusCompleted, true},
		{StatusCancelled, false},
	}
	for _, tt := range tests {
		r := &Reservation{Status: tt.status}
		if got := r.HasReservedStock(); got != tt.want {
			t.Errorf("HasReservedStock(%s) = %v", tt.status, got)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAwaitingPayment, StatusConfirmed} {
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s not reported terminal", s)
		}
	}
}

func TestReservationDateWeekday(t *testing.T) {
	r := &Reservation{Date: types.Date{Year: 2026, Month: time.March, Day: 6}}
	if r.Date.Weekday() != time.Friday {
		t.Fatalf("weekday = %v", r.Date.Weekday())
	}
}
