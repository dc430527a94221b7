package order

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusReady, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusAssigned, false},
		{StatusPending, StatusDelivered, false},
		{StatusReady, StatusAssigned, true},
		{StatusReady, StatusCancelled, true},
		{StatusReady, StatusDelivered, false},
		{StatusReady, StatusPending, false},
		{StatusAssigned, StatusDelivered, true},
		{StatusAssigned, StatusCancelled, false},
		{StatusAssigned, StatusReady, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusReady, false},
		{StatusNone, StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}
