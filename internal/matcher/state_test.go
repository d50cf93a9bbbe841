package matcher

import (
	"testing"

	"github.com/example/taxi-dispatch/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.RideState
		want     bool
	}{
		{models.StateIdle, models.StateRequested, true},
		{models.StateRequested, models.StateAccepted, true},
		{models.StateRequested, models.StateRejected, true},
		{models.StateRequested, models.StateCancelled, true},
		{models.StateAccepted, models.StatePickupReached, true},
		{models.StateAccepted, models.StateCancelled, true},
		{models.StatePickupReached, models.StateTripStarted, true},
		{models.StatePickupReached, models.StateTripEnded, true},
		{models.StateTripStarted, models.StateTripEnded, true},
		{models.StateTripEnded, models.StateIdle, true},

		{models.StateIdle, models.StateAccepted, false},
		{models.StateRequested, models.StateTripStarted, false},
		{models.StateAccepted, models.StateRejected, false},
		{models.StatePickupReached, models.StateCancelled, false},
		{models.StateTripStarted, models.StateCancelled, false},
		{models.StateTripEnded, models.StateRequested, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatesFoldToIdle(t *testing.T) {
	for from, tos := range AllowedTransitions {
		if !terminal(from) {
			continue
		}
		if len(tos) != 1 || tos[0] != models.StateIdle {
			t.Fatalf("%s should only lead back to idle, got %v", from, tos)
		}
	}
}
