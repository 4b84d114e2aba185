package intervention

import (
	"errors"
	"testing"
)

func TestTransition_LegalEdges(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusCandidate, StatusPendingApproval},
		{StatusCandidate, StatusScheduled},
		{StatusCandidate, StatusCanceled},
		{StatusPendingApproval, StatusScheduled},
		{StatusPendingApproval, StatusFailed},
		{StatusPendingApproval, StatusCanceled},
		{StatusScheduled, StatusSent},
		{StatusScheduled, StatusFailed},
		{StatusScheduled, StatusCanceled},
		{StatusSent, StatusDelivered},
		{StatusSent, StatusFailed},
		{StatusSent, StatusCanceled},
	}
	for _, e := range legal {
		if err := Transition(e.from, e.to); err != nil {
			t.Errorf("Transition(%s, %s) = %v, expected legal", e.from, e.to, err)
		}
	}
}

func TestTransition_IllegalEdges(t *testing.T) {
	illegal := []struct{ from, to Status }{
		{StatusCandidate, StatusSent},
		{StatusCandidate, StatusDelivered},
		{StatusScheduled, StatusPendingApproval},
		{StatusSent, StatusScheduled},
		{StatusDelivered, StatusSent},
		{StatusFailed, StatusScheduled},
		{StatusCanceled, StatusScheduled},
		{StatusDelivered, StatusFailed},
	}
	for _, e := range illegal {
		err := Transition(e.from, e.to)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Transition(%s, %s) = %v, expected ErrInvalidTransition", e.from, e.to, err)
		}
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	if err := Transition("BOGUS", StatusSent); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("unknown from-status accepted: %v", err)
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCandidate:       false,
		StatusPendingApproval: false,
		StatusScheduled:       false,
		StatusSent:            false,
		StatusDelivered:       true,
		StatusFailed:          true,
		StatusCanceled:        true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, expected %v", s, got, want)
		}
	}
	if Status("BOGUS").Terminal() {
		t.Error("unknown status reported terminal")
	}
}

func TestStatusValid(t *testing.T) {
	for s := range map[Status]bool{
		StatusCandidate: true, StatusPendingApproval: true, StatusScheduled: true,
		StatusSent: true, StatusDelivered: true, StatusFailed: true, StatusCanceled: true,
	} {
		if !s.Valid() {
			t.Errorf("%s reported invalid", s)
		}
	}
	if Status("BOGUS").Valid() {
		t.Error("unknown status reported valid")
	}
}
