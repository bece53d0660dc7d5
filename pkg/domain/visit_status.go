package domain

import "fmt"

// VisitStatus is the closed set of visit lifecycle states. Keeping it a
// dedicated type with a parse function means an invalid state can only enter
// the system through a rejected parse, never through a stray string.
type VisitStatus string

const (
	StatusScheduled  VisitStatus = "SCHEDULED"
	StatusCheckedIn  VisitStatus = "CHECKED_IN"
	StatusInProgress VisitStatus = "IN_PROGRESS"
	StatusCheckedOut VisitStatus = "CHECKED_OUT"
	StatusVerified   VisitStatus = "VERIFIED"
	StatusFlagged    VisitStatus = "FLAGGED"
	StatusClosed     VisitStatus = "CLOSED"
)

// transitions is the full lifecycle graph. VERIFIED and CLOSED are terminal
// for automated processing; FLAGGED is only left through reviewer resolution
// or a check-in retry.
var transitions = map[VisitStatus][]VisitStatus{
	StatusScheduled:  {StatusCheckedIn},
	StatusCheckedIn:  {StatusInProgress, StatusCheckedOut},
	StatusInProgress: {StatusCheckedOut},
	StatusCheckedOut: {StatusVerified, StatusFlagged},
	StatusFlagged:    {StatusCheckedIn, StatusVerified, StatusClosed},
	StatusVerified:   {},
	StatusClosed:     {},
}

func ParseVisitStatus(s string) (VisitStatus, error) {
	status := VisitStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown visit status %q", s)
	}
	return status, nil
}

func (s VisitStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s VisitStatus) String() string { return string(s) }

// IsTerminal reports whether automated processing may still mutate the visit.
func (s VisitStatus) IsTerminal() bool {
	return s == StatusVerified || s == StatusClosed
}

// CanTransitionTo reports whether the lifecycle graph permits moving from s
// to next.
func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
