// Package model contains domain entities passed between layers.
package model

// Status represents the lifecycle state of a bidding.
type Status string

// Bidding lifecycle states. PENDING is initial; CLOSED and CANCELED are
// terminal for status purposes.
const (
	StatusPending  Status = "PENDING"
	StatusOngoing  Status = "ONGOING"
	StatusClosed   Status = "CLOSED"
	StatusCanceled Status = "CANCELED"
)

// Display phases derived from status plus contract presence. "CONTRACTED" is
// never stored; it is computed on snapshots of CLOSED biddings that acquired
// a live contract.
const (
	PhaseContracted = "CONTRACTED"
)

// validTransitions is the complete transition table. Absent edges are rejected.
var validTransitions = map[Status][]Status{
	StatusPending:  {StatusOngoing, StatusCanceled},
	StatusOngoing:  {StatusClosed, StatusCanceled},
	StatusClosed:   {},
	StatusCanceled: {},
}

// Valid reports whether s is one of the defined enum values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusClosed, StatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge s -> target is in the table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range validTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status transitions are possible.
func (s Status) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// AcceptsParticipations reports whether new participations may be submitted.
// Closing a bidding freezes submission; only PENDING and ONGOING accept bids.
func (s Status) AcceptsParticipations() bool {
	return s == StatusPending || s == StatusOngoing
}
