package order

import "fmt"

type Status string

// remember to add new statuses to the transitions table below
const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusProcessed Status = "PROCESSED"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the full lifecycle graph. CANCELLED is reachable from any
// non-terminal state; COMPLETED and CANCELLED are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusProcessed, StatusCancelled},
	StatusProcessed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// RevenueStatuses are the statuses counted as realized sales by the
// dashboard stats and report endpoints.
var RevenueStatuses = []Status{StatusPaid, StatusProcessed, StatusShipped, StatusCompleted}

func ToStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := transitions[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
