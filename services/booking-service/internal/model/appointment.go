package model

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Occupying reports whether an appointment in this status reserves calendar time.
func (s Status) Occupying() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// OccupyingStatuses lists the statuses that block a time range, in storage order.
var OccupyingStatuses = []Status{StatusPending, StatusConfirmed, StatusInProgress}

type Appointment struct {
	ID                 string
	CustomerID         string
	ProviderID         string // empty when unassigned
	ServiceID          string
	VehicleID          string
	StartTime          time.Time
	EndTime            time.Time
	Status             Status
	Notes              string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether next is an edge of the appointment state
// machine. Completed and cancelled are terminal. A no-op write is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}
