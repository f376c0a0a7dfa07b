// Package model defines the core domain types for the event registration system.
package model

import (
	"fmt"
	"time"
)

// EventType classifies a physical event. It is display-only and plays no
// part in admission.
type EventType string

const (
	EventTypeMarathon EventType = "MARATHON"
	EventTypeRun      EventType = "RUN"
	EventTypeWalk     EventType = "WALK"
	EventTypeOther    EventType = "OTHER"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeMarathon, EventTypeRun, EventTypeWalk, EventTypeOther:
		return true
	}
	return false
}

// Event is a scheduled physical activity with a fixed capacity.
//
// CurrentParticipants is a cached copy of the number of CONFIRMED
// registrations. It is only ever written by recomputing that number from the
// registration store.
type Event struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Location             string    `json:"location"`
	EventType            EventType `json:"event_type"`
	EventDate            time.Time `json:"event_date"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	MaxParticipants      int       `json:"max_participants"`
	CurrentParticipants  int       `json:"current_participants"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Remaining returns the number of free places according to the cached counter.
func (e Event) Remaining() int {
	if n := e.MaxParticipants - e.CurrentParticipants; n > 0 {
		return n
	}
	return 0
}

// IsFull reports whether the cached counter has reached capacity.
func (e Event) IsFull() bool {
	return e.CurrentParticipants >= e.MaxParticipants
}

// RegistrationOpen reports whether registrations are accepted at now.
func (e Event) RegistrationOpen(now time.Time) bool {
	return !now.After(e.RegistrationDeadline) && !now.After(e.EventDate)
}

// Status is the lifecycle state of a Registration.
type Status string

const (
	// StatusPending is reserved for asynchronous confirmation; no current
	// flow produces it.
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

// Registration is one user's binding intent to take part in one event.
// There is at most one Registration per (EventID, UserID).
type Registration struct {
	ID               string    `json:"id"`
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	ParticipantName  string    `json:"participant_name"`
	ParticipantEmail string    `json:"participant_email"`
	Notes            string    `json:"notes"`
	RegistrationDate time.Time `json:"registration_date"`
	Status           Status    `json:"status"`
}

// EventInput carries the admin-editable fields of an Event.
type EventInput struct {
	Name                 string
	Description          string
	Location             string
	EventType            EventType
	EventDate            time.Time
	RegistrationDeadline time.Time
	MaxParticipants      int
}

// RegisterInput is the participant data supplied with a registration.
type RegisterInput struct {
	ParticipantName  string
	ParticipantEmail string
	Notes            string
}

// RegistrationResult summarises the outcome of a single registration attempt.
// Used by the concurrent test harness.
type RegistrationResult struct {
	UserID       string
	Registration Registration
	Err          error
}
