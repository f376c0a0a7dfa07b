// Package repository implements persistence for events and registrations.
//
// Two backends satisfy the same store contracts: PostgreSQL through pgx (no
// ORM) and SQLite through gorm. Stores only guarantee single-row atomicity;
// every multi-step rule lives in the service layer.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a save would create a second registration
// for the same (event, user) pair.
var ErrDuplicate = errors.New("registration already exists for this user and event")

// EventStore persists events.
type EventStore interface {
	Get(ctx context.Context, id string) (model.Event, error)
	// Save inserts or updates the event. A missing ID or CreatedAt is
	// assigned; UpdatedAt is always stamped.
	Save(ctx context.Context, event model.Event) (model.Event, error)
	// ListAllActive returns every active event, past ones included,
	// soonest first.
	ListAllActive(ctx context.Context) ([]model.Event, error)
	// ListActive returns active events dated after now, soonest first.
	ListActive(ctx context.Context, now time.Time) ([]model.Event, error)
	// ListOpen is ListActive restricted to events whose registration
	// deadline is still ahead of now.
	ListOpen(ctx context.Context, now time.Time) ([]model.Event, error)
}

// RegistrationStore persists registrations.
type RegistrationStore interface {
	Get(ctx context.Context, id string) (model.Registration, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (model.Registration, error)
	// Save inserts or updates the registration and returns ErrDuplicate if
	// another row already holds its (event, user) pair.
	Save(ctx context.Context, reg model.Registration) (model.Registration, error)
	FindByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	FindByUser(ctx context.Context, userID string) ([]model.Registration, error)
	// CountConfirmed recomputes the number of CONFIRMED registrations for
	// the event from the rows themselves.
	CountConfirmed(ctx context.Context, eventID string) (int, error)
}
