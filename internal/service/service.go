// Package service implements business logic, validation, and orchestration
// between the HTTP handlers and the repository layer.
//
// Every mutation of an event's registrations or participant counter runs
// under that event's lock, and every such mutation ends by re-deriving the
// counter from the registration rows.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/lock"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/notifier"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
)

// Business-rule rejections. None of them leaves a partial state change.
var (
	ErrDeadlinePassed       = errors.New("registration deadline has passed")
	ErrEventAlreadyOccurred = errors.New("event has already taken place")
	ErrEventFull            = errors.New("event is fully booked")
	ErrAlreadyRegistered    = errors.New("user is already registered for this event")
	ErrForbidden            = errors.New("registration belongs to another user")
	ErrInvalidEvent         = errors.New("invalid event")
	ErrInvalidRegistration  = errors.New("invalid registration")
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// Observer receives operational measurements. monitoring.Monitor satisfies it.
type Observer interface {
	TrackOperation(operation, outcome string)
	SetParticipants(eventID string, n int)
	TrackLockWait(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) TrackOperation(string, string) {}
func (nopObserver) SetParticipants(string, int)   {}
func (nopObserver) TrackLockWait(time.Duration)   {}

type options struct {
	clock    Clock
	notifier notifier.Notifier
	observer Observer
}

type Option func(*options)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithNotifier sends a message after each successful register or cancel.
func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func buildOptions(opts []Option) options {
	o := options{clock: SystemClock(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lockEvent takes the per-event lock and records how long that took.
func lockEvent(ctx context.Context, l lock.Locker, obs Observer, eventID string) (func(), error) {
	start := time.Now()
	unlock, err := l.Lock(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", eventID, err)
	}
	obs.TrackLockWait(time.Since(start))
	return unlock, nil
}

func eventNotFound(id string) error {
	return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
}

func registrationNotFound(id string) error {
	return fmt.Errorf("registration %s: %w", id, repository.ErrNotFound)
}

// outcome maps an operation result to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, ErrEventAlreadyOccurred):
		return "event_occurred"
	case errors.Is(err, ErrEventFull):
		return "event_full"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidRegistration), errors.Is(err, ErrInvalidEvent):
		return "invalid"
	}
	return "error"
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
