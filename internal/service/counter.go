package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
)

// CapacityCounter owns the relation between the registration rows and the
// cached Event.CurrentParticipants field. The rows are the source of truth;
// the field is only ever overwritten with a fresh count.
type CapacityCounter struct {
	events        repository.EventStore
	registrations repository.RegistrationStore
	observer      Observer
}

func NewCapacityCounter(events repository.EventStore, registrations repository.RegistrationStore, obs Observer) *CapacityCounter {
	if obs == nil {
		obs = nopObserver{}
	}
	return &CapacityCounter{events: events, registrations: registrations, observer: obs}
}

// Confirmed returns the authoritative number of CONFIRMED registrations.
func (c *CapacityCounter) Confirmed(ctx context.Context, eventID string) (int, error) {
	n, err := c.registrations.CountConfirmed(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count confirmed for event %s: %w", eventID, err)
	}
	return n, nil
}

// Recompute writes the authoritative count into the event's cached counter
// and returns the persisted event. Callers must hold the event lock.
func (c *CapacityCounter) Recompute(ctx context.Context, eventID string) (model.Event, error) {
	n, err := c.Confirmed(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}

	event, err := c.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Event{}, eventNotFound(eventID)
		}
		return model.Event{}, fmt.Errorf("load event %s: %w", eventID, err)
	}

	event.CurrentParticipants = n
	saved, err := c.events.Save(ctx, event)
	if err != nil {
		return model.Event{}, fmt.Errorf("persist participant count for event %s: %w", eventID, err)
	}
	c.observer.SetParticipants(eventID, n)
	return saved, nil
}
