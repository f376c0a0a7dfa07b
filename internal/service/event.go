package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/lock"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 1000
	maxLocationLen    = 100
	maxCapacity       = 100_000
)

// EventService orchestrates the administrative event operations.
type EventService struct {
	events  repository.EventStore
	counter *CapacityCounter
	locker  lock.Locker
	opts    options
}

// NewEventService constructs an EventService. The locker must be the same
// one the RegistrationManager uses.
func NewEventService(
	events repository.EventStore,
	registrations repository.RegistrationStore,
	locker lock.Locker,
	opts ...Option,
) *EventService {
	o := buildOptions(opts)
	return &EventService{
		events:  events,
		counter: NewCapacityCounter(events, registrations, o.observer),
		locker:  locker,
		opts:    o,
	}
}

// CreateEvent validates the input and stores a new active event with no
// participants.
func (s *EventService) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	in, err := normalizeEventInput(in)
	if err != nil {
		return model.Event{}, err
	}
	if !in.EventDate.After(s.opts.clock.Now()) {
		return model.Event{}, fmt.Errorf("%w: event date must be in the future", ErrInvalidEvent)
	}

	event := model.Event{
		Name:                 in.Name,
		Description:          in.Description,
		Location:             in.Location,
		EventType:            in.EventType,
		EventDate:            in.EventDate,
		RegistrationDeadline: in.RegistrationDeadline,
		MaxParticipants:      in.MaxParticipants,
		CurrentParticipants:  0,
		IsActive:             true,
	}
	saved, err := s.events.Save(ctx, event)
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	slog.Info("event created", "event_id", saved.ID, "name", saved.Name, "capacity", saved.MaxParticipants)
	return saved, nil
}

// UpdateEvent replaces the editable fields of an event. Lowering the
// capacity never evicts confirmed registrants; it only affects later
// admissions. The participant counter is left untouched.
func (s *EventService) UpdateEvent(ctx context.Context, id string, in model.EventInput) (model.Event, error) {
	in, err := normalizeEventInput(in)
	if err != nil {
		return model.Event{}, err
	}

	unlock, err := lockEvent(ctx, s.locker, s.opts.observer, id)
	if err != nil {
		return model.Event{}, err
	}
	defer unlock()

	event, err := s.get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}

	event.Name = in.Name
	event.Description = in.Description
	event.Location = in.Location
	event.EventType = in.EventType
	event.EventDate = in.EventDate
	event.RegistrationDeadline = in.RegistrationDeadline
	event.MaxParticipants = in.MaxParticipants

	saved, err := s.events.Save(ctx, event)
	if err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	if saved.CurrentParticipants > saved.MaxParticipants {
		slog.Warn("capacity lowered below confirmed participants",
			"event_id", id, "capacity", saved.MaxParticipants, "confirmed", saved.CurrentParticipants)
	}
	return saved, nil
}

// DeactivateEvent soft-deletes an event. Its registrations stay addressable.
func (s *EventService) DeactivateEvent(ctx context.Context, id string) error {
	unlock, err := lockEvent(ctx, s.locker, s.opts.observer, id)
	if err != nil {
		return err
	}
	defer unlock()

	event, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !event.IsActive {
		return nil
	}
	event.IsActive = false
	if _, err := s.events.Save(ctx, event); err != nil {
		return fmt.Errorf("deactivate event: %w", err)
	}
	slog.Info("event deactivated", "event_id", id)
	return nil
}

// GetEvent returns a single event, active or not.
func (s *EventService) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return s.get(ctx, id)
}

// ListActiveEvents returns every active event, including those that have
// already taken place.
func (s *EventService) ListActiveEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.ListAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	return events, nil
}

// ListUpcomingEvents returns active events that have not happened yet.
func (s *EventService) ListUpcomingEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.ListActive(ctx, s.opts.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

// ListOpenEvents returns upcoming events still accepting registrations.
func (s *EventService) ListOpenEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.ListOpen(ctx, s.opts.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list open events: %w", err)
	}
	return events, nil
}

// ReconcileCounter re-derives the participant counter of one event. Every
// register and cancel already does this; the operation exists to repair a
// counter left stale by a failure between a registration write and its
// recompute.
func (s *EventService) ReconcileCounter(ctx context.Context, id string) (model.Event, error) {
	unlock, err := lockEvent(ctx, s.locker, s.opts.observer, id)
	if err != nil {
		return model.Event{}, err
	}
	defer unlock()

	before, err := s.get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	after, err := s.counter.Recompute(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if before.CurrentParticipants != after.CurrentParticipants {
		slog.Warn("participant counter drift repaired",
			"event_id", id, "cached", before.CurrentParticipants, "confirmed", after.CurrentParticipants)
	}
	return after, nil
}

// SeedSampleEvents stores three demonstration events when the store holds
// no active event. It returns the number of events created.
func (s *EventService) SeedSampleEvents(ctx context.Context) (int, error) {
	existing, err := s.events.ListAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("check existing events: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	day := s.opts.clock.Now().Truncate(24 * time.Hour)
	samples := []model.EventInput{
		{
			Name:                 "Casablanca Charity Marathon",
			Description:          "A 42km marathon through the streets of Casablanca. Every finisher raises funds for the cause.",
			Location:             "Casablanca, Morocco",
			EventType:            model.EventTypeMarathon,
			EventDate:            day.Add(30*24*time.Hour + 8*time.Hour),
			RegistrationDeadline: day.Add(25*24*time.Hour + 23*time.Hour + 59*time.Minute),
			MaxParticipants:      500,
		},
		{
			Name:                 "Marrakech Solidarity Run",
			Description:          "A 10km run in the red city of Marrakech.",
			Location:             "Marrakech, Morocco",
			EventType:            model.EventTypeRun,
			EventDate:            day.Add(60*24*time.Hour + 9*time.Hour),
			RegistrationDeadline: day.Add(55*24*time.Hour + 23*time.Hour + 59*time.Minute),
			MaxParticipants:      300,
		},
		{
			Name:                 "Rabat Solidarity Walk",
			Description:          "A 5km walk open to everyone in the capital.",
			Location:             "Rabat, Morocco",
			EventType:            model.EventTypeWalk,
			EventDate:            day.Add(90*24*time.Hour + 10*time.Hour),
			RegistrationDeadline: day.Add(85*24*time.Hour + 23*time.Hour + 59*time.Minute),
			MaxParticipants:      1000,
		},
	}
	for i, in := range samples {
		if _, err := s.CreateEvent(ctx, in); err != nil {
			return i, fmt.Errorf("seed %q: %w", in.Name, err)
		}
	}
	return len(samples), nil
}

func (s *EventService) get(ctx context.Context, id string) (model.Event, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Event{}, eventNotFound(id)
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func normalizeEventInput(in model.EventInput) (model.EventInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if in.EventType == "" {
		in.EventType = model.EventTypeOther
	}

	switch {
	case in.Name == "":
		return in, fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	case len(in.Name) > maxNameLen:
		return in, fmt.Errorf("%w: event name cannot exceed %d characters", ErrInvalidEvent, maxNameLen)
	case len(in.Description) > maxDescriptionLen:
		return in, fmt.Errorf("%w: description cannot exceed %d characters", ErrInvalidEvent, maxDescriptionLen)
	case len(in.Location) > maxLocationLen:
		return in, fmt.Errorf("%w: location cannot exceed %d characters", ErrInvalidEvent, maxLocationLen)
	case !in.EventType.Valid():
		return in, fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, in.EventType)
	case in.EventDate.IsZero():
		return in, fmt.Errorf("%w: event date is required", ErrInvalidEvent)
	case in.RegistrationDeadline.IsZero():
		return in, fmt.Errorf("%w: registration deadline is required", ErrInvalidEvent)
	case in.RegistrationDeadline.After(in.EventDate):
		return in, fmt.Errorf("%w: registration deadline must not be after the event date", ErrInvalidEvent)
	case in.MaxParticipants <= 0:
		return in, fmt.Errorf("%w: capacity must be a positive integer", ErrInvalidEvent)
	case in.MaxParticipants > maxCapacity:
		return in, fmt.Errorf("%w: capacity cannot exceed 100,000", ErrInvalidEvent)
	}

	in.EventDate = in.EventDate.UTC()
	in.RegistrationDeadline = in.RegistrationDeadline.UTC()
	return in, nil
}
