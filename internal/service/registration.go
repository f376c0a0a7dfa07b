package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/lock"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
)

// RegistrationManager admits users into events and cancels registrations.
//
// Register holds the event lock from the capacity check until the counter
// has been recomputed, so two admissions to the same event never interleave.
// The unique (event, user) index is the backstop when the lock is bypassed.
type RegistrationManager struct {
	events        repository.EventStore
	registrations repository.RegistrationStore
	counter       *CapacityCounter
	locker        lock.Locker
	opts          options
}

func NewRegistrationManager(
	events repository.EventStore,
	registrations repository.RegistrationStore,
	locker lock.Locker,
	opts ...Option,
) *RegistrationManager {
	o := buildOptions(opts)
	return &RegistrationManager{
		events:        events,
		registrations: registrations,
		counter:       NewCapacityCounter(events, registrations, o.observer),
		locker:        locker,
		opts:          o,
	}
}

// Register admits userID into the event. A previous CANCELLED (or PENDING)
// registration for the same pair is reactivated in place with the new
// participant details.
func (m *RegistrationManager) Register(ctx context.Context, eventID, userID string, in model.RegisterInput) (model.Registration, error) {
	reg, event, err := m.register(ctx, eventID, userID, in)
	m.opts.observer.TrackOperation("register", outcome(err))
	if err != nil {
		return model.Registration{}, err
	}

	slog.Info("registration confirmed",
		"event_id", eventID, "registration_id", reg.ID, "user_id", userID,
		"participants", event.CurrentParticipants, "capacity", event.MaxParticipants)
	m.notify(event, reg)
	return reg, nil
}

func (m *RegistrationManager) register(ctx context.Context, eventID, userID string, in model.RegisterInput) (model.Registration, model.Event, error) {
	in, err := normalizeRegisterInput(userID, in)
	if err != nil {
		return model.Registration{}, model.Event{}, err
	}

	unlock, err := lockEvent(ctx, m.locker, m.opts.observer, eventID)
	if err != nil {
		return model.Registration{}, model.Event{}, err
	}
	defer unlock()

	event, err := m.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Registration{}, model.Event{}, eventNotFound(eventID)
		}
		return model.Registration{}, model.Event{}, fmt.Errorf("get event: %w", err)
	}

	now := m.opts.clock.Now()
	if !event.RegistrationOpen(now) {
		if now.After(event.RegistrationDeadline) {
			return model.Registration{}, model.Event{}, ErrDeadlinePassed
		}
		return model.Registration{}, model.Event{}, ErrEventAlreadyOccurred
	}

	// The cached counter may lag the rows; admission uses the rows.
	confirmed, err := m.counter.Confirmed(ctx, eventID)
	if err != nil {
		return model.Registration{}, model.Event{}, err
	}
	if confirmed >= event.MaxParticipants {
		return model.Registration{}, model.Event{}, ErrEventFull
	}

	reg, err := m.registrations.FindByUserAndEvent(ctx, userID, eventID)
	switch {
	case err == nil:
		if reg.Status == model.StatusConfirmed {
			return model.Registration{}, model.Event{}, ErrAlreadyRegistered
		}
		slog.Info("reactivating registration", "registration_id", reg.ID, "previous_status", reg.Status)
	case errors.Is(err, repository.ErrNotFound):
		reg = model.Registration{EventID: eventID, UserID: userID}
	default:
		return model.Registration{}, model.Event{}, fmt.Errorf("find registration: %w", err)
	}

	reg.ParticipantName = in.ParticipantName
	reg.ParticipantEmail = in.ParticipantEmail
	reg.Notes = in.Notes
	reg.RegistrationDate = now
	reg.Status = model.StatusConfirmed

	saved, err := m.registrations.Save(ctx, reg)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Registration{}, model.Event{}, ErrAlreadyRegistered
		}
		return model.Registration{}, model.Event{}, fmt.Errorf("save registration: %w", err)
	}

	event, err = m.counter.Recompute(ctx, eventID)
	if err != nil {
		return model.Registration{}, model.Event{}, err
	}
	return saved, event, nil
}

// Cancel marks the caller's registration CANCELLED and frees its place.
// Cancelling an already cancelled registration succeeds without changes.
// There is no deadline on cancellation.
func (m *RegistrationManager) Cancel(ctx context.Context, registrationID, userID string) error {
	reg, event, changed, err := m.cancel(ctx, registrationID, userID)
	m.opts.observer.TrackOperation("cancel", outcome(err))
	if err != nil {
		return err
	}
	if changed {
		slog.Info("registration cancelled",
			"event_id", reg.EventID, "registration_id", reg.ID, "user_id", userID,
			"participants", event.CurrentParticipants)
		m.notify(event, reg)
	}
	return nil
}

func (m *RegistrationManager) cancel(ctx context.Context, registrationID, userID string) (model.Registration, model.Event, bool, error) {
	reg, err := m.getRegistration(ctx, registrationID)
	if err != nil {
		return model.Registration{}, model.Event{}, false, err
	}
	if reg.UserID != userID {
		return model.Registration{}, model.Event{}, false, ErrForbidden
	}

	unlock, err := lockEvent(ctx, m.locker, m.opts.observer, reg.EventID)
	if err != nil {
		return model.Registration{}, model.Event{}, false, err
	}
	defer unlock()

	// Re-read under the lock; a concurrent cancel may have won.
	reg, err = m.getRegistration(ctx, registrationID)
	if err != nil {
		return model.Registration{}, model.Event{}, false, err
	}

	changed := reg.Status != model.StatusCancelled
	if changed {
		reg.Status = model.StatusCancelled
		if reg, err = m.registrations.Save(ctx, reg); err != nil {
			return model.Registration{}, model.Event{}, false, fmt.Errorf("save registration: %w", err)
		}
	}

	event, err := m.counter.Recompute(ctx, reg.EventID)
	if err != nil {
		return model.Registration{}, model.Event{}, false, err
	}
	return reg, event, changed, nil
}

// ListEventRegistrations returns every registration of the event, whatever
// its status, most recent first.
func (m *RegistrationManager) ListEventRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := m.events.Get(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, eventNotFound(eventID)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	regs, err := m.registrations.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event registrations: %w", err)
	}
	return regs, nil
}

// ListUpcomingUserRegistrations returns the user's CONFIRMED registrations
// for events that have not happened yet, soonest event first.
func (m *RegistrationManager) ListUpcomingUserRegistrations(ctx context.Context, userID string) ([]model.Registration, error) {
	regs, err := m.registrations.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}

	now := m.opts.clock.Now()
	events := make(map[string]model.Event)
	var upcoming []model.Registration
	for _, reg := range regs {
		if reg.Status != model.StatusConfirmed {
			continue
		}
		event, ok := events[reg.EventID]
		if !ok {
			event, err = m.events.Get(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					slog.Warn("registration references missing event", "registration_id", reg.ID, "event_id", reg.EventID)
					continue
				}
				return nil, fmt.Errorf("get event: %w", err)
			}
			events[reg.EventID] = event
		}
		if event.EventDate.After(now) {
			upcoming = append(upcoming, reg)
		}
	}

	slices.SortStableFunc(upcoming, func(a, b model.Registration) int {
		return events[a.EventID].EventDate.Compare(events[b.EventID].EventDate)
	})
	if upcoming == nil {
		upcoming = []model.Registration{}
	}
	return upcoming, nil
}

// ListUserRegistrations returns all of the user's registrations, including
// cancelled ones, most recent first.
func (m *RegistrationManager) ListUserRegistrations(ctx context.Context, userID string) ([]model.Registration, error) {
	regs, err := m.registrations.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	return regs, nil
}

func (m *RegistrationManager) getRegistration(ctx context.Context, id string) (model.Registration, error) {
	reg, err := m.registrations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Registration{}, registrationNotFound(id)
		}
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// notify is best effort; a failed message never undoes a registration.
func (m *RegistrationManager) notify(event model.Event, reg model.Registration) {
	if m.opts.notifier == nil {
		return
	}
	if err := m.opts.notifier.NotifyRegistration(event, reg); err != nil {
		slog.Warn("registration notification failed", "registration_id", reg.ID, "error", err)
	}
}

func normalizeRegisterInput(userID string, in model.RegisterInput) (model.RegisterInput, error) {
	in.ParticipantName = strings.TrimSpace(in.ParticipantName)
	in.ParticipantEmail = strings.ToLower(strings.TrimSpace(in.ParticipantEmail))
	in.Notes = strings.TrimSpace(in.Notes)

	switch {
	case strings.TrimSpace(userID) == "":
		return in, fmt.Errorf("%w: user is required", ErrInvalidRegistration)
	case in.ParticipantName == "":
		return in, fmt.Errorf("%w: participant name is required", ErrInvalidRegistration)
	case len(in.ParticipantName) > 100:
		return in, fmt.Errorf("%w: participant name cannot exceed 100 characters", ErrInvalidRegistration)
	case in.ParticipantEmail == "":
		return in, fmt.Errorf("%w: participant email is required", ErrInvalidRegistration)
	case !isValidEmail(in.ParticipantEmail):
		return in, fmt.Errorf("%w: invalid email format", ErrInvalidRegistration)
	case len(in.Notes) > 500:
		return in, fmt.Errorf("%w: notes cannot exceed 500 characters", ErrInvalidRegistration)
	}
	return in, nil
}
