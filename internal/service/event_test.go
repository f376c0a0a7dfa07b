package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
)

func validEventInput() model.EventInput {
	return model.EventInput{
		Name:                 "Casablanca Marathon",
		Description:          "42km along the corniche",
		Location:             "Casablanca",
		EventType:            model.EventTypeMarathon,
		EventDate:            testNow.Add(30 * 24 * time.Hour),
		RegistrationDeadline: testNow.Add(25 * 24 * time.Hour),
		MaxParticipants:      500,
	}
}

func TestCreateEvent(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		env := setupService(t)
		in := validEventInput()
		in.Name = "  Casablanca Marathon "

		ev, err := env.eventService.CreateEvent(t.Context(), in)
		require.NoError(t, err)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "Casablanca Marathon", ev.Name)
		assert.True(t, ev.IsActive)
		assert.Equal(t, 0, ev.CurrentParticipants)
		assert.Equal(t, 500, ev.MaxParticipants)
	})

	t.Run("DefaultsType", func(t *testing.T) {
		env := setupService(t)
		in := validEventInput()
		in.EventType = ""

		ev, err := env.eventService.CreateEvent(t.Context(), in)
		require.NoError(t, err)
		assert.Equal(t, model.EventTypeOther, ev.EventType)
	})

	tests := []struct {
		name   string
		modify func(*model.EventInput)
	}{
		{"EmptyName", func(in *model.EventInput) { in.Name = "   " }},
		{"LongName", func(in *model.EventInput) { in.Name = strings.Repeat("x", 201) }},
		{"LongDescription", func(in *model.EventInput) { in.Description = strings.Repeat("x", 1001) }},
		{"LongLocation", func(in *model.EventInput) { in.Location = strings.Repeat("x", 101) }},
		{"UnknownType", func(in *model.EventInput) { in.EventType = "SWIM" }},
		{"MissingDate", func(in *model.EventInput) { in.EventDate = time.Time{} }},
		{"MissingDeadline", func(in *model.EventInput) { in.RegistrationDeadline = time.Time{} }},
		{"DeadlineAfterEvent", func(in *model.EventInput) { in.RegistrationDeadline = in.EventDate.Add(time.Hour) }},
		{"PastEvent", func(in *model.EventInput) {
			in.EventDate = testNow.Add(-time.Hour)
			in.RegistrationDeadline = testNow.Add(-2 * time.Hour)
		}},
		{"ZeroCapacity", func(in *model.EventInput) { in.MaxParticipants = 0 }},
		{"HugeCapacity", func(in *model.EventInput) { in.MaxParticipants = 100_001 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			in := validEventInput()
			tt.modify(&in)
			_, err := env.eventService.CreateEvent(t.Context(), in)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestUpdateEvent(t *testing.T) {
	env := setupService(t)
	ctx := t.Context()
	ev, err := env.eventService.CreateEvent(ctx, validEventInput())
	require.NoError(t, err)
	for _, user := range []string{"user-1", "user-2", "user-3"} {
		_, err := env.manager.Register(ctx, ev.ID, user, participant(user))
		require.NoError(t, err)
	}

	t.Run("LoweringCapacityKeepsRegistrants", func(t *testing.T) {
		in := validEventInput()
		in.Name = "Casablanca Half Marathon"
		in.MaxParticipants = 2

		updated, err := env.eventService.UpdateEvent(ctx, ev.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Casablanca Half Marathon", updated.Name)
		assert.Equal(t, 2, updated.MaxParticipants)
		env.assertCounterConsistent(t, ev.ID, 3)

		_, err = env.manager.Register(ctx, ev.ID, "user-4", participant("user-4"))
		assert.ErrorIs(t, err, ErrEventFull)
	})

	t.Run("Invalid", func(t *testing.T) {
		in := validEventInput()
		in.MaxParticipants = -1
		_, err := env.eventService.UpdateEvent(ctx, ev.ID, in)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := env.eventService.UpdateEvent(ctx, "missing", validEventInput())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestDeactivateEvent(t *testing.T) {
	env := setupService(t)
	ctx := t.Context()
	ev, err := env.eventService.CreateEvent(ctx, validEventInput())
	require.NoError(t, err)
	reg, err := env.manager.Register(ctx, ev.ID, "user-1", participant("amina"))
	require.NoError(t, err)

	require.NoError(t, env.eventService.DeactivateEvent(ctx, ev.ID))
	require.NoError(t, env.eventService.DeactivateEvent(ctx, ev.ID))

	got, err := env.eventService.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	upcoming, err := env.eventService.ListUpcomingEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	// Registrations of a deactivated event can still be cancelled.
	require.NoError(t, env.manager.Cancel(ctx, reg.ID, "user-1"))
	env.assertCounterConsistent(t, ev.ID, 0)

	assert.ErrorIs(t, env.eventService.DeactivateEvent(ctx, "missing"), repository.ErrNotFound)
}

func TestListEvents(t *testing.T) {
	env := setupService(t)
	ctx := t.Context()

	open := env.seedEvent(t, 10, testNow.Add(24*time.Hour), testNow.Add(48*time.Hour))
	closed := env.seedEvent(t, 10, testNow.Add(-time.Hour), testNow.Add(24*time.Hour))
	env.seedEvent(t, 10, testNow.Add(-48*time.Hour), testNow.Add(-24*time.Hour))

	upcoming, err := env.eventService.ListUpcomingEvents(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, closed.ID, upcoming[0].ID)
	assert.Equal(t, open.ID, upcoming[1].ID)

	all, err := env.eventService.ListActiveEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "past active events are included")

	openEvents, err := env.eventService.ListOpenEvents(ctx)
	require.NoError(t, err)
	require.Len(t, openEvents, 1)
	assert.Equal(t, open.ID, openEvents[0].ID)
}

func TestReconcileCounter(t *testing.T) {
	env := setupService(t)
	ctx := t.Context()
	ev := env.openEvent(t, 10)
	_, err := env.manager.Register(ctx, ev.ID, "user-1", participant("amina"))
	require.NoError(t, err)

	stale, err := env.events.Get(ctx, ev.ID)
	require.NoError(t, err)
	stale.CurrentParticipants = 7
	_, err = env.events.Save(ctx, stale)
	require.NoError(t, err)

	fixed, err := env.eventService.ReconcileCounter(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed.CurrentParticipants)
	env.assertCounterConsistent(t, ev.ID, 1)

	_, err = env.eventService.ReconcileCounter(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeedSampleEvents(t *testing.T) {
	env := setupService(t)
	ctx := t.Context()

	n, err := env.eventService.SeedSampleEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	events, err := env.eventService.ListOpenEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventTypeMarathon, events[0].EventType)
	assert.Equal(t, 500, events[0].MaxParticipants)
	assert.Equal(t, model.EventTypeRun, events[1].EventType)
	assert.Equal(t, model.EventTypeWalk, events[2].EventType)
	assert.Equal(t, 1000, events[2].MaxParticipants)

	n, err = env.eventService.SeedSampleEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding is skipped when events exist")
}
