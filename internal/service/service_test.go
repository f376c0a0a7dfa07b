package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/database"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/lock"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
)

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Registration
	err  error
}

func (n *recordingNotifier) NotifyRegistration(_ model.Event, reg model.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, reg)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingObserver struct {
	mu           sync.Mutex
	operations   map[string]int
	participants map[string]int
	lockWaits    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{operations: map[string]int{}, participants: map[string]int{}}
}

func (o *recordingObserver) TrackOperation(operation, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations[operation+"/"+outcome]++
}

func (o *recordingObserver) SetParticipants(eventID string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.participants[eventID] = n
}

func (o *recordingObserver) TrackLockWait(time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lockWaits++
}

type testEnv struct {
	events        *repository.GormEventStore
	registrations *repository.GormRegistrationStore
	clock         *fixedClock
	notifier      *recordingNotifier
	observer      *recordingObserver
	manager       *RegistrationManager
	eventService  *EventService
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.MigrateGorm(db))

	env := &testEnv{
		events:        repository.NewGormEventStore(db),
		registrations: repository.NewGormRegistrationStore(db),
		clock:         &fixedClock{now: testNow},
		notifier:      &recordingNotifier{},
		observer:      newRecordingObserver(),
	}
	locker := lock.NewLocal()
	opts := []Option{WithClock(env.clock), WithNotifier(env.notifier), WithObserver(env.observer)}
	env.manager = NewRegistrationManager(env.events, env.registrations, locker, opts...)
	env.eventService = NewEventService(env.events, env.registrations, locker, opts...)
	return env
}

// seedEvent stores an event directly, bypassing validation.
func (env *testEnv) seedEvent(t *testing.T, capacity int, deadline, date time.Time) model.Event {
	t.Helper()
	ev, err := env.events.Save(t.Context(), model.Event{
		Name:                 "Charity Run",
		Location:             "Rabat",
		EventType:            model.EventTypeRun,
		EventDate:            date,
		RegistrationDeadline: deadline,
		MaxParticipants:      capacity,
		IsActive:             true,
	})
	require.NoError(t, err)
	return ev
}

func (env *testEnv) openEvent(t *testing.T, capacity int) model.Event {
	t.Helper()
	return env.seedEvent(t, capacity, testNow.Add(24*time.Hour), testNow.Add(48*time.Hour))
}

// assertCounterConsistent checks the cached counter against the rows.
func (env *testEnv) assertCounterConsistent(t *testing.T, eventID string, want int) {
	t.Helper()
	confirmed, err := env.registrations.CountConfirmed(t.Context(), eventID)
	require.NoError(t, err)
	ev, err := env.events.Get(t.Context(), eventID)
	require.NoError(t, err)
	assert.Equal(t, want, confirmed, "confirmed rows")
	assert.Equal(t, want, ev.CurrentParticipants, "cached counter")
}

func participant(name string) model.RegisterInput {
	return model.RegisterInput{ParticipantName: name, ParticipantEmail: name + "@example.com"}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{eventNotFound("e1"), "not_found"},
		{ErrDeadlinePassed, "deadline_passed"},
		{ErrEventAlreadyOccurred, "event_occurred"},
		{ErrEventFull, "event_full"},
		{ErrAlreadyRegistered, "already_registered"},
		{ErrForbidden, "forbidden"},
		{ErrInvalidEvent, "invalid"},
		{errors.New("disk on fire"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, isValidEmail("amina@example.com"))
	assert.False(t, isValidEmail("amina.example.com"))
	assert.False(t, isValidEmail("@example.com"))
	assert.False(t, isValidEmail("amina@localhost"))
	assert.False(t, isValidEmail("a@b@c.com"))
}
