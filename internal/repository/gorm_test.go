package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
)

func setupGorm(t *testing.T) (*GormEventStore, *GormRegistrationStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to connect database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, MigrateGorm(db))
	return NewGormEventStore(db), NewGormRegistrationStore(db)
}

func testEvent(name string, date time.Time) model.Event {
	return model.Event{
		Name:                 name,
		Location:             "Rabat",
		EventType:            model.EventTypeWalk,
		EventDate:            date,
		RegistrationDeadline: date.Add(-24 * time.Hour),
		MaxParticipants:      10,
		IsActive:             true,
	}
}

func TestGormEventStore(t *testing.T) {
	ctx := context.Background()
	events, _ := setupGorm(t)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SaveAssignsIDAndTimestamps", func(t *testing.T) {
		saved, err := events.Save(ctx, testEvent("walk", now.Add(72*time.Hour)))
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())
		assert.False(t, saved.UpdatedAt.IsZero())

		got, err := events.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "walk", got.Name)
		assert.Equal(t, model.EventTypeWalk, got.EventType)
		assert.True(t, got.EventDate.Equal(saved.EventDate))
	})

	t.Run("SaveUpdatesExisting", func(t *testing.T) {
		saved, err := events.Save(ctx, testEvent("before", now.Add(96*time.Hour)))
		require.NoError(t, err)

		saved.Name = "after"
		saved.CurrentParticipants = 3
		_, err = events.Save(ctx, saved)
		require.NoError(t, err)

		got, err := events.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Name)
		assert.Equal(t, 3, got.CurrentParticipants)
		assert.True(t, got.CreatedAt.Equal(saved.CreatedAt))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := events.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGormEventStore_Listings(t *testing.T) {
	ctx := context.Background()
	events, _ := setupGorm(t)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	later, err := events.Save(ctx, testEvent("later", now.Add(10*24*time.Hour)))
	require.NoError(t, err)
	sooner, err := events.Save(ctx, testEvent("sooner", now.Add(5*24*time.Hour)))
	require.NoError(t, err)

	closing := testEvent("deadline passed", now.Add(3*24*time.Hour))
	closing.RegistrationDeadline = now.Add(-time.Hour)
	closing, err = events.Save(ctx, closing)
	require.NoError(t, err)

	_, err = events.Save(ctx, testEvent("past", now.Add(-48*time.Hour)))
	require.NoError(t, err)

	inactive := testEvent("inactive", now.Add(4*24*time.Hour))
	inactive.IsActive = false
	_, err = events.Save(ctx, inactive)
	require.NoError(t, err)

	active, err := events.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []string{closing.ID, sooner.ID, later.ID}, []string{active[0].ID, active[1].ID, active[2].ID})

	all, err := events.ListAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4, "past events included, inactive excluded")
	assert.Equal(t, "past", all[0].Name)

	open, err := events.ListOpen(ctx, now)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, sooner.ID, open[0].ID)
	assert.Equal(t, later.ID, open[1].ID)
}

func TestGormRegistrationStore(t *testing.T) {
	ctx := context.Background()
	events, regs := setupGorm(t)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	ev, err := events.Save(ctx, testEvent("run", now.Add(72*time.Hour)))
	require.NoError(t, err)

	first, err := regs.Save(ctx, model.Registration{
		EventID: ev.ID, UserID: "u1", ParticipantName: "One", ParticipantEmail: "one@example.com",
		RegistrationDate: now, Status: model.StatusConfirmed,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = regs.Save(ctx, model.Registration{
		EventID: ev.ID, UserID: "u2", ParticipantName: "Two", ParticipantEmail: "two@example.com",
		RegistrationDate: now.Add(time.Minute), Status: model.StatusCancelled,
	})
	require.NoError(t, err)

	t.Run("FindByUserAndEvent", func(t *testing.T) {
		got, err := regs.FindByUserAndEvent(ctx, "u1", ev.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, model.StatusConfirmed, got.Status)

		_, err = regs.FindByUserAndEvent(ctx, "nobody", ev.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Get", func(t *testing.T) {
		got, err := regs.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "one@example.com", got.ParticipantEmail)

		_, err = regs.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CountConfirmed", func(t *testing.T) {
		n, err := regs.CountConfirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("FindByEventNewestFirst", func(t *testing.T) {
		list, err := regs.FindByEvent(ctx, ev.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "u2", list[0].UserID)
		assert.Equal(t, "u1", list[1].UserID)
	})

	t.Run("FindByUser", func(t *testing.T) {
		list, err := regs.FindByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, ev.ID, list[0].EventID)
	})

	t.Run("UpdateInPlace", func(t *testing.T) {
		first.Status = model.StatusCancelled
		_, err := regs.Save(ctx, first)
		require.NoError(t, err)

		n, err := regs.CountConfirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("DuplicatePairRejected", func(t *testing.T) {
		_, err := regs.Save(ctx, model.Registration{
			EventID: ev.ID, UserID: "u1", ParticipantName: "Again", ParticipantEmail: "again@example.com",
			RegistrationDate: now, Status: model.StatusConfirmed,
		})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}
