package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
)

type eventRecord struct {
	ID                   string `gorm:"primaryKey"`
	Name                 string `gorm:"not null"`
	Description          string
	Location             string
	EventType            string
	EventDate            time.Time `gorm:"index:idx_events_active_date,priority:2"`
	RegistrationDeadline time.Time
	MaxParticipants      int
	CurrentParticipants  int
	IsActive             bool `gorm:"index:idx_events_active_date,priority:1"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (eventRecord) TableName() string { return "events" }

type registrationRecord struct {
	ID               string `gorm:"primaryKey"`
	EventID          string `gorm:"not null;uniqueIndex:uq_registrations_event_user"`
	UserID           string `gorm:"not null;uniqueIndex:uq_registrations_event_user;index"`
	ParticipantName  string
	ParticipantEmail string
	Notes            string
	RegistrationDate time.Time
	Status           string `gorm:"index"`
}

func (registrationRecord) TableName() string { return "registrations" }

// MigrateGorm creates or updates the SQLite tables.
func MigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&eventRecord{}, &registrationRecord{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// GormEventStore handles event persistence through gorm.
type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

func (r *GormEventStore) Get(ctx context.Context, id string) (model.Event, error) {
	var rec eventRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *GormEventStore) Save(ctx context.Context, e model.Event) (model.Event, error) {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	rec := eventRecordFromDomain(e)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return model.Event{}, fmt.Errorf("save event: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *GormEventStore) ListAllActive(ctx context.Context) ([]model.Event, error) {
	return r.list(r.db.WithContext(ctx).Where("is_active = ?", true))
}

func (r *GormEventStore) ListActive(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.list(r.db.WithContext(ctx).
		Where("is_active = ? AND event_date > ?", true, now.UTC()))
}

func (r *GormEventStore) ListOpen(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.list(r.db.WithContext(ctx).
		Where("is_active = ? AND event_date > ? AND registration_deadline > ?", true, now.UTC(), now.UTC()))
}

func (r *GormEventStore) list(q *gorm.DB) ([]model.Event, error) {
	var recs []eventRecord
	if err := q.Order("event_date ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]model.Event, 0, len(recs))
	for _, rec := range recs {
		events = append(events, rec.toDomain())
	}
	return events, nil
}

func eventRecordFromDomain(e model.Event) eventRecord {
	return eventRecord{
		ID:                   e.ID,
		Name:                 e.Name,
		Description:          e.Description,
		Location:             e.Location,
		EventType:            string(e.EventType),
		EventDate:            e.EventDate.UTC(),
		RegistrationDeadline: e.RegistrationDeadline.UTC(),
		MaxParticipants:      e.MaxParticipants,
		CurrentParticipants:  e.CurrentParticipants,
		IsActive:             e.IsActive,
		CreatedAt:            e.CreatedAt.UTC(),
		UpdatedAt:            e.UpdatedAt.UTC(),
	}
}

func (rec eventRecord) toDomain() model.Event {
	return model.Event{
		ID:                   rec.ID,
		Name:                 rec.Name,
		Description:          rec.Description,
		Location:             rec.Location,
		EventType:            model.EventType(rec.EventType),
		EventDate:            rec.EventDate,
		RegistrationDeadline: rec.RegistrationDeadline,
		MaxParticipants:      rec.MaxParticipants,
		CurrentParticipants:  rec.CurrentParticipants,
		IsActive:             rec.IsActive,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

// GormRegistrationStore handles registration persistence through gorm.
type GormRegistrationStore struct {
	db *gorm.DB
}

func NewGormRegistrationStore(db *gorm.DB) *GormRegistrationStore {
	return &GormRegistrationStore{db: db}
}

func (r *GormRegistrationStore) Get(ctx context.Context, id string) (model.Registration, error) {
	return r.one(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormRegistrationStore) FindByUserAndEvent(ctx context.Context, userID, eventID string) (model.Registration, error) {
	return r.one(r.db.WithContext(ctx).Where("user_id = ? AND event_id = ?", userID, eventID))
}

func (r *GormRegistrationStore) Save(ctx context.Context, reg model.Registration) (model.Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}

	rec := registrationRecord{
		ID:               reg.ID,
		EventID:          reg.EventID,
		UserID:           reg.UserID,
		ParticipantName:  reg.ParticipantName,
		ParticipantEmail: reg.ParticipantEmail,
		Notes:            reg.Notes,
		RegistrationDate: reg.RegistrationDate.UTC(),
		Status:           string(reg.Status),
	}
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Registration{}, ErrDuplicate
		}
		return model.Registration{}, fmt.Errorf("save registration: %w", err)
	}
	return rec.toDomain()
}

func (r *GormRegistrationStore) FindByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return r.list(r.db.WithContext(ctx).Where("event_id = ?", eventID))
}

func (r *GormRegistrationStore) FindByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return r.list(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *GormRegistrationStore) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&registrationRecord{}).
		Where("event_id = ? AND status = ?", eventID, string(model.StatusConfirmed)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	return int(n), nil
}

func (r *GormRegistrationStore) one(q *gorm.DB) (model.Registration, error) {
	var rec registrationRecord
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Registration{}, ErrNotFound
		}
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return rec.toDomain()
}

func (r *GormRegistrationStore) list(q *gorm.DB) ([]model.Registration, error) {
	var recs []registrationRecord
	if err := q.Order("registration_date DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	regs := make([]model.Registration, 0, len(recs))
	for _, rec := range recs {
		reg, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (rec registrationRecord) toDomain() (model.Registration, error) {
	status, err := model.ParseStatus(rec.Status)
	if err != nil {
		return model.Registration{}, err
	}
	return model.Registration{
		ID:               rec.ID,
		EventID:          rec.EventID,
		UserID:           rec.UserID,
		ParticipantName:  rec.ParticipantName,
		ParticipantEmail: rec.ParticipantEmail,
		Notes:            rec.Notes,
		RegistrationDate: rec.RegistrationDate,
		Status:           status,
	}, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
