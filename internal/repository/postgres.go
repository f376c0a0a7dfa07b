package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
)

const (
	uniqueViolation       = "23505"
	eventUserUniqueConstr = "uq_registrations_event_user"
	eventColumns          = `id, name, description, location, event_type, event_date, registration_deadline, max_participants, current_participants, is_active, created_at, updated_at`
	registrationColumns   = `id, event_id, user_id, participant_name, participant_email, notes, registration_date, status`
)

// PostgresEventStore handles event persistence in PostgreSQL.
type PostgresEventStore struct {
	db *pgxpool.Pool
}

// NewPostgresEventStore constructs a PostgresEventStore.
func NewPostgresEventStore(db *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (r *PostgresEventStore) Get(ctx context.Context, id string) (model.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Event{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *PostgresEventStore) Save(ctx context.Context, e model.Event) (model.Event, error) {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     location = EXCLUDED.location,
		     event_type = EXCLUDED.event_type,
		     event_date = EXCLUDED.event_date,
		     registration_deadline = EXCLUDED.registration_deadline,
		     max_participants = EXCLUDED.max_participants,
		     current_participants = EXCLUDED.current_participants,
		     is_active = EXCLUDED.is_active,
		     updated_at = EXCLUDED.updated_at`,
		e.ID, e.Name, e.Description, e.Location, string(e.EventType),
		e.EventDate.UTC(), e.RegistrationDeadline.UTC(),
		e.MaxParticipants, e.CurrentParticipants, e.IsActive,
		e.CreatedAt.UTC(), e.UpdatedAt,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("save event: %w", err)
	}
	return e, nil
}

func (r *PostgresEventStore) ListAllActive(ctx context.Context) ([]model.Event, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE is_active
		 ORDER BY event_date ASC`,
	)
}

func (r *PostgresEventStore) ListActive(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE is_active AND event_date > $1
		 ORDER BY event_date ASC`,
		now.UTC(),
	)
}

func (r *PostgresEventStore) ListOpen(ctx context.Context, now time.Time) ([]model.Event, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE is_active AND event_date > $1 AND registration_deadline > $1
		 ORDER BY event_date ASC`,
		now.UTC(),
	)
}

func (r *PostgresEventStore) list(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var (
		e         model.Event
		eventType string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &eventType,
		&e.EventDate, &e.RegistrationDeadline, &e.MaxParticipants, &e.CurrentParticipants,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	e.EventType = model.EventType(eventType)
	return e, err
}

// PostgresRegistrationStore handles registration persistence in PostgreSQL.
type PostgresRegistrationStore struct {
	db *pgxpool.Pool
}

// NewPostgresRegistrationStore constructs a PostgresRegistrationStore.
func NewPostgresRegistrationStore(db *pgxpool.Pool) *PostgresRegistrationStore {
	return &PostgresRegistrationStore{db: db}
}

func (r *PostgresRegistrationStore) Get(ctx context.Context, id string) (model.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Registration{}, ErrNotFound
	}
	return r.one(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

func (r *PostgresRegistrationStore) FindByUserAndEvent(ctx context.Context, userID, eventID string) (model.Registration, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return model.Registration{}, ErrNotFound
	}
	return r.one(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	)
}

func (r *PostgresRegistrationStore) Save(ctx context.Context, reg model.Registration) (model.Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     participant_name = EXCLUDED.participant_name,
		     participant_email = EXCLUDED.participant_email,
		     notes = EXCLUDED.notes,
		     registration_date = EXCLUDED.registration_date,
		     status = EXCLUDED.status`,
		reg.ID, reg.EventID, reg.UserID, reg.ParticipantName, reg.ParticipantEmail,
		reg.Notes, reg.RegistrationDate.UTC(), string(reg.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == eventUserUniqueConstr {
			return model.Registration{}, ErrDuplicate
		}
		return model.Registration{}, fmt.Errorf("save registration: %w", err)
	}
	return reg, nil
}

func (r *PostgresRegistrationStore) FindByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	return r.list(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registration_date DESC`,
		eventID,
	)
}

func (r *PostgresRegistrationStore) FindByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return r.list(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE user_id = $1
		 ORDER BY registration_date DESC`,
		userID,
	)
}

func (r *PostgresRegistrationStore) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return 0, nil
	}
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`,
		eventID, string(model.StatusConfirmed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	return n, nil
}

func (r *PostgresRegistrationStore) one(ctx context.Context, query string, args ...any) (model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Registration{}, ErrNotFound
		}
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (r *PostgresRegistrationStore) list(ctx context.Context, query string, args ...any) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func scanRegistration(row pgx.Row) (model.Registration, error) {
	var (
		reg    model.Registration
		status string
	)
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.ParticipantName,
		&reg.ParticipantEmail, &reg.Notes, &reg.RegistrationDate, &status); err != nil {
		return model.Registration{}, err
	}
	s, err := model.ParseStatus(status)
	if err != nil {
		return model.Registration{}, err
	}
	reg.Status = s
	return reg, nil
}
