// Package handler exposes the service layer over HTTP as huma operations
// mounted on a chi router.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/auth"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/repository"
	"github.com/Shivanand-hulikatti/fundraiser-events/internal/service"
)

// Handler holds the HTTP operations of the events API.
type Handler struct {
	events        *service.EventService
	registrations *service.RegistrationManager
	now           func() time.Time
}

func New(events *service.EventService, registrations *service.RegistrationManager) *Handler {
	return &Handler{events: events, registrations: registrations, now: time.Now}
}

// ─── Inputs and outputs ───────────────────────────────────────────────────────

type IDInput struct {
	ID string `path:"id" doc:"Resource ID"`
}

type EventBody struct {
	Name                 string          `json:"name,omitempty" doc:"Event name"`
	Description          string          `json:"description,omitempty" doc:"Free text description"`
	Location             string          `json:"location,omitempty" doc:"Where the event takes place"`
	EventType            model.EventType `json:"event_type,omitempty" doc:"MARATHON, RUN, WALK or OTHER"`
	EventDate            time.Time       `json:"event_date,omitempty" doc:"When the event starts"`
	RegistrationDeadline time.Time       `json:"registration_deadline,omitempty" doc:"Last instant registrations are accepted"`
	MaxParticipants      int             `json:"max_participants,omitempty" doc:"Capacity"`
}

func (b EventBody) toInput() model.EventInput {
	return model.EventInput{
		Name:                 b.Name,
		Description:          b.Description,
		Location:             b.Location,
		EventType:            b.EventType,
		EventDate:            b.EventDate,
		RegistrationDeadline: b.RegistrationDeadline,
		MaxParticipants:      b.MaxParticipants,
	}
}

type CreateEventInput struct {
	Body EventBody
}

type UpdateEventInput struct {
	ID   string `path:"id" doc:"Event ID"`
	Body EventBody
}

type RegisterInput struct {
	ID   string `path:"id" doc:"Event ID"`
	Body struct {
		ParticipantName  string `json:"participant_name,omitempty" doc:"Name of the participant"`
		ParticipantEmail string `json:"participant_email,omitempty" doc:"Contact email"`
		Notes            string `json:"notes,omitempty" doc:"Optional notes for the organisers"`
	}
}

type ListEventsInput struct {
	All bool `query:"all" doc:"Include active events that have already taken place"`
}

type MyRegistrationsInput struct {
	All bool `query:"all" doc:"Include cancelled registrations and past events"`
}

// EventView is an event as served to clients, with its availability derived
// from the cached counter at response time.
type EventView struct {
	model.Event
	AvailableSpots   int  `json:"available_spots" doc:"Places left according to the participant counter"`
	Full             bool `json:"is_full" doc:"Whether the event has reached capacity"`
	RegistrationOpen bool `json:"registration_open" doc:"Whether registrations are accepted right now"`
}

type EventOutput struct {
	Body EventView
}

type EventsOutput struct {
	Body []EventView
}

type RegistrationOutput struct {
	Body model.Registration
}

type RegistrationsOutput struct {
	Body []model.Registration
}

type MessageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func message(msg string) *MessageOutput {
	out := &MessageOutput{}
	out.Body.Message = msg
	return out
}

// ─── Routes ───────────────────────────────────────────────────────────────────

// Register adds every operation to api.
func (h *Handler) Register(api huma.API) {
	created := func(o *huma.Operation) { o.DefaultStatus = http.StatusCreated }
	secured := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"bearerAuth": {}}, {"cookieAuth": {}}}
	}

	huma.Get(api, "/events", h.ListEvents)
	huma.Get(api, "/events/open", h.ListOpenEvents)
	huma.Get(api, "/events/{id}", h.GetEvent)

	huma.Post(api, "/events", h.CreateEvent, secured, created)
	huma.Put(api, "/events/{id}", h.UpdateEvent, secured)
	huma.Delete(api, "/events/{id}", h.DeactivateEvent, secured)
	huma.Post(api, "/events/{id}/reconcile", h.ReconcileCounter, secured)
	huma.Get(api, "/events/{id}/registrations", h.ListEventRegistrations, secured)

	huma.Post(api, "/events/{id}/register", h.RegisterForEvent, secured, created)
	huma.Get(api, "/me/registrations", h.ListMyRegistrations, secured)
	huma.Delete(api, "/registrations/{id}", h.CancelRegistration, secured)
}

// ─── Public event operations ──────────────────────────────────────────────────

func (h *Handler) ListEvents(ctx context.Context, in *ListEventsInput) (*EventsOutput, error) {
	var events []model.Event
	var err error
	if in.All {
		events, err = h.events.ListActiveEvents(ctx)
	} else {
		events, err = h.events.ListUpcomingEvents(ctx)
	}
	if err != nil {
		return nil, toHTTPError(err)
	}
	return h.eventsOutput(events), nil
}

func (h *Handler) ListOpenEvents(ctx context.Context, _ *struct{}) (*EventsOutput, error) {
	events, err := h.events.ListOpenEvents(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return h.eventsOutput(events), nil
}

func (h *Handler) GetEvent(ctx context.Context, in *IDInput) (*EventOutput, error) {
	event, err := h.events.GetEvent(ctx, in.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return h.eventOutput(event), nil
}

// ─── Admin operations ─────────────────────────────────────────────────────────

func (h *Handler) CreateEvent(ctx context.Context, in *CreateEventInput) (*EventOutput, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	event, err := h.events.CreateEvent(ctx, in.Body.toInput())
	if err != nil {
		return nil, toHTTPError(err)
	}
	return h.eventOutput(event), nil
}

func (h *Handler) UpdateEvent(ctx context.Context, in *UpdateEventInput) (*EventOutput, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	event, err := h.events.UpdateEvent(ctx, in.ID, in.Body.toInput())
	if err != nil {
		return nil, toHTTPError(err)
	}
	return h.eventOutput(event), nil
}

func (h *Handler) DeactivateEvent(ctx context.Context, in *IDInput) (*MessageOutput, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := h.events.DeactivateEvent(ctx, in.ID); err != nil {
		return nil, toHTTPError(err)
	}
	return message("Event deactivated"), nil
}

func (h *Handler) ReconcileCounter(ctx context.Context, in *IDInput) (*EventOutput, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	event, err := h.events.ReconcileCounter(ctx, in.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return h.eventOutput(event), nil
}

func (h *Handler) ListEventRegistrations(ctx context.Context, in *IDInput) (*RegistrationsOutput, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	regs, err := h.registrations.ListEventRegistrations(ctx, in.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &RegistrationsOutput{Body: nonNil(regs)}, nil
}

// ─── User operations ──────────────────────────────────────────────────────────

func (h *Handler) RegisterForEvent(ctx context.Context, in *RegisterInput) (*RegistrationOutput, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	reg, err := h.registrations.Register(ctx, in.ID, userID, model.RegisterInput{
		ParticipantName:  in.Body.ParticipantName,
		ParticipantEmail: in.Body.ParticipantEmail,
		Notes:            in.Body.Notes,
	})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &RegistrationOutput{Body: reg}, nil
}

func (h *Handler) ListMyRegistrations(ctx context.Context, in *MyRegistrationsInput) (*RegistrationsOutput, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	var regs []model.Registration
	var err error
	if in.All {
		regs, err = h.registrations.ListUserRegistrations(ctx, userID)
	} else {
		regs, err = h.registrations.ListUpcomingUserRegistrations(ctx, userID)
	}
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &RegistrationsOutput{Body: nonNil(regs)}, nil
}

func (h *Handler) CancelRegistration(ctx context.Context, in *IDInput) (*MessageOutput, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.registrations.Cancel(ctx, in.ID, userID); err != nil {
		return nil, toHTTPError(err)
	}
	return message("Registration cancelled"), nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func requireAdmin(ctx context.Context) error {
	if _, ok := auth.UserID(ctx); !ok {
		return huma.Error401Unauthorized("Unauthorized")
	}
	if !auth.IsAdmin(ctx) {
		return huma.Error403Forbidden("Access denied: admin role required")
	}
	return nil
}

// toHTTPError maps service and repository errors to HTTP problems.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrEventAlreadyOccurred),
		errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrAlreadyRegistered):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrForbidden):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, service.ErrInvalidEvent), errors.Is(err, service.ErrInvalidRegistration):
		return huma.Error400BadRequest(err.Error())
	}
	slog.Error("request failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}

func (h *Handler) view(e model.Event) EventView {
	return EventView{
		Event:            e,
		AvailableSpots:   e.Remaining(),
		Full:             e.IsFull(),
		RegistrationOpen: e.RegistrationOpen(h.now()),
	}
}

func (h *Handler) eventOutput(e model.Event) *EventOutput {
	return &EventOutput{Body: h.view(e)}
}

func (h *Handler) eventsOutput(events []model.Event) *EventsOutput {
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, h.view(e))
	}
	return &EventsOutput{Body: views}
}

// nonNil returns an empty slice rather than null for client compatibility.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
