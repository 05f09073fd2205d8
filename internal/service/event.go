package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/id"
	"github.com/colocapp/coloc-server/internal/store"
	"github.com/colocapp/coloc-server/internal/validation"
)

// PostEventRequest contains the fields for posting an event.
type PostEventRequest struct {
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
}

// EventService manages each flat's event board.
type EventService struct {
	store     store.Store
	logger    *slog.Logger
	validator *validation.Validator
}

// NewEventService creates a new event service.
func NewEventService(store store.Store, logger *slog.Logger) *EventService {
	return &EventService{
		store:     store,
		logger:    logger,
		validator: validation.New(),
	}
}

// PostEvent appends an event to a flat's board. The caller must be a member
// at the moment the event is written.
func (s *EventService) PostEvent(ctx context.Context, callerID, flatID string, req PostEventRequest) (event *domain.Event, err error) {
	ctx, span := startSpan(ctx, "EventService.PostEvent",
		attribute.String("flat.id", flatID),
		attribute.String("user.id", callerID),
	)
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	eventID, err := id.Generate(id.PrefixEvent)
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	event = &domain.Event{
		StartsAt:    req.StartsAt,
		CreatedAt:   time.Now(),
		ID:          eventID,
		FlatID:      flatID,
		CreatorID:   callerID,
		Title:       cleanText(req.Title),
		Description: cleanText(req.Description),
	}

	if err := s.store.CreateEvent(ctx, event, authorize(callerID, domain.ActionCreateEvent, "")); err != nil {
		return nil, translate(err, "create event")
	}

	s.logger.Info("event posted",
		"event_id", event.ID,
		"flat_id", flatID,
		"creator_id", callerID,
		"starts_at", event.StartsAt,
	)

	return event, nil
}

// ListEvents returns a flat's events in posting order. Only members may
// read the board.
func (s *EventService) ListEvents(ctx context.Context, callerID, flatID string) (events []*domain.Event, err error) {
	ctx, span := startSpan(ctx, "EventService.ListEvents", attribute.String("flat.id", flatID))
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}
	if err := checkAccess(ctx, s.store, callerID, flatID, domain.ActionViewEvents); err != nil {
		return nil, err
	}

	events, err = s.store.ListEvents(ctx, flatID)
	if err != nil {
		return nil, translate(err, "list events")
	}
	return events, nil
}
