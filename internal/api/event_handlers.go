package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/service"
)

func (s *Server) registerEventRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "postEvent",
		Method:        http.MethodPost,
		Path:          "/api/v1/flats/{flatID}/events",
		Summary:       "Post event",
		Description:   "Adds an event to the flat's board. Members only.",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerSecurity,
	}, s.handlePostEvent)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/flats/{flatID}/events",
		Summary:     "List events",
		Description: "Returns the flat's events in posting order. Members only.",
		Tags:        []string{"Events"},
		Security:    bearerSecurity,
	}, s.handleListEvents)
}

// === DTOs ===

// EventResponse contains event data in API responses.
type EventResponse struct {
	ID          string    `json:"id" doc:"Event ID"`
	FlatID      string    `json:"flat_id" doc:"Flat the event belongs to"`
	CreatorID   string    `json:"creator_id" doc:"Member who posted the event"`
	Title       string    `json:"title" doc:"Event title"`
	Description string    `json:"description,omitempty" doc:"Free-text description"`
	StartsAt    time.Time `json:"starts_at" doc:"When the event happens"`
	CreatedAt   time.Time `json:"created_at" doc:"Posting time"`
}

// PostEventRequest is the request body for posting an event.
type PostEventRequest struct {
	Title       string    `json:"title" doc:"Event title"`
	StartsAt    time.Time `json:"starts_at" doc:"When the event happens (RFC 3339)"`
	Description string    `json:"description,omitempty" doc:"Free-text description"`
}

// PostEventInput wraps the post event request for Huma.
type PostEventInput struct {
	Authorization string `header:"Authorization"`
	FlatID        string `path:"flatID" doc:"Flat ID"`
	Body          PostEventRequest
}

// EventOutput wraps the event response for Huma.
type EventOutput struct {
	Body EventResponse
}

// ListEventsResponse contains a flat's events.
type ListEventsResponse struct {
	Events []EventResponse `json:"events" doc:"Events in posting order"`
}

// ListEventsOutput wraps the list events response for Huma.
type ListEventsOutput struct {
	Body ListEventsResponse
}

// === Handlers ===

func (s *Server) handlePostEvent(ctx context.Context, input *PostEventInput) (*EventOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	event, err := s.services.Events.PostEvent(ctx, userID, input.FlatID, service.PostEventRequest{
		Title:       input.Body.Title,
		StartsAt:    input.Body.StartsAt,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}

	return &EventOutput{Body: toEventResponse(event)}, nil
}

func (s *Server) handleListEvents(ctx context.Context, input *FlatPathInput) (*ListEventsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	events, err := s.services.Events.ListEvents(ctx, userID, input.FlatID)
	if err != nil {
		return nil, err
	}

	resp := make([]EventResponse, len(events))
	for i, e := range events {
		resp[i] = toEventResponse(e)
	}

	return &ListEventsOutput{Body: ListEventsResponse{Events: resp}}, nil
}

func toEventResponse(e *domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		FlatID:      e.FlatID,
		CreatorID:   e.CreatorID,
		Title:       e.Title,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		CreatedAt:   e.CreatedAt,
	}
}
