package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/service"
)

func (s *Server) registerJoinRequestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submitJoinRequest",
		Method:        http.MethodPost,
		Path:          "/api/v1/flats/{flatID}/join-requests",
		Summary:       "Request to join a flat",
		Description:   "Opens a pending join request for the caller",
		Tags:          []string{"Join Requests"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerSecurity,
	}, s.handleSubmitJoinRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "listJoinRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/flats/{flatID}/join-requests",
		Summary:     "List join requests",
		Description: "Returns a flat's join requests in creation order. Members only.",
		Tags:        []string{"Join Requests"},
		Security:    bearerSecurity,
	}, s.handleListJoinRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "getJoinRequest",
		Method:      http.MethodGet,
		Path:        "/api/v1/flats/{flatID}/join-requests/{requestID}",
		Summary:     "Get join request",
		Description: "Returns one join request. Visible to members and to the requester.",
		Tags:        []string{"Join Requests"},
		Security:    bearerSecurity,
	}, s.handleGetJoinRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateJoinRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/flats/{flatID}/join-requests/{requestID}/validate",
		Summary:     "Validate join request",
		Description: "Accepts a pending request and adds the requester to the flat",
		Tags:        []string{"Join Requests"},
		Security:    bearerSecurity,
	}, s.handleValidateJoinRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectJoinRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/flats/{flatID}/join-requests/{requestID}/reject",
		Summary:     "Reject join request",
		Description: "Declines a pending request",
		Tags:        []string{"Join Requests"},
		Security:    bearerSecurity,
	}, s.handleRejectJoinRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyJoinRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/join-requests/mine",
		Summary:     "List my join requests",
		Description: "Returns the caller's own join requests across all flats",
		Tags:        []string{"Join Requests"},
		Security:    bearerSecurity,
	}, s.handleListMyJoinRequests)
}

// === DTOs ===

// JoinRequestResponse contains join request data in API responses.
type JoinRequestResponse struct {
	ID          string     `json:"id" doc:"Join request ID"`
	FlatID      string     `json:"flat_id" doc:"Flat the requester wants to join"`
	RequesterID string     `json:"requester_id" doc:"User asking to join"`
	Status      string     `json:"status" enum:"pending,validated,rejected" doc:"Request status"`
	ResolvedBy  string     `json:"resolved_by,omitempty" doc:"Member who decided the request"`
	CreatedAt   time.Time  `json:"created_at" doc:"Submission time"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" doc:"Decision time"`
}

// JoinRequestOutput wraps a join request for Huma.
type JoinRequestOutput struct {
	Body JoinRequestResponse
}

// ListJoinRequestsResponse contains a list of join requests.
type ListJoinRequestsResponse struct {
	JoinRequests []JoinRequestResponse `json:"join_requests" doc:"Join requests in creation order"`
}

// ListJoinRequestsOutput wraps the list response for Huma.
type ListJoinRequestsOutput struct {
	Body ListJoinRequestsResponse
}

// ListJoinRequestsInput contains parameters for listing a flat's requests.
type ListJoinRequestsInput struct {
	Authorization string `header:"Authorization"`
	FlatID        string `path:"flatID" doc:"Flat ID"`
	Status        string `query:"status" doc:"Only return requests in this status (pending, validated, rejected)"`
}

// JoinRequestPathInput addresses a single join request.
type JoinRequestPathInput struct {
	Authorization string `header:"Authorization"`
	FlatID        string `path:"flatID" doc:"Flat ID"`
	RequestID     string `path:"requestID" doc:"Join request ID"`
}

// ListMyJoinRequestsInput contains parameters for listing the caller's requests.
type ListMyJoinRequestsInput struct {
	Authorization string `header:"Authorization"`
}

// === Handlers ===

func (s *Server) handleSubmitJoinRequest(ctx context.Context, input *FlatPathInput) (*JoinRequestOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.JoinRequests.Submit(ctx, userID, input.FlatID)
	if err != nil {
		return nil, err
	}

	return &JoinRequestOutput{Body: toJoinRequestResponse(req)}, nil
}

func (s *Server) handleListJoinRequests(ctx context.Context, input *ListJoinRequestsInput) (*ListJoinRequestsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reqs, err := s.services.JoinRequests.List(ctx, userID, input.FlatID, service.JoinRequestFilter{Status: input.Status})
	if err != nil {
		return nil, err
	}

	return &ListJoinRequestsOutput{Body: ListJoinRequestsResponse{JoinRequests: toJoinRequestResponses(reqs)}}, nil
}

func (s *Server) handleGetJoinRequest(ctx context.Context, input *JoinRequestPathInput) (*JoinRequestOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.JoinRequests.Get(ctx, userID, input.FlatID, input.RequestID)
	if err != nil {
		return nil, err
	}

	return &JoinRequestOutput{Body: toJoinRequestResponse(req)}, nil
}

func (s *Server) handleValidateJoinRequest(ctx context.Context, input *JoinRequestPathInput) (*JoinRequestOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.JoinRequests.Validate(ctx, userID, input.FlatID, input.RequestID)
	if err != nil {
		return nil, err
	}

	return &JoinRequestOutput{Body: toJoinRequestResponse(req)}, nil
}

func (s *Server) handleRejectJoinRequest(ctx context.Context, input *JoinRequestPathInput) (*JoinRequestOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req, err := s.services.JoinRequests.Reject(ctx, userID, input.FlatID, input.RequestID)
	if err != nil {
		return nil, err
	}

	return &JoinRequestOutput{Body: toJoinRequestResponse(req)}, nil
}

func (s *Server) handleListMyJoinRequests(ctx context.Context, input *ListMyJoinRequestsInput) (*ListJoinRequestsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reqs, err := s.services.JoinRequests.ListMine(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ListJoinRequestsOutput{Body: ListJoinRequestsResponse{JoinRequests: toJoinRequestResponses(reqs)}}, nil
}

func toJoinRequestResponse(r *domain.JoinRequest) JoinRequestResponse {
	return JoinRequestResponse{
		ID:          r.ID,
		FlatID:      r.FlatID,
		RequesterID: r.RequesterID,
		Status:      string(r.Status),
		ResolvedBy:  r.ResolvedBy,
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func toJoinRequestResponses(reqs []*domain.JoinRequest) []JoinRequestResponse {
	resp := make([]JoinRequestResponse, len(reqs))
	for i, r := range reqs {
		resp[i] = toJoinRequestResponse(r)
	}
	return resp
}
