package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/service"
)

func (s *Server) registerFlatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createFlat",
		Method:        http.MethodPost,
		Path:          "/api/v1/flats",
		Summary:       "Create flat",
		Description:   "Creates a flat whose only member is the caller",
		Tags:          []string{"Flats"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerSecurity,
	}, s.handleCreateFlat)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFlats",
		Method:      http.MethodGet,
		Path:        "/api/v1/flats",
		Summary:     "List flats",
		Description: "Returns the flats the caller belongs to",
		Tags:        []string{"Flats"},
		Security:    bearerSecurity,
	}, s.handleListFlats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFlat",
		Method:      http.MethodGet,
		Path:        "/api/v1/flats/{flatID}",
		Summary:     "Get flat",
		Description: "Returns a flat with its members. Members only.",
		Tags:        []string{"Flats"},
		Security:    bearerSecurity,
	}, s.handleGetFlat)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteFlat",
		Method:        http.MethodDelete,
		Path:          "/api/v1/flats/{flatID}",
		Summary:       "Delete flat",
		Description:   "Deletes a flat with its join requests and events",
		Tags:          []string{"Flats"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearerSecurity,
	}, s.handleDeleteFlat)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFlatMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/flats/{flatID}/members",
		Summary:     "List members",
		Description: "Returns member user IDs in join order. Members only.",
		Tags:        []string{"Flats"},
		Security:    bearerSecurity,
	}, s.handleListFlatMembers)
}

// === DTOs ===

// FlatResponse contains flat data in API responses.
type FlatResponse struct {
	ID          string    `json:"id" doc:"Flat ID"`
	Name        string    `json:"name" doc:"Flat name"`
	Description string    `json:"description,omitempty" doc:"Free-text description"`
	CreatorID   string    `json:"creator_id" doc:"User who created the flat"`
	Members     []string  `json:"members" doc:"Member user IDs in join order"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last membership change"`
}

// CreateFlatRequest is the request body for creating a flat.
type CreateFlatRequest struct {
	Name        string `json:"name" doc:"Flat name"`
	Description string `json:"description,omitempty" doc:"Free-text description"`
}

// CreateFlatInput wraps the create flat request for Huma.
type CreateFlatInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateFlatRequest
}

// FlatOutput wraps the flat response for Huma.
type FlatOutput struct {
	Body FlatResponse
}

// ListFlatsInput contains parameters for listing flats.
type ListFlatsInput struct {
	Authorization string `header:"Authorization"`
}

// ListFlatsResponse contains a list of flats.
type ListFlatsResponse struct {
	Flats []FlatResponse `json:"flats" doc:"Flats the caller belongs to"`
}

// ListFlatsOutput wraps the list flats response for Huma.
type ListFlatsOutput struct {
	Body ListFlatsResponse
}

// FlatPathInput addresses a single flat.
type FlatPathInput struct {
	Authorization string `header:"Authorization"`
	FlatID        string `path:"flatID" doc:"Flat ID"`
}

// MembersResponse contains a flat's member IDs.
type MembersResponse struct {
	FlatID  string   `json:"flat_id" doc:"Flat ID"`
	Members []string `json:"members" doc:"Member user IDs in join order"`
}

// MembersOutput wraps the members response for Huma.
type MembersOutput struct {
	Body MembersResponse
}

// === Handlers ===

func (s *Server) handleCreateFlat(ctx context.Context, input *CreateFlatInput) (*FlatOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	flat, err := s.services.Flats.CreateFlat(ctx, userID, service.CreateFlatRequest{
		Name:        input.Body.Name,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}

	return &FlatOutput{Body: toFlatResponse(flat)}, nil
}

func (s *Server) handleListFlats(ctx context.Context, input *ListFlatsInput) (*ListFlatsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	flats, err := s.services.Flats.ListFlats(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]FlatResponse, len(flats))
	for i, f := range flats {
		resp[i] = toFlatResponse(f)
	}

	return &ListFlatsOutput{Body: ListFlatsResponse{Flats: resp}}, nil
}

func (s *Server) handleGetFlat(ctx context.Context, input *FlatPathInput) (*FlatOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	flat, err := s.services.Flats.GetFlat(ctx, userID, input.FlatID)
	if err != nil {
		return nil, err
	}

	return &FlatOutput{Body: toFlatResponse(flat)}, nil
}

func (s *Server) handleDeleteFlat(ctx context.Context, input *FlatPathInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if _, err := s.services.Flats.DeleteFlat(ctx, userID, input.FlatID); err != nil {
		return nil, err
	}

	return &struct{}{}, nil
}

func (s *Server) handleListFlatMembers(ctx context.Context, input *FlatPathInput) (*MembersOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	flat, err := s.services.Flats.GetFlat(ctx, userID, input.FlatID)
	if err != nil {
		return nil, err
	}

	return &MembersOutput{Body: MembersResponse{FlatID: flat.ID, Members: flat.Members}}, nil
}

func toFlatResponse(f *domain.Flat) FlatResponse {
	members := f.Members
	if members == nil {
		members = []string{}
	}
	return FlatResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		CreatorID:   f.CreatorID,
		Members:     members,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
