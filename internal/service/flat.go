package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/colocapp/coloc-server/internal/domain"
	domainerrors "github.com/colocapp/coloc-server/internal/errors"
	"github.com/colocapp/coloc-server/internal/id"
	"github.com/colocapp/coloc-server/internal/store"
	"github.com/colocapp/coloc-server/internal/validation"
)

// CreateFlatRequest contains the fields for creating a flat.
type CreateFlatRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// FlatService manages the flat registry.
type FlatService struct {
	store     store.Store
	logger    *slog.Logger
	validator *validation.Validator
	policy    domain.DeletePolicy
}

// NewFlatService creates a new flat service. policy decides who may delete
// a flat.
func NewFlatService(store store.Store, policy domain.DeletePolicy, logger *slog.Logger) *FlatService {
	return &FlatService{
		store:     store,
		logger:    logger,
		validator: validation.New(),
		policy:    policy,
	}
}

// CreateFlat registers a new flat whose only member is ownerID.
func (s *FlatService) CreateFlat(ctx context.Context, ownerID string, req CreateFlatRequest) (flat *domain.Flat, err error) {
	ctx, span := startSpan(ctx, "FlatService.CreateFlat", attribute.String("user.id", ownerID))
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	flatID, err := id.Generate(id.PrefixFlat)
	if err != nil {
		return nil, fmt.Errorf("generate flat id: %w", err)
	}

	flat = domain.NewFlat(flatID, ownerID, cleanText(req.Name), cleanText(req.Description), time.Now())
	if err := s.store.CreateFlat(ctx, flat); err != nil {
		return nil, translate(err, "create flat")
	}

	s.logger.Info("flat created",
		"flat_id", flat.ID,
		"name", flat.Name,
		"creator_id", ownerID,
	)

	return flat, nil
}

// GetFlat returns a flat with its members. Only members may view it.
func (s *FlatService) GetFlat(ctx context.Context, callerID, flatID string) (flat *domain.Flat, err error) {
	ctx, span := startSpan(ctx, "FlatService.GetFlat", attribute.String("flat.id", flatID))
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}

	flat, err = s.store.GetFlat(ctx, flatID)
	if err != nil {
		return nil, translate(err, "get flat")
	}
	if err := authorize(callerID, domain.ActionViewFlat, s.policy)(flat.Snapshot()); err != nil {
		s.logger.Debug("flat view denied", "flat_id", flatID, "user_id", callerID)
		return nil, err
	}
	return flat, nil
}

// ListFlats returns the flats callerID belongs to.
func (s *FlatService) ListFlats(ctx context.Context, callerID string) (flats []*domain.Flat, err error) {
	ctx, span := startSpan(ctx, "FlatService.ListFlats", attribute.String("user.id", callerID))
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}

	flats, err = s.store.ListFlatsForUser(ctx, callerID)
	if err != nil {
		return nil, translate(err, "list flats")
	}
	return flats, nil
}

// DeleteFlat removes a flat together with its join requests and events.
// The authorization check and the removal share one transaction.
func (s *FlatService) DeleteFlat(ctx context.Context, callerID, flatID string) (del *store.FlatDeletion, err error) {
	ctx, span := startSpan(ctx, "FlatService.DeleteFlat",
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

	del, err = s.store.DeleteFlat(ctx, flatID, authorize(callerID, domain.ActionDeleteFlat, s.policy))
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrForbidden) {
			s.logger.Debug("flat deletion denied", "flat_id", flatID, "user_id", callerID, "policy", s.policy)
		}
		return nil, translate(err, "delete flat")
	}

	s.logger.Info("flat deleted",
		"flat_id", flatID,
		"deleted_by", callerID,
		"members", del.Members,
		"join_requests", del.JoinRequests,
		"events", del.Events,
	)

	return del, nil
}

// ListMembers returns the member IDs of a flat in join order.
func (s *FlatService) ListMembers(ctx context.Context, flatID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, flatID)
	if err != nil {
		return nil, translate(err, "list members")
	}
	return members, nil
}

// IsMember reports whether userID currently belongs to flatID. An unknown
// flat has no members.
func (s *FlatService) IsMember(ctx context.Context, flatID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := s.store.IsMember(ctx, flatID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}
