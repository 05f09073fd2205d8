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

// JoinRequestFilter narrows List. The zero value returns every status.
type JoinRequestFilter struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending validated rejected"`
}

// JoinRequestService runs the join request ledger.
type JoinRequestService struct {
	store     store.Store
	logger    *slog.Logger
	validator *validation.Validator
}

// NewJoinRequestService creates a new join request service.
func NewJoinRequestService(store store.Store, logger *slog.Logger) *JoinRequestService {
	return &JoinRequestService{
		store:     store,
		logger:    logger,
		validator: validation.New(),
	}
}

// Submit opens a pending request for requesterID to join flatID.
func (s *JoinRequestService) Submit(ctx context.Context, requesterID, flatID string) (req *domain.JoinRequest, err error) {
	ctx, span := startSpan(ctx, "JoinRequestService.Submit",
		attribute.String("flat.id", flatID),
		attribute.String("user.id", requesterID),
	)
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(requesterID); err != nil {
		return nil, err
	}

	requestID, err := id.Generate(id.PrefixJoinRequest)
	if err != nil {
		return nil, fmt.Errorf("generate join request id: %w", err)
	}
	req = domain.NewJoinRequest(requestID, flatID, requesterID, time.Now())

	notMember := func(snap domain.MembershipSnapshot) error {
		if snap.IsMember(requesterID) {
			return domainerrors.Conflict(domainerrors.ReasonAlreadyMember, "already a member of this flat")
		}
		return nil
	}
	if err := s.store.CreateJoinRequest(ctx, req, notMember); err != nil {
		return nil, translate(err, "create join request")
	}

	s.logger.Info("join request submitted",
		"request_id", req.ID,
		"flat_id", flatID,
		"requester_id", requesterID,
	)

	return req, nil
}

// List returns a flat's join requests oldest first. Only members may list.
func (s *JoinRequestService) List(ctx context.Context, callerID, flatID string, filter JoinRequestFilter) (reqs []*domain.JoinRequest, err error) {
	ctx, span := startSpan(ctx, "JoinRequestService.List", attribute.String("flat.id", flatID))
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(filter); err != nil {
		return nil, err
	}

	if err := checkAccess(ctx, s.store, callerID, flatID, domain.ActionViewRequests); err != nil {
		return nil, err
	}

	reqs, err = s.store.ListJoinRequests(ctx, flatID, store.JoinRequestFilter{
		Status: domain.RequestStatus(filter.Status),
	})
	if err != nil {
		return nil, translate(err, "list join requests")
	}
	return reqs, nil
}

// Get returns a single request. Members of the flat and the requester may
// view it.
func (s *JoinRequestService) Get(ctx context.Context, callerID, flatID, requestID string) (req *domain.JoinRequest, err error) {
	ctx, span := startSpan(ctx, "JoinRequestService.Get",
		attribute.String("flat.id", flatID),
		attribute.String("request.id", requestID),
	)
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}

	snap, err := s.store.GetMembership(ctx, flatID)
	if err != nil {
		return nil, translate(err, "get membership")
	}
	req, err = s.store.GetJoinRequest(ctx, requestID)
	if err != nil {
		return nil, translate(err, "get join request")
	}
	if req.FlatID != flatID {
		return nil, domainerrors.NotFound("join request not found")
	}
	if req.RequesterID != callerID && !domain.CanAct(callerID, snap, domain.ActionViewRequests, "") {
		return nil, domainerrors.Forbiddenf("user %s may not view join request %s", callerID, requestID)
	}
	return req, nil
}

// ListMine returns every request callerID has submitted, across flats.
func (s *JoinRequestService) ListMine(ctx context.Context, callerID string) (reqs []*domain.JoinRequest, err error) {
	ctx, span := startSpan(ctx, "JoinRequestService.ListMine", attribute.String("user.id", callerID))
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}

	reqs, err = s.store.ListJoinRequestsByRequester(ctx, callerID)
	if err != nil {
		return nil, translate(err, "list own join requests")
	}
	return reqs, nil
}

// Validate accepts a pending request and adds the requester to the flat.
func (s *JoinRequestService) Validate(ctx context.Context, callerID, flatID, requestID string) (*domain.JoinRequest, error) {
	return s.resolve(ctx, callerID, flatID, requestID, domain.RequestValidated)
}

// Reject declines a pending request. Membership is unchanged.
func (s *JoinRequestService) Reject(ctx context.Context, callerID, flatID, requestID string) (*domain.JoinRequest, error) {
	return s.resolve(ctx, callerID, flatID, requestID, domain.RequestRejected)
}

func (s *JoinRequestService) resolve(ctx context.Context, callerID, flatID, requestID string, decision domain.RequestStatus) (req *domain.JoinRequest, err error) {
	ctx, span := startSpan(ctx, "JoinRequestService.Resolve",
		attribute.String("flat.id", flatID),
		attribute.String("request.id", requestID),
		attribute.String("decision", string(decision)),
	)
	defer func() { finishSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireIdentity(callerID); err != nil {
		return nil, err
	}

	req, err = s.store.ResolveJoinRequest(ctx, store.Resolution{
		At:         time.Now(),
		FlatID:     flatID,
		RequestID:  requestID,
		ResolvedBy: callerID,
		Decision:   decision,
	}, authorize(callerID, domain.ActionResolveRequest, ""))
	if err != nil {
		s.logger.Debug("join request resolution refused",
			"request_id", requestID,
			"flat_id", flatID,
			"caller_id", callerID,
			"decision", decision,
			"error", err,
		)
		return nil, translate(err, "resolve join request")
	}

	s.logger.Info("join request "+string(req.Status),
		"request_id", req.ID,
		"flat_id", flatID,
		"requester_id", req.RequesterID,
		"resolved_by", callerID,
	)

	return req, nil
}
