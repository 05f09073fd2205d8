package domain

import (
	"errors"
	"fmt"
	"time"
)

// RequestStatus is the lifecycle state of a JoinRequest.
type RequestStatus string

const (
	// RequestPending is the initial state; only pending requests can be resolved.
	RequestPending RequestStatus = "pending"
	// RequestValidated is terminal: the requester became a member.
	RequestValidated RequestStatus = "validated"
	// RequestRejected is terminal: membership is unchanged.
	RequestRejected RequestStatus = "rejected"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the request state machine.
var ErrInvalidTransition = errors.New("invalid join request transition")

// ParseRequestStatus converts a string to a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case RequestPending, RequestValidated, RequestRejected:
		return RequestStatus(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is permitted.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestValidated || s == RequestRejected
}

// CanTransitionTo reports whether s may move to next.
// The only edges are pending -> validated and pending -> rejected.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == RequestPending && next.IsTerminal()
}

// JoinRequest is a user's application to become a member of a flat.
type JoinRequest struct {
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	ID          string        `json:"id"`
	FlatID      string        `json:"flat_id"`
	RequesterID string        `json:"requester_id"`
	Status      RequestStatus `json:"status"`
	ResolvedBy  string        `json:"resolved_by,omitempty"`
}

// NewJoinRequest builds a pending request.
func NewJoinRequest(requestID, flatID, requesterID string, now time.Time) *JoinRequest {
	return &JoinRequest{
		CreatedAt:   now,
		ID:          requestID,
		FlatID:      flatID,
		RequesterID: requesterID,
		Status:      RequestPending,
	}
}

// IsPending reports whether the request is still awaiting a decision.
func (r *JoinRequest) IsPending() bool {
	return r.Status == RequestPending
}

// Resolve moves the request to a terminal status and records who decided.
// The request is left untouched when the transition is not permitted.
func (r *JoinRequest) Resolve(next RequestStatus, resolvedBy string, at time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.ResolvedBy = resolvedBy
	r.ResolvedAt = &at
	return nil
}
