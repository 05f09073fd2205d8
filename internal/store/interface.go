// Package store defines the persistence contract for the coloc server.
package store

import (
	"context"
	"time"

	"github.com/colocapp/coloc-server/internal/domain"
)

// Guard inspects a membership snapshot read inside the store's transaction
// and returns a non-nil error to abort the write. Guards let the service
// layer own authorization while the store keeps the decision atomic with
// the mutation it protects.
type Guard func(domain.MembershipSnapshot) error

// Allow is a Guard that accepts every snapshot.
func Allow(domain.MembershipSnapshot) error { return nil }

// Store defines all persistence operations.
type Store interface {
	Close() error
	Ping(ctx context.Context) error

	// Flats
	CreateFlat(ctx context.Context, flat *domain.Flat) error
	GetFlat(ctx context.Context, id string) (*domain.Flat, error)
	ListFlatsForUser(ctx context.Context, userID string) ([]*domain.Flat, error)
	DeleteFlat(ctx context.Context, id string, guard Guard) (*FlatDeletion, error)

	// Membership
	GetMembership(ctx context.Context, flatID string) (domain.MembershipSnapshot, error)
	ListMembers(ctx context.Context, flatID string) ([]string, error)
	IsMember(ctx context.Context, flatID, userID string) (bool, error)

	// Join requests
	CreateJoinRequest(ctx context.Context, req *domain.JoinRequest, guard Guard) error
	GetJoinRequest(ctx context.Context, id string) (*domain.JoinRequest, error)
	ListJoinRequests(ctx context.Context, flatID string, filter JoinRequestFilter) ([]*domain.JoinRequest, error)
	ListJoinRequestsByRequester(ctx context.Context, requesterID string) ([]*domain.JoinRequest, error)
	ResolveJoinRequest(ctx context.Context, res Resolution, guard Guard) (*domain.JoinRequest, error)

	// Events
	CreateEvent(ctx context.Context, event *domain.Event, guard Guard) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, flatID string) ([]*domain.Event, error)
}

// FlatDeletion reports what a flat deletion removed.
type FlatDeletion struct {
	FlatID       string
	Members      int
	JoinRequests int
	Events       int
}

// JoinRequestFilter narrows ListJoinRequests. The zero value matches all
// statuses.
type JoinRequestFilter struct {
	Status domain.RequestStatus
}

// Resolution describes a validate or reject decision on a join request.
type Resolution struct {
	At         time.Time
	FlatID     string
	RequestID  string
	ResolvedBy string
	Decision   domain.RequestStatus
}
