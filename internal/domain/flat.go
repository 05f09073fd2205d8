// Package domain holds the core flat-sharing entities and the rules that
// govern them. Nothing in here performs I/O.
package domain

import (
	"slices"
	"time"
)

// Flat is a shared-housing unit and its current member set.
// Members are user IDs ordered by the time they joined; the creator is
// always the first entry.
type Flat struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creator_id"`
	Members     []string  `json:"members"`
}

// NewFlat builds a flat whose sole member is its creator.
func NewFlat(flatID, creatorID, name, description string, now time.Time) *Flat {
	return &Flat{
		CreatedAt:   now,
		UpdatedAt:   now,
		ID:          flatID,
		Name:        name,
		Description: description,
		CreatorID:   creatorID,
		Members:     []string{creatorID},
	}
}

// HasMember reports whether userID currently belongs to the flat.
func (f *Flat) HasMember(userID string) bool {
	return slices.Contains(f.Members, userID)
}

// AddMember appends userID to the member set. It is idempotent and
// returns false when the user was already a member.
func (f *Flat) AddMember(userID string) bool {
	if f.HasMember(userID) {
		return false
	}
	f.Members = append(f.Members, userID)
	return true
}

// Snapshot returns the membership view used for authorization decisions.
func (f *Flat) Snapshot() MembershipSnapshot {
	return MembershipSnapshot{
		FlatID:    f.ID,
		CreatorID: f.CreatorID,
		Members:   slices.Clone(f.Members),
	}
}

// MembershipSnapshot is a point-in-time copy of a flat's membership.
// It must be reloaded for every decision and never cached.
type MembershipSnapshot struct {
	FlatID    string
	CreatorID string
	Members   []string
}

// IsMember reports whether userID is in the snapshot.
func (m MembershipSnapshot) IsMember(userID string) bool {
	return userID != "" && slices.Contains(m.Members, userID)
}
