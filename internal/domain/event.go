package domain

import "time"

// Event is a scheduled happening posted on a flat's board.
// Events are append-only and visible to current members only.
type Event struct {
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	FlatID      string    `json:"flat_id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}
