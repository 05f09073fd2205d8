package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/store"
)

func TestCreateAndListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")

	now := time.Now()
	starts := now.Add(48 * time.Hour)
	events := []*domain.Event{
		{ID: "evt-2", FlatID: "flat-1", CreatorID: "user-a", Title: "Cleaning day", StartsAt: starts, CreatedAt: now},
		{ID: "evt-1", FlatID: "flat-1", CreatorID: "user-a", Title: "Dinner", Description: "bring wine", StartsAt: starts.Add(-time.Hour), CreatedAt: now},
	}
	for _, e := range events {
		if err := s.CreateEvent(ctx, e, store.Allow); err != nil {
			t.Fatalf("CreateEvent(%s): %v", e.ID, err)
		}
	}

	got, err := s.ListEvents(ctx, "flat-1")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	// Posting order, not start time.
	if got[0].ID != "evt-2" || got[1].ID != "evt-1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].Description != "bring wine" || !got[1].StartsAt.Equal(starts.Add(-time.Hour)) {
		t.Errorf("fields not round-tripped: %+v", got[1])
	}

	one, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if one.Title != "Dinner" {
		t.Errorf("Title: got %q", one.Title)
	}
}

func TestCreateEvent_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")

	ev := &domain.Event{ID: "evt-1", FlatID: "missing", CreatorID: "user-a", Title: "x", StartsAt: time.Now(), CreatedAt: time.Now()}
	if err := s.CreateEvent(ctx, ev, store.Allow); !errors.Is(err, store.ErrFlatNotFound) {
		t.Errorf("missing flat: expected ErrFlatNotFound, got %v", err)
	}

	denied := errors.New("denied")
	ev.FlatID = "flat-1"
	if err := s.CreateEvent(ctx, ev, func(domain.MembershipSnapshot) error { return denied }); !errors.Is(err, denied) {
		t.Errorf("guard: expected denied, got %v", err)
	}
	if _, err := s.GetEvent(ctx, "evt-1"); !errors.Is(err, store.ErrEventNotFound) {
		t.Errorf("event stored despite guard: %v", err)
	}

	list, err := s.ListEvents(ctx, "flat-1")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}
