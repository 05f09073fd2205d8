package sqlite

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/store"
)

func insertTestRequest(t *testing.T, s *Store, id, flatID, requesterID string, at time.Time) *domain.JoinRequest {
	t.Helper()
	req := domain.NewJoinRequest(id, flatID, requesterID, at)
	if err := s.CreateJoinRequest(context.Background(), req, store.Allow); err != nil {
		t.Fatalf("CreateJoinRequest(%s): %v", id, err)
	}
	return req
}

func resolution(flatID, requestID, by string, decision domain.RequestStatus) store.Resolution {
	return store.Resolution{
		At:         time.Now(),
		FlatID:     flatID,
		RequestID:  requestID,
		ResolvedBy: by,
		Decision:   decision,
	}
}

func TestCreateAndGetJoinRequest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")

	now := time.Now()
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", now)

	got, err := s.GetJoinRequest(ctx, "jr-1")
	if err != nil {
		t.Fatalf("GetJoinRequest: %v", err)
	}
	if got.Status != domain.RequestPending {
		t.Errorf("Status: got %q", got.Status)
	}
	if got.RequesterID != "user-b" || got.FlatID != "flat-1" {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.ResolvedAt != nil || got.ResolvedBy != "" {
		t.Errorf("pending request carries resolution: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, now)
	}
}

func TestCreateJoinRequest_MissingFlat(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateJoinRequest(context.Background(),
		domain.NewJoinRequest("jr-1", "missing", "user-b", time.Now()), store.Allow)
	if !errors.Is(err, store.ErrFlatNotFound) {
		t.Fatalf("expected ErrFlatNotFound, got %v", err)
	}
}

func TestCreateJoinRequest_OnePendingPerRequester(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())

	err := s.CreateJoinRequest(ctx, domain.NewJoinRequest("jr-2", "flat-1", "user-b", time.Now()), store.Allow)
	if !errors.Is(err, store.ErrPendingRequestExists) {
		t.Fatalf("expected ErrPendingRequestExists, got %v", err)
	}

	// Once the first is resolved a new request is accepted.
	if _, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-1", "user-a", domain.RequestRejected), store.Allow); err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}
	insertTestRequest(t, s, "jr-3", "flat-1", "user-b", time.Now())
}

func TestCreateJoinRequest_GuardAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")

	member := errors.New("already a member")
	err := s.CreateJoinRequest(ctx, domain.NewJoinRequest("jr-1", "flat-1", "user-a", time.Now()),
		func(snap domain.MembershipSnapshot) error {
			if snap.IsMember("user-a") {
				return member
			}
			return nil
		})
	if !errors.Is(err, member) {
		t.Fatalf("expected guard error, got %v", err)
	}
	if _, err := s.GetJoinRequest(ctx, "jr-1"); !errors.Is(err, store.ErrJoinRequestNotFound) {
		t.Fatalf("request stored despite guard: %v", err)
	}
}

func TestListJoinRequests_OrderAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")

	// Same timestamp: insertion order breaks the tie.
	at := time.Now()
	insertTestRequest(t, s, "jr-c", "flat-1", "user-c", at)
	insertTestRequest(t, s, "jr-b", "flat-1", "user-b", at)
	insertTestRequest(t, s, "jr-d", "flat-1", "user-d", at.Add(time.Millisecond))

	if _, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-b", "user-a", domain.RequestRejected), store.Allow); err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}

	all, err := s.ListJoinRequests(ctx, "flat-1", store.JoinRequestFilter{})
	if err != nil {
		t.Fatalf("ListJoinRequests: %v", err)
	}
	if ids := requestIDs(all); !slices.Equal(ids, []string{"jr-c", "jr-b", "jr-d"}) {
		t.Errorf("unexpected order: %v", ids)
	}

	pending, err := s.ListJoinRequests(ctx, "flat-1", store.JoinRequestFilter{Status: domain.RequestPending})
	if err != nil {
		t.Fatalf("ListJoinRequests(pending): %v", err)
	}
	if ids := requestIDs(pending); !slices.Equal(ids, []string{"jr-c", "jr-d"}) {
		t.Errorf("unexpected pending: %v", ids)
	}

	mine, err := s.ListJoinRequestsByRequester(ctx, "user-b")
	if err != nil {
		t.Fatalf("ListJoinRequestsByRequester: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != domain.RequestRejected {
		t.Errorf("unexpected requester list: %+v", mine)
	}
}

func TestResolveJoinRequest_ValidateAddsMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())

	res := resolution("flat-1", "jr-1", "user-a", domain.RequestValidated)
	got, err := s.ResolveJoinRequest(ctx, res, store.Allow)
	if err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}
	if got.Status != domain.RequestValidated || got.ResolvedBy != "user-a" || got.ResolvedAt == nil {
		t.Errorf("unexpected result: %+v", got)
	}

	members, err := s.ListMembers(ctx, "flat-1")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if !slices.Equal(members, []string{"user-a", "user-b"}) {
		t.Errorf("Members: got %v", members)
	}

	stored, err := s.GetJoinRequest(ctx, "jr-1")
	if err != nil {
		t.Fatalf("GetJoinRequest: %v", err)
	}
	if stored.Status != domain.RequestValidated || !stored.ResolvedAt.Equal(res.At) {
		t.Errorf("stored request not updated: %+v", stored)
	}
}

func TestResolveJoinRequest_ValidateRequesterAlreadyMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())

	// user-b joins through another path while the request is pending.
	if _, err := s.DB().ExecContext(ctx,
		`INSERT INTO flat_members (flat_id, user_id, joined_at) VALUES (?, ?, ?)`,
		"flat-1", "user-b", formatTime(time.Now())); err != nil {
		t.Fatalf("insert member: %v", err)
	}

	got, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-1", "user-a", domain.RequestValidated), store.Allow)
	if err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}
	if got.Status != domain.RequestValidated {
		t.Errorf("Status: got %s, want %s", got.Status, domain.RequestValidated)
	}

	members, err := s.ListMembers(ctx, "flat-1")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if !slices.Equal(members, []string{"user-a", "user-b"}) {
		t.Errorf("Members: got %v", members)
	}

	stored, err := s.GetJoinRequest(ctx, "jr-1")
	if err != nil {
		t.Fatalf("GetJoinRequest: %v", err)
	}
	if stored.Status != domain.RequestValidated {
		t.Errorf("stored status: got %s", stored.Status)
	}
}

func TestResolveJoinRequest_RejectLeavesMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())

	if _, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-1", "user-a", domain.RequestRejected), store.Allow); err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}
	members, _ := s.ListMembers(ctx, "flat-1")
	if !slices.Equal(members, []string{"user-a"}) {
		t.Errorf("Members changed on reject: %v", members)
	}
}

func TestResolveJoinRequest_TerminalIsFinal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())

	if _, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-1", "user-a", domain.RequestRejected), store.Allow); err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}

	for _, decision := range []domain.RequestStatus{domain.RequestValidated, domain.RequestRejected} {
		_, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-1", "user-a", decision), store.Allow)
		if !errors.Is(err, store.ErrJoinRequestResolved) {
			t.Errorf("%s after reject: expected ErrJoinRequestResolved, got %v", decision, err)
		}
	}
}

func TestResolveJoinRequest_WrongFlat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestFlat(t, s, "flat-2", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())

	_, err := s.ResolveJoinRequest(ctx, resolution("flat-2", "jr-1", "user-a", domain.RequestValidated), store.Allow)
	if !errors.Is(err, store.ErrJoinRequestNotFound) {
		t.Fatalf("expected ErrJoinRequestNotFound, got %v", err)
	}
	_, err = s.ResolveJoinRequest(ctx, resolution("missing", "jr-1", "user-a", domain.RequestValidated), store.Allow)
	if !errors.Is(err, store.ErrFlatNotFound) {
		t.Fatalf("expected ErrFlatNotFound, got %v", err)
	}
}

func TestResolveJoinRequest_GuardOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a")
	insertTestRequest(t, s, "jr-1", "flat-1", "user-b", time.Now())
	insertTestRequest(t, s, "jr-2", "flat-1", "user-c", time.Now())

	denied := errors.New("denied")
	deny := func(domain.MembershipSnapshot) error { return denied }

	insertTestFlat(t, s, "flat-2", "user-c")
	insertTestRequest(t, s, "jr-other", "flat-2", "user-d", time.Now())

	// Unknown requests and requests of another flat are hidden behind the guard.
	for _, id := range []string{"missing", "jr-other"} {
		_, err := s.ResolveJoinRequest(ctx, resolution("flat-1", id, "user-z", domain.RequestValidated), deny)
		if !errors.Is(err, denied) {
			t.Fatalf("%s: expected guard error, got %v", id, err)
		}
		_, err = s.ResolveJoinRequest(ctx, resolution("flat-1", id, "user-a", domain.RequestValidated), store.Allow)
		if !errors.Is(err, store.ErrJoinRequestNotFound) {
			t.Fatalf("%s: expected ErrJoinRequestNotFound, got %v", id, err)
		}
	}
	other, _ := s.GetJoinRequest(ctx, "jr-other")
	if other.Status != domain.RequestPending {
		t.Errorf("request of another flat changed status to %s", other.Status)
	}

	// A pending request is protected by the guard and left untouched.
	_, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-1", "user-z", domain.RequestValidated), deny)
	if !errors.Is(err, denied) {
		t.Fatalf("expected guard error, got %v", err)
	}
	got, _ := s.GetJoinRequest(ctx, "jr-1")
	if got.Status != domain.RequestPending {
		t.Errorf("denied resolution changed status to %s", got.Status)
	}

	// A resolved request stays final whoever asks.
	if _, err := s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-2", "user-a", domain.RequestRejected), store.Allow); err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}
	_, err = s.ResolveJoinRequest(ctx, resolution("flat-1", "jr-2", "user-z", domain.RequestValidated), deny)
	if !errors.Is(err, store.ErrJoinRequestResolved) {
		t.Fatalf("expected ErrJoinRequestResolved, got %v", err)
	}
}

func TestResolveJoinRequest_ConcurrentDecisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestFlat(t, s, "flat-1", "user-a", "user-b")

	const rounds = 10
	for i := range rounds {
		requester := "user-x" + string(rune('0'+i))
		id := "jr-" + requester
		insertTestRequest(t, s, id, "flat-1", requester, time.Now())

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			wins     []domain.RequestStatus
			resolved int
		)
		for _, d := range []domain.RequestStatus{domain.RequestValidated, domain.RequestRejected} {
			wg.Add(1)
			go func(decision domain.RequestStatus) {
				defer wg.Done()
				_, err := s.ResolveJoinRequest(ctx, resolution("flat-1", id, "user-a", decision), store.Allow)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins = append(wins, decision)
				case errors.Is(err, store.ErrJoinRequestResolved):
					resolved++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(d)
		}
		wg.Wait()

		if len(wins) != 1 || resolved != 1 {
			t.Fatalf("round %d: wins=%v resolved=%d", i, wins, resolved)
		}

		stored, err := s.GetJoinRequest(ctx, id)
		if err != nil {
			t.Fatalf("GetJoinRequest: %v", err)
		}
		if stored.Status != wins[0] {
			t.Errorf("round %d: stored %s, winner %s", i, stored.Status, wins[0])
		}
		isMember, err := s.IsMember(ctx, "flat-1", requester)
		if err != nil {
			t.Fatalf("IsMember: %v", err)
		}
		if isMember != (wins[0] == domain.RequestValidated) {
			t.Errorf("round %d: membership %v inconsistent with %s", i, isMember, wins[0])
		}
	}
}

func requestIDs(reqs []*domain.JoinRequest) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}
