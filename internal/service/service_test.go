package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/colocapp/coloc-server/internal/domain"
	domainerrors "github.com/colocapp/coloc-server/internal/errors"
	"github.com/colocapp/coloc-server/internal/store"
	"github.com/colocapp/coloc-server/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServices bundles the services over one temporary store.
type testServices struct {
	store    store.Store
	flats    *FlatService
	requests *JoinRequestService
	events   *EventService
}

// setupServices creates all services with temporary storage for testing.
func setupServices(t *testing.T, policy domain.DeletePolicy) *testServices {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Discard log output in tests
	logger := slog.New(slog.DiscardHandler)

	return &testServices{
		store:    s,
		flats:    NewFlatService(s, policy, logger),
		requests: NewJoinRequestService(s, logger),
		events:   NewEventService(s, logger),
	}
}

// createFlat creates a flat owned by ownerID and admits the extra members
// through the normal submit/validate path.
func (ts *testServices) createFlat(t *testing.T, ownerID string, members ...string) *domain.Flat {
	t.Helper()
	ctx := context.Background()

	flat, err := ts.flats.CreateFlat(ctx, ownerID, CreateFlatRequest{Name: "Flat of " + ownerID})
	require.NoError(t, err)

	for _, m := range members {
		req, err := ts.requests.Submit(ctx, m, flat.ID)
		require.NoError(t, err)
		_, err = ts.requests.Validate(ctx, ownerID, flat.ID, req.ID)
		require.NoError(t, err)
	}
	return flat
}

func assertCode(t *testing.T, err error, target *domainerrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, target), "expected %s, got %v", target.Code, err)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "op"))

	assertCode(t, translate(store.ErrFlatNotFound, "op"), domainerrors.ErrNotFound)
	assertCode(t, translate(store.ErrJoinRequestNotFound, "op"), domainerrors.ErrNotFound)
	assertCode(t, translate(store.ErrPendingRequestExists, "op"), domainerrors.ErrDuplicateRequest)
	assertCode(t, translate(store.ErrJoinRequestResolved, "op"), domainerrors.ErrAlreadyResolved)

	forbidden := domainerrors.Forbidden("no")
	assert.Same(t, forbidden, translate(forbidden, "op"))

	assert.ErrorIs(t, translate(context.Canceled, "op"), context.Canceled)

	other := translate(assert.AnError, "resolve join request")
	assert.ErrorIs(t, other, assert.AnError)
	assert.Contains(t, other.Error(), "resolve join request")
	assert.False(t, domainerrors.Is(other, domainerrors.ErrNotFound))
}

func TestCleanText(t *testing.T) {
	// "é" as e + combining acute normalizes to the precomposed form.
	assert.Equal(t, "Café", cleanText("  Café\n"))
	assert.Equal(t, "", cleanText("   "))
}
