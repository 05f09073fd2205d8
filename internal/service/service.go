// Package service provides the business logic for flats, join requests and
// the event board. Services authorize against a fresh membership snapshot on
// every call and translate store failures into domain errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/colocapp/coloc-server/internal/domain"
	domainerrors "github.com/colocapp/coloc-server/internal/errors"
	"github.com/colocapp/coloc-server/internal/store"
	"github.com/colocapp/coloc-server/internal/telemetry"
)

// requireIdentity rejects calls that carry no caller.
func requireIdentity(callerID string) error {
	if callerID == "" {
		return domainerrors.Unauthenticated("identity required")
	}
	return nil
}

// authorize returns a guard that admits callerID only if the authorizer
// allows action on the snapshot it is given.
func authorize(callerID string, action domain.Action, policy domain.DeletePolicy) store.Guard {
	return func(snap domain.MembershipSnapshot) error {
		if !domain.CanAct(callerID, snap, action, policy) {
			return domainerrors.Forbiddenf("user %s may not %s on flat %s", callerID, action, snap.FlatID)
		}
		return nil
	}
}

// checkAccess loads a fresh membership snapshot and asks the authorizer.
func checkAccess(ctx context.Context, st store.Store, callerID, flatID string, action domain.Action) error {
	snap, err := st.GetMembership(ctx, flatID)
	if err != nil {
		return translate(err, "get membership")
	}
	return authorize(callerID, action, "")(snap)
}

// translate maps store sentinels onto domain errors. Errors that are already
// domain errors (guards) or context errors pass through unchanged.
func translate(err error, op string) error {
	var de *domainerrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &de):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, store.ErrFlatNotFound):
		return domainerrors.NotFound("flat not found").WithCause(err)
	case errors.Is(err, store.ErrJoinRequestNotFound):
		return domainerrors.NotFound("join request not found").WithCause(err)
	case errors.Is(err, store.ErrEventNotFound):
		return domainerrors.NotFound("event not found").WithCause(err)
	case errors.Is(err, store.ErrPendingRequestExists):
		return domainerrors.Conflict(domainerrors.ReasonDuplicateRequest,
			"a pending join request already exists for this flat").WithCause(err)
	case errors.Is(err, store.ErrJoinRequestResolved):
		return domainerrors.Conflict(domainerrors.ReasonAlreadyResolved,
			"join request has already been resolved").WithCause(err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// cleanText trims surrounding whitespace and normalizes to NFC so visually
// identical names compare equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
