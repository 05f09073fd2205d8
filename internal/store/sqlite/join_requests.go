package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/store"
)

// joinRequestColumns is the ordered list of columns selected in join request
// queries. Must match the scan order in scanJoinRequest.
const joinRequestColumns = `id, flat_id, requester_id, status, created_at, resolved_at, resolved_by`

func scanJoinRequest(scanner interface{ Scan(dest ...any) error }) (*domain.JoinRequest, error) {
	var (
		r          domain.JoinRequest
		status     string
		createdAt  string
		resolvedAt sql.NullString
		resolvedBy sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&r.FlatID,
		&r.RequesterID,
		&status,
		&createdAt,
		&resolvedAt,
		&resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.RequestStatus(status)
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.ResolvedAt, err = parseNullableTime(resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedBy.Valid {
		r.ResolvedBy = resolvedBy.String
	}
	return &r, nil
}

func scanJoinRequests(rows *sql.Rows) ([]*domain.JoinRequest, error) {
	defer rows.Close()

	requests := []*domain.JoinRequest{}
	for rows.Next() {
		r, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// CreateJoinRequest stores a new pending request.
// guard runs against the flat's membership inside the transaction.
// Returns store.ErrFlatNotFound or store.ErrPendingRequestExists.
func (s *Store) CreateJoinRequest(ctx context.Context, req *domain.JoinRequest, guard store.Guard) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	snap, err := membership(ctx, tx, req.FlatID)
	if err != nil {
		return err
	}
	if err := guard(snap); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO join_requests (`+joinRequestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.FlatID,
		req.RequesterID,
		string(req.Status),
		formatTime(req.CreatedAt),
		nullTimeString(req.ResolvedAt),
		nullString(req.ResolvedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if pending, perr := hasPending(ctx, tx, req.FlatID, req.RequesterID); perr == nil && pending {
				return store.ErrPendingRequestExists
			}
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert join_request: %w", err)
	}

	return tx.Commit()
}

// GetJoinRequest retrieves a request by ID.
// Returns store.ErrJoinRequestNotFound if it does not exist.
func (s *Store) GetJoinRequest(ctx context.Context, id string) (*domain.JoinRequest, error) {
	return getJoinRequest(ctx, s.db, id)
}

func getJoinRequest(ctx context.Context, q querier, id string) (*domain.JoinRequest, error) {
	r, err := scanJoinRequest(q.QueryRowContext(ctx,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJoinRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListJoinRequests returns a flat's requests in submission order.
func (s *Store) ListJoinRequests(ctx context.Context, flatID string, filter store.JoinRequestFilter) ([]*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE flat_id = ?`
	args := []any{flatID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at, seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanJoinRequests(rows)
}

// ListJoinRequestsByRequester returns every request a user has submitted.
func (s *Store) ListJoinRequestsByRequester(ctx context.Context, requesterID string) ([]*domain.JoinRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+joinRequestColumns+` FROM join_requests
		WHERE requester_id = ?
		ORDER BY created_at, seq`, requesterID)
	if err != nil {
		return nil, err
	}
	return scanJoinRequests(rows)
}

// ResolveJoinRequest applies a validate or reject decision.
//
// Everything happens in one write transaction: the flat and request
// lookups, the terminal-state check, the guard over the caller's current
// membership, the state transition, and on validation the membership
// insert. A request of this flat that is already resolved reports
// store.ErrJoinRequestResolved before the guard runs; an unknown request
// or one of another flat reports store.ErrJoinRequestNotFound only after
// the guard accepts the caller. The status update only
// matches a pending row, so of two racing resolutions exactly one commits.
func (s *Store) ResolveJoinRequest(ctx context.Context, res store.Resolution, guard store.Guard) (*domain.JoinRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	snap, err := membership(ctx, tx, res.FlatID)
	if err != nil {
		return nil, err
	}

	req, err := getJoinRequest(ctx, tx, res.RequestID)
	if err != nil && !errors.Is(err, store.ErrJoinRequestNotFound) {
		return nil, err
	}
	if req != nil && req.FlatID != res.FlatID {
		req = nil
	}
	if req != nil && req.Status.IsTerminal() {
		return nil, store.ErrJoinRequestResolved
	}

	// Unknown and foreign ids are reported only to callers the guard admits.
	if err := guard(snap); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, store.ErrJoinRequestNotFound
	}

	if err := req.Resolve(res.Decision, res.ResolvedBy, res.At); err != nil {
		return nil, err
	}

	n, err := execCount(ctx, tx, `
		UPDATE join_requests SET status = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ? AND status = 'pending'`,
		string(req.Status),
		nullTimeString(req.ResolvedAt),
		req.ResolvedBy,
		req.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update join_request: %w", err)
	}
	if n == 0 {
		return nil, store.ErrJoinRequestResolved
	}

	if req.Status == domain.RequestValidated {
		if err := addMember(ctx, tx, req.FlatID, req.RequesterID, res.At); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE flats SET updated_at = ? WHERE id = ?`, formatTime(res.At), req.FlatID); err != nil {
			return nil, fmt.Errorf("touch flat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

func hasPending(ctx context.Context, q querier, flatID, requesterID string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM join_requests
		WHERE flat_id = ? AND requester_id = ? AND status = 'pending'`,
		flatID, requesterID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
