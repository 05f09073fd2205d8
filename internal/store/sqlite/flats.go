package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/store"
)

// flatColumns is the ordered list of columns selected in flat queries.
// Must match the scan order in scanFlat.
const flatColumns = `id, created_at, updated_at, name, description, creator_id`

// scanFlat scans a row into a domain.Flat without its members.
func scanFlat(scanner interface{ Scan(dest ...any) error }) (*domain.Flat, error) {
	var (
		f         domain.Flat
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&f.ID,
		&createdAt,
		&updatedAt,
		&f.Name,
		&f.Description,
		&f.CreatorID,
	)
	if err != nil {
		return nil, err
	}

	f.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFlat inserts the flat together with its creator's membership.
func (s *Store) CreateFlat(ctx context.Context, flat *domain.Flat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flats (`+flatColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		flat.ID,
		formatTime(flat.CreatedAt),
		formatTime(flat.UpdatedAt),
		flat.Name,
		flat.Description,
		flat.CreatorID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert flat: %w", err)
	}

	for _, userID := range flat.Members {
		if err := addMember(ctx, tx, flat.ID, userID, flat.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetFlat retrieves a flat and its members.
// Returns store.ErrFlatNotFound if the flat does not exist.
func (s *Store) GetFlat(ctx context.Context, id string) (*domain.Flat, error) {
	return getFlat(ctx, s.db, id)
}

func getFlat(ctx context.Context, q querier, id string) (*domain.Flat, error) {
	f, err := scanFlat(q.QueryRowContext(ctx,
		`SELECT `+flatColumns+` FROM flats WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrFlatNotFound
	}
	if err != nil {
		return nil, err
	}

	f.Members, err = listMembers(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFlatsForUser returns the flats userID belongs to, oldest membership first.
func (s *Store) ListFlatsForUser(ctx context.Context, userID string) ([]*domain.Flat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.created_at, f.updated_at, f.name, f.description, f.creator_id
		FROM flats f
		JOIN flat_members m ON m.flat_id = f.id
		WHERE m.user_id = ?
		ORDER BY m.joined_at, m.seq`, userID)
	if err != nil {
		return nil, err
	}

	var flats []*domain.Flat
	for rows.Next() {
		f, err := scanFlat(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		flats = append(flats, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, f := range flats {
		f.Members, err = listMembers(ctx, s.db, f.ID)
		if err != nil {
			return nil, err
		}
	}
	return flats, nil
}

// DeleteFlat removes a flat and everything scoped to it in one transaction.
// guard sees the membership as of the start of the transaction.
func (s *Store) DeleteFlat(ctx context.Context, id string, guard store.Guard) (*store.FlatDeletion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	snap, err := membership(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(snap); err != nil {
		return nil, err
	}

	del := &store.FlatDeletion{FlatID: id, Members: len(snap.Members)}

	// Children are removed explicitly so the counts are exact.
	if del.JoinRequests, err = execCount(ctx, tx, `DELETE FROM join_requests WHERE flat_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete join_requests: %w", err)
	}
	if del.Events, err = execCount(ctx, tx, `DELETE FROM events WHERE flat_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete events: %w", err)
	}
	if _, err = execCount(ctx, tx, `DELETE FROM flat_members WHERE flat_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete flat_members: %w", err)
	}
	n, err := execCount(ctx, tx, `DELETE FROM flats WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete flat: %w", err)
	}
	if n == 0 {
		return nil, store.ErrFlatNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return del, nil
}

// GetMembership returns the current membership snapshot of a flat.
func (s *Store) GetMembership(ctx context.Context, flatID string) (domain.MembershipSnapshot, error) {
	return membership(ctx, s.db, flatID)
}

// ListMembers returns member IDs in join order.
// Returns store.ErrFlatNotFound if the flat does not exist.
func (s *Store) ListMembers(ctx context.Context, flatID string) ([]string, error) {
	snap, err := membership(ctx, s.db, flatID)
	if err != nil {
		return nil, err
	}
	return snap.Members, nil
}

// IsMember reports whether userID belongs to flatID. A missing flat has no
// members.
func (s *Store) IsMember(ctx context.Context, flatID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM flat_members WHERE flat_id = ? AND user_id = ?`, flatID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// membership loads the creator and member list of a flat.
func membership(ctx context.Context, q querier, flatID string) (domain.MembershipSnapshot, error) {
	snap := domain.MembershipSnapshot{FlatID: flatID}

	err := q.QueryRowContext(ctx, `SELECT creator_id FROM flats WHERE id = ?`, flatID).Scan(&snap.CreatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, store.ErrFlatNotFound
	}
	if err != nil {
		return snap, err
	}

	snap.Members, err = listMembers(ctx, q, flatID)
	if err != nil {
		return snap, err
	}
	return snap, nil
}

func listMembers(ctx context.Context, q querier, flatID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id FROM flat_members WHERE flat_id = ? ORDER BY joined_at, seq`, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// addMember inserts a membership row. Adding an existing member is a no-op.
func addMember(ctx context.Context, q querier, flatID, userID string, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO flat_members (flat_id, user_id, joined_at) VALUES (?, ?, ?)
		ON CONFLICT (flat_id, user_id) DO NOTHING`,
		flatID, userID, formatTime(at))
	if err != nil {
		return fmt.Errorf("insert flat_member: %w", err)
	}
	return nil
}

func execCount(ctx context.Context, q querier, query string, args ...any) (int, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
