package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/store"
)

const eventColumns = `id, flat_id, creator_id, title, description, starts_at, created_at`

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*domain.Event, error) {
	var (
		e         domain.Event
		startsAt  string
		createdAt string
	)

	err := scanner.Scan(
		&e.ID,
		&e.FlatID,
		&e.CreatorID,
		&e.Title,
		&e.Description,
		&startsAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.StartsAt, err = parseTime(startsAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent appends an event to a flat's board. guard runs against the
// flat's membership in the same transaction as the insert.
func (s *Store) CreateEvent(ctx context.Context, event *domain.Event, guard store.Guard) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	snap, err := membership(ctx, tx, event.FlatID)
	if err != nil {
		return err
	}
	if err := guard(snap); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.FlatID,
		event.CreatorID,
		event.Title,
		event.Description,
		formatTime(event.StartsAt),
		formatTime(event.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert event: %w", err)
	}

	return tx.Commit()
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEvents returns a flat's events in posting order.
func (s *Store) ListEvents(ctx context.Context, flatID string) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE flat_id = ?
		ORDER BY created_at, seq`, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
