package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// EnsureSubscriber returns the subscriber with the given name, creating it on first use.
func (s *Store) EnsureSubscriber(ctx context.Context, name string) (*Subscriber, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: subscriber name is required", ErrInvalidInput)
	}
	ctx = ensureContext(ctx)
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO subscribers (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, s.timestamp(),
	); err != nil {
		return nil, fmt.Errorf("create subscriber %q: %w", name, err)
	}
	return s.subscriberByName(ctx, name)
}

func (s *Store) subscriberByName(ctx context.Context, name string) (*Subscriber, error) {
	var (
		sub        Subscriber
		createdRaw string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM subscribers WHERE name = ?", name,
	).Scan(&sub.ID, &sub.Name, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscriber %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load subscriber %q: %w", name, err)
	}
	sub.CreatedAt = parseTimeString(createdRaw)
	return &sub, nil
}

// Watch adds a work to a subscriber's watchlist. Adding an entry twice is a no-op.
func (s *Store) Watch(ctx context.Context, subscriber string, workID int64) error {
	ctx = ensureContext(ctx)
	if _, err := s.GetWork(ctx, workID); err != nil {
		return err
	}
	sub, err := s.EnsureSubscriber(ctx, subscriber)
	if err != nil {
		return err
	}
	if _, err := s.execWithRetry(ctx,
		"INSERT OR IGNORE INTO watchlist (subscriber_id, work_id, created_at) VALUES (?, ?, ?)",
		sub.ID, workID, s.timestamp(),
	); err != nil {
		return fmt.Errorf("watch work %d for %q: %w", workID, subscriber, err)
	}
	return nil
}

// Unwatch removes a work from a subscriber's watchlist. It reports whether an
// entry was removed.
func (s *Store) Unwatch(ctx context.Context, subscriber string, workID int64) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM watchlist
		 WHERE work_id = ? AND subscriber_id = (SELECT id FROM subscribers WHERE name = ?)`,
		workID, strings.TrimSpace(subscriber),
	)
	if err != nil {
		return false, fmt.Errorf("unwatch work %d for %q: %w", workID, subscriber, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SubscribersWatching returns the subscribers whose watchlist contains the
// work, in the order they added it.
func (s *Store) SubscribersWatching(ctx context.Context, workID int64) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT sub.id, sub.name, sub.created_at
		FROM watchlist wl JOIN subscribers sub ON sub.id = wl.subscriber_id
		WHERE wl.work_id = ?
		ORDER BY wl.id`, workID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers of work %d: %w", workID, err)
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var (
			sub        Subscriber
			createdRaw string
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.CreatedAt = parseTimeString(createdRaw)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Watchlist returns the works a subscriber watches, in insertion order.
func (s *Store) Watchlist(ctx context.Context, subscriber string) ([]*Work, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT wl.work_id
		FROM watchlist wl JOIN subscribers sub ON sub.id = wl.subscriber_id
		WHERE sub.name = ?
		ORDER BY wl.id`, strings.TrimSpace(subscriber))
	if err != nil {
		return nil, fmt.Errorf("list watchlist for %q: %w", subscriber, err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	works := make([]*Work, 0, len(ids))
	for _, id := range ids {
		work, err := s.GetWork(ctx, id)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	return works, nil
}
