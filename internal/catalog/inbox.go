package catalog

import (
	"context"
	"fmt"
)

// AddNotification appends a message to the recipient's inbox.
func (s *Store) AddNotification(ctx context.Context, n Notification) (int64, error) {
	if n.Recipient == "" || n.Verb == "" {
		return 0, fmt.Errorf("%w: notification needs a recipient and verb", ErrInvalidInput)
	}
	res, err := s.execWithRetry(ctx, `INSERT INTO notifications
		(sender, recipient, verb, description, work_id, episode, unread, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		n.Sender, n.Recipient, n.Verb, n.Description, n.WorkID, n.Episode, s.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification for %q: %w", n.Recipient, err)
	}
	return res.LastInsertId()
}

// Inbox lists a recipient's notifications, newest first.
func (s *Store) Inbox(ctx context.Context, recipient string, unreadOnly bool) ([]Notification, error) {
	query := `SELECT id, sender, recipient, verb, description, work_id, episode, unread, created_at
		FROM notifications WHERE recipient = ?`
	if unreadOnly {
		query += " AND unread = 1"
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, recipient)
	if err != nil {
		return nil, fmt.Errorf("list inbox for %q: %w", recipient, err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n          Notification
			unread     int
			createdRaw string
		)
		if err := rows.Scan(&n.ID, &n.Sender, &n.Recipient, &n.Verb, &n.Description,
			&n.WorkID, &n.Episode, &unread, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Unread = unread != 0
		n.CreatedAt = parseTimeString(createdRaw)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead clears the unread flag on every notification for the recipient and
// returns how many changed.
func (s *Store) MarkRead(ctx context.Context, recipient string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE notifications SET unread = 0 WHERE recipient = ? AND unread = 1", recipient)
	if err != nil {
		return 0, fmt.Errorf("mark inbox read for %q: %w", recipient, err)
	}
	return res.RowsAffected()
}
