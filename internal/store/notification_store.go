package store

import (
	"context"

	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type NotificationStore struct {
	db sqlx.ExtContext
}

func NewNotificationStore(db sqlx.ExtContext) *NotificationStore {
	return &NotificationStore{db: db}
}

const (
	createNotificationQuery = `
		INSERT INTO notifications (id, user_id, kind, message, meta, is_read, created_at)
		VALUES (:id, :user_id, :kind, :message, :meta, :is_read, :created_at)
	`
	// Keeps a batch insert under SQLite's bound parameter limit
	broadcastBatchSize = 500
)

func (s *NotificationStore) Create(ctx context.Context, n *notify.Notification) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, createNotificationQuery, n)
	return err
}

// CreateForAllUsers copies n into every user's inbox. n.ID and n.UserID are ignored.
func (s *NotificationStore) CreateForAllUsers(ctx context.Context, n *notify.Notification) error {
	var userIDs []uuid.UUID
	if err := sqlx.SelectContext(ctx, s.db, &userIDs, "SELECT id FROM users"); err != nil {
		return err
	}

	batch := make([]notify.Notification, 0, broadcastBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := sqlx.NamedExecContext(ctx, s.db, createNotificationQuery, batch)
		batch = batch[:0]
		return err
	}

	for _, userID := range userIDs {
		copied := *n
		copied.ID = uuid.New()
		copied.UserID = userID
		batch = append(batch, copied)
		if len(batch) == broadcastBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]notify.Notification, error) {
	var notifications []notify.Notification
	err := sqlx.SelectContext(ctx, s.db, &notifications, "SELECT * FROM notifications WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?", userID, limit)
	return notifications, err
}

// MarkRead only touches the user's own notification and reports whether it matched.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
