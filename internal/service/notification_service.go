package service

import (
	"context"

	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const inboxLimit = 100

type NotificationService struct {
	base
}

func NewNotificationService(db *sqlx.DB, opts ...Option) *NotificationService {
	return &NotificationService{base: newBase(db, opts)}
}

// List returns the user's latest notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]notify.Notification, error) {
	notes, err := s.stores.Notifications.ListByUser(ctx, userID, inboxLimit)
	if notes == nil && err == nil {
		notes = []notify.Notification{}
	}
	return notes, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.stores.Notifications.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}
