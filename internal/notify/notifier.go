// Package notify delivers user notifications: a durable inbox row per recipient plus a
// best-effort push to any live stream the recipient has open.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Inbox interface {
	Create(ctx context.Context, n *Notification) error
	CreateForAllUsers(ctx context.Context, n *Notification) error
}

type Pusher interface {
	PublishToUser(userID uuid.UUID, v any)
	PublishToAllUsers(v any)
}

type Notifier struct {
	inbox Inbox
	push  Pusher
	now   func() time.Time
}

// NewNotifier accepts a nil pusher, in which case only the inbox is written.
func NewNotifier(inbox Inbox, push Pusher) *Notifier {
	return &Notifier{
		inbox: inbox,
		push:  push,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, msg Message) error {
	if err := n.inbox.Create(ctx, msg.For(userID, n.now())); err != nil {
		return fmt.Errorf("store notification for %s: %w", userID, err)
	}
	if n.push != nil {
		n.push.PublishToUser(userID, msg.Event())
	}
	return nil
}

// NotifyMany sends msg once to every distinct user and keeps going past failures.
func (n *Notifier) NotifyMany(ctx context.Context, userIDs []uuid.UUID, msg Message) error {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	var errs []error
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := n.Notify(ctx, id, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) Broadcast(ctx context.Context, msg Message) error {
	if err := n.inbox.CreateForAllUsers(ctx, msg.For(uuid.Nil, n.now())); err != nil {
		return fmt.Errorf("store broadcast: %w", err)
	}
	if n.push != nil {
		n.push.PublishToAllUsers(msg.Event())
	}
	return nil
}
