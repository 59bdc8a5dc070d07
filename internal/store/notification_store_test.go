package store

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, stores)
	bob := seedUser(t, stores)

	msg := notify.Message{Kind: notify.KindVote, Text: "Your post received a vote.", Meta: notify.Meta{"matchId": "m1"}}
	n := msg.For(alice.ID, testNow)
	require.NoError(t, stores.Notifications.Create(ctx, n))

	require.NoError(t, stores.Notifications.CreateForAllUsers(ctx, notify.Message{Kind: notify.KindRound, Text: "A new round started."}.For(uuid.Nil, testNow)))

	inbox, err := stores.Notifications.ListByUser(ctx, alice.ID, 100)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	var vote notify.Notification
	for _, item := range inbox {
		if item.Kind == notify.KindVote {
			vote = item
		}
	}
	assert.Equal(t, n.ID, vote.ID)
	assert.Equal(t, "m1", vote.Meta["matchId"])
	assert.False(t, vote.Read)

	bobInbox, err := stores.Notifications.ListByUser(ctx, bob.ID, 100)
	require.NoError(t, err)
	require.Len(t, bobInbox, 1)
	assert.Equal(t, notify.KindRound, bobInbox[0].Kind)
	assert.NotNil(t, bobInbox[0].Meta)

	// Users can only mark their own notifications
	ok, err := stores.Notifications.MarkRead(ctx, bob.ID, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = stores.Notifications.MarkRead(ctx, alice.ID, n.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	inbox, err = stores.Notifications.ListByUser(ctx, alice.ID, 1)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}
