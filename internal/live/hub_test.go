package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "client queue closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_PublishTallyReachesOnlyTheMatchRoom(t *testing.T) {
	hub := startHub(t)
	matchID := uuid.New()

	watcher := &Client{Hub: hub, Send: make(chan []byte, 4), Room: MatchRoom(matchID)}
	other := &Client{Hub: hub, Send: make(chan []byte, 4), Room: MatchRoom(uuid.New())}
	hub.Register <- watcher
	hub.Register <- other
	require.Eventually(t, func() bool { return hub.Clients(watcher.Room) == 1 }, time.Second, time.Millisecond)

	hub.PublishTally(matchID, bracket.NewTally(2, 1))

	msg := receive(t, watcher)
	assert.Equal(t, MessageTally, msg.Type)
	assert.Equal(t, watcher.Room, msg.Room)
	payload := msg.Payload.(map[string]any)
	assert.Equal(t, float64(2), payload["countA"])
	assert.Equal(t, float64(67), payload["percentA"])
	assert.Empty(t, other.Send)
}

func TestHub_PublishToUsers(t *testing.T) {
	hub := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	aliceClient := &Client{Hub: hub, Send: make(chan []byte, 4), Room: UserRoom(alice)}
	bobClient := &Client{Hub: hub, Send: make(chan []byte, 4), Room: UserRoom(bob)}
	matchClient := &Client{Hub: hub, Send: make(chan []byte, 4), Room: MatchRoom(uuid.New())}
	for _, c := range []*Client{aliceClient, bobClient, matchClient} {
		hub.Register <- c
	}
	require.Eventually(t, func() bool { return hub.Clients(matchClient.Room) == 1 }, time.Second, time.Millisecond)

	hub.PublishToUser(alice, map[string]string{"message": "hello"})
	assert.Equal(t, MessageNotification, receive(t, aliceClient).Type)
	assert.Empty(t, bobClient.Send)

	hub.PublishToAllUsers(map[string]string{"message": "round started"})
	receive(t, aliceClient)
	receive(t, bobClient)
	assert.Empty(t, matchClient.Send, "broadcasts skip match rooms")
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	hub := startHub(t)
	c := &Client{Hub: hub, Send: make(chan []byte, 1), Room: MatchRoom(uuid.New())}
	hub.Register <- c
	hub.Unregister <- c
	// A second unregister of the same client is ignored
	hub.Unregister <- c

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Clients(c.Room))

	// Publishing to an emptied room is a no-op
	hub.Publish(c.Room, MessageTally, bracket.Tally{})
}

func TestHub_FullQueueDropsMessages(t *testing.T) {
	hub := startHub(t)
	c := &Client{Hub: hub, Send: make(chan []byte, 1), Room: MatchRoom(uuid.New())}
	hub.Register <- c
	require.Eventually(t, func() bool { return hub.Clients(c.Room) == 1 }, time.Second, time.Millisecond)

	hub.Publish(c.Room, MessageTally, bracket.NewTally(1, 0))
	hub.Publish(c.Room, MessageTally, bracket.NewTally(2, 0))

	assert.Len(t, c.Send, 1)
}
