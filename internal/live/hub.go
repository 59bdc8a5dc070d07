// Package live pushes tallies and notifications to websocket clients. Clients join one room:
// a match room receives every new tally of that match, a user room receives the user's
// notifications.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/google/uuid"
)

const (
	MessageTally        = "tally"
	MessageNotification = "notification"

	userRoomPrefix = "user:"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Room    string `json:"room,omitempty"`
}

func MatchRoom(matchID uuid.UUID) string { return "match:" + matchID.String() }

func UserRoom(userID uuid.UUID) string { return userRoomPrefix + userID.String() }

type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run owns room membership until ctx is done, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()
			h.logger.Debug("live client joined", "room", client.Room)

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("live client left", "room", client.Room)

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rooms {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove closes the client's queue. Callers hold h.mu for writing, so no publisher can be
// sending on it at the same time.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.Room]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.rooms, client.Room)
	}
}

// Clients reports how many clients are in room.
func (h *Hub) Clients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish sends v to everyone in room. Slow clients miss the message instead of blocking.
func (h *Hub) Publish(room, messageType string, v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.publishLocked(room, messageType, v)
}

func (h *Hub) publishLocked(room, messageType string, v any) {
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	data, err := json.Marshal(Message{Type: messageType, Payload: v, Room: room})
	if err != nil {
		h.logger.Warn("failed to encode live message", "room", room, "error", err)
		return
	}
	for client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("live client queue full, dropping message", "room", room)
		}
	}
}

func (h *Hub) PublishTally(matchID uuid.UUID, tally bracket.Tally) {
	h.Publish(MatchRoom(matchID), MessageTally, tally)
}

func (h *Hub) PublishToUser(userID uuid.UUID, v any) {
	h.Publish(UserRoom(userID), MessageNotification, v)
}

func (h *Hub) PublishToAllUsers(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for room := range h.rooms {
		if strings.HasPrefix(room, userRoomPrefix) {
			h.publishLocked(room, MessageNotification, v)
		}
	}
}
