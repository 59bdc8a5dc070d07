package live

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/httputil"
	"github.com/AdamBeresnev/post-battles/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TallySource gives a new match subscriber the tally as it stands.
type TallySource interface {
	Tally(ctx context.Context, matchID uuid.UUID) (bracket.Tally, error)
}

type Handler struct {
	hub      *Hub
	tallies  TallySource
	upgrader websocket.Upgrader
}

// NewHandler accepts any origin when allowedOrigins is empty or contains "*".
func NewHandler(hub *Hub, tallies TallySource, allowedOrigins []string) *Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &Handler{
		hub:     hub,
		tallies: tallies,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// ServeMatch streams the tally of the match in the "id" URL parameter, starting with the
// current one.
func (h *Handler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid match ID", err)
		return
	}
	tally, err := h.tallies.Tally(r.Context(), matchID)
	if err != nil {
		httputil.Error(w, "Failed to load tally", err)
		return
	}

	room := MatchRoom(matchID)
	initial, err := json.Marshal(Message{Type: MessageTally, Payload: tally, Room: room})
	if err != nil {
		httputil.InternalServerError(w, "Failed to encode tally", err)
		return
	}
	h.serve(w, r, room, initial)
}

// ServeUser streams the authenticated user's notifications.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w)
		return
	}
	h.serve(w, r, UserRoom(userID), nil)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, room string, initial []byte) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.hub.logger.Warn("websocket upgrade failed", "room", room, "error", err)
		return
	}

	client := NewClient(h.hub, conn, room)
	if initial != nil {
		client.Send <- initial
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
