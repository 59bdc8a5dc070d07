package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTallies map[uuid.UUID]bracket.Tally

func (s stubTallies) Tally(_ context.Context, id uuid.UUID) (bracket.Tally, error) {
	if tally, ok := s[id]; ok {
		return tally, nil
	}
	return bracket.Tally{}, service.ErrMatchNotFound
}

func newTestServer(t *testing.T, hub *Hub, tallies TallySource) *httptest.Server {
	t.Helper()
	h := NewHandler(hub, tallies, nil)
	r := chi.NewRouter()
	r.Get("/matches/{id}/stream", h.ServeMatch)
	r.Get("/notifications/stream", h.ServeUser)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestServeMatch_StreamsTallies(t *testing.T) {
	hub := startHub(t)
	matchID := uuid.New()
	server := newTestServer(t, hub, stubTallies{matchID: bracket.NewTally(1, 1)})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/matches/"+matchID.String()+"/stream"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var initial Message
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, MessageTally, initial.Type)
	assert.Equal(t, float64(50), initial.Payload.(map[string]any)["percentA"])

	room := MatchRoom(matchID)
	require.Eventually(t, func() bool { return hub.Clients(room) == 1 }, time.Second, 5*time.Millisecond)
	hub.PublishTally(matchID, bracket.NewTally(3, 1))

	var update Message
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, float64(75), update.Payload.(map[string]any)["percentA"])
}

func TestServeMatch_Errors(t *testing.T) {
	hub := startHub(t)
	server := newTestServer(t, hub, stubTallies{})

	resp, err := http.Get(server.URL + "/matches/not-a-uuid/stream")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/matches/" + uuid.NewString() + "/stream")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeUser_RequiresLogin(t *testing.T) {
	hub := startHub(t)
	server := newTestServer(t, hub, stubTallies{})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/notifications/stream"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
