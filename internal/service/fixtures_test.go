package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/db/dbtest"
	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/AdamBeresnev/post-battles/internal/post"
	"github.com/AdamBeresnev/post-battles/internal/store"
	users "github.com/AdamBeresnev/post-battles/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// noShuffle keeps pools in their given order so pairings are predictable.
func noShuffle(int, func(i, j int)) {}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentNote struct {
	userID uuid.UUID
	msg    notify.Message
}

// recordingNotifier keeps every notification in memory.
type recordingNotifier struct {
	mu         sync.Mutex
	notes      []sentNote
	broadcasts []notify.Message
	fail       error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.notes = append(n.notes, sentNote{userID: userID, msg: msg})
	return nil
}

func (n *recordingNotifier) NotifyMany(ctx context.Context, userIDs []uuid.UUID, msg notify.Message) error {
	for _, id := range userIDs {
		if err := n.Notify(ctx, id, msg); err != nil {
			return err
		}
	}
	return nil
}

func (n *recordingNotifier) Broadcast(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.broadcasts = append(n.broadcasts, msg)
	return nil
}

// texts returns the messages sent to one user, in order.
func (n *recordingNotifier) texts(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, note := range n.notes {
		if note.userID == userID {
			out = append(out, note.msg.Text)
		}
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = nil
	n.broadcasts = nil
}

type testEnv struct {
	db       *sqlx.DB
	stores   *store.Stores
	clock    *testClock
	notifier *recordingNotifier

	engine  *TournamentService
	votes   *VoteService
	matches *MatchService
	posts   *PostService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := dbtest.New(t)
	env := &testEnv{
		db:       database,
		stores:   store.New(database),
		clock:    &testClock{now: testStart},
		notifier: &recordingNotifier{},
	}
	opts := []Option{
		WithClock(env.clock.Now),
		WithShuffle(noShuffle),
		WithNotifier(env.notifier),
	}
	env.engine = NewTournamentService(database, opts...)
	env.votes = NewVoteService(database, opts...)
	env.matches = NewMatchService(database, opts...)
	env.posts = NewPostService(database, env.engine, opts...)
	return env
}

func (e *testEnv) user(t *testing.T) *users.User {
	t.Helper()
	u := &users.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Username:  "voter",
		CreatedAt: testStart,
	}
	require.NoError(t, e.stores.Users.CreateUser(context.Background(), u))
	return u
}

// seedPosts stores n posts of one author directly, bypassing the engine.
func (e *testEnv) seedPosts(t *testing.T, author uuid.UUID, category string, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		p := &post.Post{
			ID:        uuid.New(),
			Title:     fmt.Sprintf("%s post %d", category, i+1),
			Category:  category,
			AuthorID:  author,
			CreatedAt: testStart.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, e.stores.Posts.CreatePost(context.Background(), p))
		ids[i] = p.ID
	}
	return ids
}

func (e *testEnv) create(t *testing.T, participants []uuid.UUID, mode bracket.ProgressionMode, threshold float64) *bracket.Tournament {
	t.Helper()
	view, err := e.engine.Create(context.Background(), CreateTournamentInput{
		Name:         "Test Tournament",
		Participants: participants,
		Mode:         mode,
		Threshold:    &threshold,
	})
	require.NoError(t, err)
	return view.Tournament
}

func (e *testEnv) roundMatches(t *testing.T, tournamentID uuid.UUID, round int) []bracket.Match {
	t.Helper()
	matches, err := e.stores.Matches.GetRoundMatches(context.Background(), tournamentID, round)
	require.NoError(t, err)
	return matches
}

func (e *testEnv) vote(t *testing.T, voterID, matchID uuid.UUID, choice bracket.Choice) {
	t.Helper()
	_, err := e.votes.CastVote(context.Background(), voterID, matchID, choice)
	require.NoError(t, err)
}
