package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/db/dbtest"
	"github.com/AdamBeresnev/post-battles/internal/post"
	users "github.com/AdamBeresnev/post-battles/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*sqlx.DB, *Stores) {
	t.Helper()
	database := dbtest.New(t)
	return database, New(database)
}

func seedUser(t *testing.T, stores *Stores) *users.User {
	t.Helper()
	u := &users.User{
		ID:        uuid.New(),
		Email:     "someone@example.com",
		Username:  "someone",
		CreatedAt: testNow,
	}
	require.NoError(t, stores.Users.CreateUser(context.Background(), u))
	return u
}

func seedPost(t *testing.T, stores *Stores, author uuid.UUID, category string) *post.Post {
	t.Helper()
	p := &post.Post{
		ID:        uuid.New(),
		Title:     "post " + category,
		Category:  category,
		AuthorID:  author,
		CreatedAt: testNow,
	}
	require.NoError(t, stores.Posts.CreatePost(context.Background(), p))
	return p
}

func seedTournament(t *testing.T, stores *Stores) *bracket.Tournament {
	t.Helper()
	category := "music"
	tournament := &bracket.Tournament{
		ID:           uuid.New(),
		Name:         "Test Tournament",
		Category:     &category,
		Status:       bracket.TournamentOngoing,
		Mode:         bracket.ProgressionParticipation,
		Threshold:    50,
		CurrentRound: 1,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	require.NoError(t, stores.Tournaments.CreateTournament(context.Background(), tournament))
	return tournament
}

func seedMatch(t *testing.T, stores *Stores, tournamentID uuid.UUID, round, order int) *bracket.Match {
	t.Helper()
	m := bracket.Match{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Round:        round,
		MatchOrder:   order,
		SideA:        uuid.New(),
		SideB:        uuid.New(),
		Category:     "music",
		Status:       bracket.MatchOngoing,
		CreatedAt:    testNow,
	}
	require.NoError(t, stores.Matches.CreateMatches(context.Background(), []bracket.Match{m}))
	return &m
}

func seedVote(t *testing.T, stores *Stores, voterID, matchID uuid.UUID, choice bracket.Choice) {
	t.Helper()
	err := stores.Votes.CreateVote(context.Background(), &bracket.Vote{
		ID:        uuid.New(),
		VoterID:   voterID,
		MatchID:   matchID,
		Choice:    choice,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
}
