package store

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVote_Duplicate(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	voter := seedUser(t, stores)
	tournament := seedTournament(t, stores)
	match := seedMatch(t, stores, tournament.ID, 1, 1)

	seedVote(t, stores, voter.ID, match.ID, bracket.ChoiceA)

	err := stores.Votes.CreateVote(ctx, &bracket.Vote{
		ID:        uuid.New(),
		VoterID:   voter.ID,
		MatchID:   match.ID,
		Choice:    bracket.ChoiceB,
		CreatedAt: testNow,
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	count, err := stores.Votes.CountVotes(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count.A)
	assert.Equal(t, 0, count.B)
}

func TestCountVotes(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	tournament := seedTournament(t, stores)
	first := seedMatch(t, stores, tournament.ID, 1, 1)
	second := seedMatch(t, stores, tournament.ID, 1, 2)
	empty := seedMatch(t, stores, tournament.ID, 1, 3)

	for _, choice := range []bracket.Choice{bracket.ChoiceA, bracket.ChoiceB, bracket.ChoiceB} {
		voter := seedUser(t, stores)
		seedVote(t, stores, voter.ID, first.ID, choice)
	}
	voter := seedUser(t, stores)
	seedVote(t, stores, voter.ID, second.ID, bracket.ChoiceA)

	count, err := stores.Votes.CountVotes(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count.A)
	assert.Equal(t, 2, count.B)

	count, err = stores.Votes.CountVotes(ctx, empty.ID)
	require.NoError(t, err)
	assert.Zero(t, count.A+count.B)

	byMatch, err := stores.Votes.CountVotesByMatch(ctx, []uuid.UUID{first.ID, second.ID, empty.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, byMatch[first.ID].B)
	assert.Equal(t, 1, byMatch[second.ID].A)
	_, ok := byMatch[empty.ID]
	assert.False(t, ok)

	none, err := stores.Votes.CountVotesByMatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRoundVoters(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	tournament := seedTournament(t, stores)
	first := seedMatch(t, stores, tournament.ID, 1, 1)
	second := seedMatch(t, stores, tournament.ID, 1, 2)
	later := seedMatch(t, stores, tournament.ID, 2, 1)

	alice := seedUser(t, stores)
	bob := seedUser(t, stores)
	seedVote(t, stores, alice.ID, first.ID, bracket.ChoiceA)
	seedVote(t, stores, alice.ID, second.ID, bracket.ChoiceB)
	seedVote(t, stores, bob.ID, later.ID, bracket.ChoiceA)

	n, err := stores.Votes.CountRoundVoters(ctx, tournament.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a voter counts once per round")

	voters, err := stores.Votes.GetRoundVoters(ctx, tournament.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob.ID}, voters)
}

func TestPendingByTournament(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	tournament := seedTournament(t, stores)
	first := seedMatch(t, stores, tournament.ID, 1, 1)
	second := seedMatch(t, stores, tournament.ID, 1, 2)
	voter := seedUser(t, stores)

	pending, err := stores.Votes.PendingByTournament(ctx, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pending[tournament.ID])

	seedVote(t, stores, voter.ID, first.ID, bracket.ChoiceA)
	_, err = stores.Matches.FinishMatch(ctx, second.ID, second.SideA, testNow)
	require.NoError(t, err)

	pending, err = stores.Votes.PendingByTournament(ctx, voter.ID)
	require.NoError(t, err)
	_, ok := pending[tournament.ID]
	assert.False(t, ok, "voted or finished matches are not pending")
}

func TestDeleteVotes(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	tournament := seedTournament(t, stores)
	match := seedMatch(t, stores, tournament.ID, 1, 1)
	other := seedMatch(t, stores, seedTournament(t, stores).ID, 1, 1)

	alice := seedUser(t, stores)
	bob := seedUser(t, stores)
	seedVote(t, stores, alice.ID, match.ID, bracket.ChoiceA)
	seedVote(t, stores, bob.ID, match.ID, bracket.ChoiceB)
	seedVote(t, stores, alice.ID, other.ID, bracket.ChoiceA)

	n, err := stores.Votes.DeleteByVoter(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = stores.Votes.DeleteByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	votes, err := stores.Votes.ListByVoter(ctx, alice.ID, 100)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, other.ID, votes[0].MatchID)

	n, err = stores.Votes.DeleteByMatch(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = stores.Votes.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateVoteIfOngoing(t *testing.T) {
	_, stores := setupTestDB(t)
	ctx := context.Background()
	voter := seedUser(t, stores)
	tournament := seedTournament(t, stores)
	match := seedMatch(t, stores, tournament.ID, 1, 1)

	newVote := func() *bracket.Vote {
		return &bracket.Vote{ID: uuid.New(), VoterID: voter.ID, MatchID: match.ID, Choice: bracket.ChoiceA, CreatedAt: testNow}
	}

	created, err := stores.Votes.CreateVoteIfOngoing(ctx, newVote())
	require.NoError(t, err)
	assert.True(t, created)

	_, err = stores.Votes.CreateVoteIfOngoing(ctx, newVote())
	assert.ErrorIs(t, err, ErrDuplicate)

	other := seedUser(t, stores)
	finished, err := stores.Matches.FinishMatch(ctx, match.ID, match.SideA, testNow)
	require.NoError(t, err)
	require.True(t, finished)

	late := newVote()
	late.VoterID = other.ID
	created, err = stores.Votes.CreateVoteIfOngoing(ctx, late)
	require.NoError(t, err)
	assert.False(t, created, "a finished match takes no votes")

	created, err = stores.Votes.CreateVoteIfOngoing(ctx, &bracket.Vote{ID: uuid.New(), VoterID: other.ID, MatchID: uuid.New(), Choice: bracket.ChoiceB, CreatedAt: testNow})
	require.NoError(t, err)
	assert.False(t, created, "an unknown match takes no votes")
}
