package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const voterHistoryLimit = 100

// VoteService is the vote ledger. Votes are never edited, only bulk deleted by the resets.
type VoteService struct {
	base
}

func NewVoteService(db *sqlx.DB, opts ...Option) *VoteService {
	return &VoteService{base: newBase(db, opts)}
}

// CastVote stores one vote. The insert itself checks that the match is still ongoing and that
// the voter has not voted on it, so concurrent duplicates resolve to one accepted vote.
func (s *VoteService) CastVote(ctx context.Context, voterID, matchID uuid.UUID, choice bracket.Choice) (*bracket.Vote, error) {
	m, err := s.stores.Matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, notFound(err, ErrMatchNotVotable)
	}

	vote := &bracket.Vote{
		ID:        uuid.New(),
		VoterID:   voterID,
		MatchID:   matchID,
		Choice:    choice,
		CreatedAt: s.now(),
	}
	created, err := s.stores.Votes.CreateVoteIfOngoing(ctx, vote)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyVoted
	}
	if err != nil {
		return nil, fmt.Errorf("store vote: %w", err)
	}
	if !created {
		return nil, ErrMatchNotVotable
	}

	s.metrics.VoteCast(string(choice))
	s.afterVote(ctx, m, vote)
	return vote, nil
}

// afterVote runs the side effects of an accepted vote. None of them can undo it.
func (s *VoteService) afterVote(ctx context.Context, m *bracket.Match, vote *bracket.Vote) {
	if s.tallies != nil {
		count, err := s.stores.Votes.CountVotes(ctx, m.ID)
		if err != nil {
			s.logger.Warn("tally after vote failed", "match_id", m.ID, "error", err)
		} else {
			s.tallies.PublishTally(m.ID, bracket.NewTally(count.A, count.B))
		}
	}

	side := m.SideA
	if vote.Choice == bracket.ChoiceB {
		side = m.SideB
	}
	var out outbox
	authors, err := s.stores.Posts.AuthorsOf(ctx, []uuid.UUID{side})
	if err != nil {
		s.logger.Warn("load author after vote failed", "match_id", m.ID, "error", err)
	} else if author, ok := authors[side]; ok {
		out.notify(msgVoteReceived(side, m.ID), author)
	}
	out.notify(msgVoteCast(m.ID), vote.VoterID)
	s.dispatch(ctx, &out)
}

// VoterHistory is a voter's latest votes and, per ongoing tournament, whether the voter has
// voted on every open match of its current round.
type VoterHistory struct {
	Votes     []bracket.Vote     `json:"votes"`
	Summaries map[uuid.UUID]bool `json:"summaries"`
}

func (s *VoteService) ListVotesByVoter(ctx context.Context, voterID uuid.UUID) (*VoterHistory, error) {
	votes, err := s.stores.Votes.ListByVoter(ctx, voterID, voterHistoryLimit)
	if err != nil {
		return nil, err
	}
	ongoing, err := s.stores.Tournaments.ListOngoingIDs(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.stores.Votes.PendingByTournament(ctx, voterID)
	if err != nil {
		return nil, err
	}

	summaries := make(map[uuid.UUID]bool, len(ongoing))
	for _, id := range ongoing {
		summaries[id] = pending[id] == 0
	}
	if votes == nil {
		votes = []bracket.Vote{}
	}
	return &VoterHistory{Votes: votes, Summaries: summaries}, nil
}

// ResetMine deletes every vote of the voter.
func (s *VoteService) ResetMine(ctx context.Context, voterID uuid.UUID) (int64, error) {
	return s.stores.Votes.DeleteByVoter(ctx, voterID)
}

func (s *VoteService) ResetMatch(ctx context.Context, matchID uuid.UUID) (int64, error) {
	if _, err := s.stores.Matches.GetMatch(ctx, matchID); err != nil {
		return 0, notFound(err, ErrMatchNotFound)
	}
	return s.stores.Votes.DeleteByMatch(ctx, matchID)
}

func (s *VoteService) ResetTournament(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	if _, err := s.stores.Tournaments.GetTournament(ctx, tournamentID); err != nil {
		return 0, notFound(err, ErrTournamentNotFound)
	}
	return s.stores.Votes.DeleteByTournament(ctx, tournamentID)
}

func (s *VoteService) ResetAll(ctx context.Context) (int64, error) {
	return s.stores.Votes.DeleteAll(ctx)
}
