package store

import (
	"context"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type VoteStore struct {
	db sqlx.ExtContext
}

func NewVoteStore(db sqlx.ExtContext) *VoteStore {
	return &VoteStore{db: db}
}

// VoteCount is the per-side count of one match.
type VoteCount struct {
	MatchID uuid.UUID `db:"match_id"`
	A       int       `db:"count_a"`
	B       int       `db:"count_b"`
}

const (
	createVoteQuery = `
		INSERT INTO votes (id, voter_id, match_id, choice, created_at)
		VALUES (:id, :voter_id, :match_id, :choice, :created_at)
	`
	// Inserts nothing when the match is missing or already decided
	createVoteIfOngoingQuery = `
		INSERT INTO votes (id, voter_id, match_id, choice, created_at)
		SELECT :id, :voter_id, :match_id, :choice, :created_at
		WHERE EXISTS (SELECT 1 FROM matches WHERE id = :match_id AND status = 'ongoing')
	`
	countVotesQuery = `
		SELECT ? AS match_id,
		COALESCE(SUM(CASE WHEN choice = 'A' THEN 1 ELSE 0 END), 0) AS count_a,
		COALESCE(SUM(CASE WHEN choice = 'B' THEN 1 ELSE 0 END), 0) AS count_b
		FROM votes WHERE match_id = ?
	`
	countVotesByMatchQuery = `
		SELECT match_id,
		SUM(CASE WHEN choice = 'A' THEN 1 ELSE 0 END) AS count_a,
		SUM(CASE WHEN choice = 'B' THEN 1 ELSE 0 END) AS count_b
		FROM votes WHERE match_id IN (?)
		GROUP BY match_id
	`
	roundVotersQuery = `
		SELECT DISTINCT v.voter_id FROM votes v
		JOIN matches m ON m.id = v.match_id
		WHERE m.tournament_id = ? AND m.round = ?
	`
	// Ongoing matches of each ongoing tournament's current round the voter has not voted on
	pendingByTournamentQuery = `
		SELECT m.tournament_id, COUNT(*) AS pending FROM matches m
		JOIN tournaments t ON t.id = m.tournament_id AND m.round = t.current_round
		WHERE t.status = ? AND m.status = ?
		AND NOT EXISTS (SELECT 1 FROM votes v WHERE v.match_id = m.id AND v.voter_id = ?)
		GROUP BY m.tournament_id
	`
)

// CreateVote relies on UNIQUE(voter_id, match_id): a second vote fails with ErrDuplicate.
func (s *VoteStore) CreateVote(ctx context.Context, vote *bracket.Vote) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, createVoteQuery, vote)
	return mapInsertError(err)
}

// CreateVoteIfOngoing stores the vote only while its match is ongoing and reports whether it did.
func (s *VoteStore) CreateVoteIfOngoing(ctx context.Context, vote *bracket.Vote) (bool, error) {
	res, err := sqlx.NamedExecContext(ctx, s.db, createVoteIfOngoingQuery, vote)
	if err != nil {
		return false, mapInsertError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *VoteStore) CountVotes(ctx context.Context, matchID uuid.UUID) (VoteCount, error) {
	var count VoteCount
	err := sqlx.GetContext(ctx, s.db, &count, countVotesQuery, matchID, matchID)
	return count, err
}

// CountVotesByMatch returns counts for every given match; matches without votes are absent.
func (s *VoteStore) CountVotesByMatch(ctx context.Context, matchIDs []uuid.UUID) (map[uuid.UUID]VoteCount, error) {
	counts := make(map[uuid.UUID]VoteCount, len(matchIDs))
	if len(matchIDs) == 0 {
		return counts, nil
	}
	query, args, err := sqlx.In(countVotesByMatchQuery, matchIDs)
	if err != nil {
		return nil, err
	}
	var rows []VoteCount
	if err := sqlx.SelectContext(ctx, s.db, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.MatchID] = row
	}
	return counts, nil
}

func (s *VoteStore) GetRoundVoters(ctx context.Context, tournamentID uuid.UUID, round int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, s.db, &ids, roundVotersQuery, tournamentID, round)
	return ids, err
}

func (s *VoteStore) CountRoundVoters(ctx context.Context, tournamentID uuid.UUID, round int) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, s.db, &n, "SELECT COUNT(*) FROM ("+roundVotersQuery+")", tournamentID, round)
	return n, err
}

func (s *VoteStore) ListByVoter(ctx context.Context, voterID uuid.UUID, limit int) ([]bracket.Vote, error) {
	var votes []bracket.Vote
	err := sqlx.SelectContext(ctx, s.db, &votes, "SELECT * FROM votes WHERE voter_id = ? ORDER BY created_at DESC LIMIT ?", voterID, limit)
	return votes, err
}

// PendingByTournament counts, per ongoing tournament, the current round's ongoing matches the
// voter has not voted on yet. Tournaments with nothing pending are absent.
func (s *VoteStore) PendingByTournament(ctx context.Context, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		TournamentID uuid.UUID `db:"tournament_id"`
		Pending      int       `db:"pending"`
	}
	err := sqlx.SelectContext(ctx, s.db, &rows, pendingByTournamentQuery, bracket.TournamentOngoing, bracket.MatchOngoing, voterID)
	if err != nil {
		return nil, err
	}
	pending := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		pending[row.TournamentID] = row.Pending
	}
	return pending, nil
}

func (s *VoteStore) DeleteByVoter(ctx context.Context, voterID uuid.UUID) (int64, error) {
	return s.exec(ctx, "DELETE FROM votes WHERE voter_id = ?", voterID)
}

func (s *VoteStore) DeleteByMatch(ctx context.Context, matchID uuid.UUID) (int64, error) {
	return s.exec(ctx, "DELETE FROM votes WHERE match_id = ?", matchID)
}

func (s *VoteStore) DeleteByTournament(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	return s.exec(ctx, "DELETE FROM votes WHERE match_id IN (SELECT id FROM matches WHERE tournament_id = ?)", tournamentID)
}

func (s *VoteStore) DeleteAll(ctx context.Context) (int64, error) {
	return s.exec(ctx, "DELETE FROM votes")
}

func (s *VoteStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
