package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchStore struct {
	db sqlx.ExtContext
}

func NewMatchStore(db sqlx.ExtContext) *MatchStore {
	return &MatchStore{db: db}
}

const (
	createMatchesQuery = `
		INSERT INTO matches (id, tournament_id, post_a_id, post_b_id, category, round, match_order, status, winner_id, created_at, finished_at)
		VALUES (:id, :tournament_id, :post_a_id, :post_b_id, :category, :round, :match_order, :status, :winner_id, :created_at, :finished_at)
	`
	finishMatchQuery = `
		UPDATE matches SET
		status = ?,
		winner_id = ?,
		finished_at = ?
		WHERE id = ? AND status = ?
	`
	// Only matches that are part of a tournament bracket
	listActiveMatchesQuery = `
		SELECT m.* FROM matches m
		JOIN tournaments t ON t.id = m.tournament_id
		WHERE m.status = ?
		ORDER BY m.created_at DESC, m.match_order ASC
	`
)

// CreateMatches inserts a batch. A clash on (tournament, round, order) means the round was
// already seeded and is reported as ErrDuplicate.
func (s *MatchStore) CreateMatches(ctx context.Context, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, s.db, createMatchesQuery, matches)
	return mapInsertError(err)
}

func (s *MatchStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := sqlx.GetContext(ctx, s.db, &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, s.db, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round ASC, match_order ASC", tournamentID)
	return matches, err
}

func (s *MatchStore) GetRoundMatches(ctx context.Context, tournamentID uuid.UUID, round int) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, s.db, &matches, "SELECT * FROM matches WHERE tournament_id = ? AND round = ? ORDER BY match_order ASC", tournamentID, round)
	return matches, err
}

// FinishMatch records the winner of an ongoing match. It reports false when the match was
// already finished, leaving the stored winner untouched.
func (s *MatchStore) FinishMatch(ctx context.Context, id, winnerID uuid.UUID, finishedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, finishMatchQuery, bracket.MatchFinished, winnerID, finishedAt, id, bracket.MatchOngoing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *MatchStore) DeleteMatches(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MatchStore) NextMatchOrder(ctx context.Context, tournamentID uuid.UUID, round int) (int, error) {
	var order int
	err := sqlx.GetContext(ctx, s.db, &order, "SELECT COALESCE(MAX(match_order), 0) + 1 FROM matches WHERE tournament_id = ? AND round = ?", tournamentID, round)
	return order, err
}

func (s *MatchStore) ListActive(ctx context.Context) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, s.db, &matches, listActiveMatchesQuery, bracket.MatchOngoing)
	return matches, err
}

func (s *MatchStore) ListByPost(ctx context.Context, postID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, s.db, &matches, "SELECT * FROM matches WHERE post_a_id = ? OR post_b_id = ? ORDER BY created_at DESC", postID, postID)
	return matches, err
}
