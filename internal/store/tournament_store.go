package store

import (
	"context"
	"database/sql"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db sqlx.ExtContext
}

func NewTournamentStore(db sqlx.ExtContext) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	createTournamentQuery = `
		INSERT INTO tournaments (id, name, category, status, progression_mode, threshold, current_round, round_started_at, champion_id, created_at, updated_at)
		VALUES (:id, :name, :category, :status, :progression_mode, :threshold, :current_round, :round_started_at, :champion_id, :created_at, :updated_at)
	`
	// Guarded by the round the caller read, so two writers cannot both advance the same round
	updateTournamentQuery = `
		UPDATE tournaments SET
		status = ?,
		current_round = ?,
		round_started_at = ?,
		champion_id = ?,
		updated_at = ?
		WHERE id = ? AND current_round = ?
	`
	addParticipantQuery = `
		INSERT OR IGNORE INTO tournament_participants (tournament_id, post_id, position)
		SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM tournament_participants WHERE tournament_id = ?
	`
)

func (s *TournamentStore) CreateTournament(ctx context.Context, tournament *bracket.Tournament) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, createTournamentQuery, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, s.db, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, s.db, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC")
	return tournaments, err
}

func (s *TournamentStore) ListByCategory(ctx context.Context, category string) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, s.db, &tournaments, "SELECT * FROM tournaments WHERE category = ? ORDER BY created_at DESC", category)
	return tournaments, err
}

// FindByCategory returns the newest tournament of a category that has not been cancelled.
func (s *TournamentStore) FindByCategory(ctx context.Context, category string) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, s.db, &tournament, `
		SELECT * FROM tournaments
		WHERE category = ? AND status <> ?
		ORDER BY created_at DESC LIMIT 1`, category, bracket.TournamentCancelled)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListOngoingIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, s.db, &ids, "SELECT id FROM tournaments WHERE status = ? ORDER BY created_at DESC", bracket.TournamentOngoing)
	return ids, err
}

// UpdateTournament writes the progression fields. It returns ErrStale when the stored
// current_round no longer equals expectedRound.
func (s *TournamentStore) UpdateTournament(ctx context.Context, tournament *bracket.Tournament, expectedRound int) error {
	res, err := s.db.ExecContext(ctx, updateTournamentQuery,
		tournament.Status,
		tournament.CurrentRound,
		tournament.RoundStartedAt,
		tournament.ChampionID,
		tournament.UpdatedAt,
		tournament.ID,
		expectedRound,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

// DeleteTournament removes the tournament; participants, byes, matches and their votes cascade.
func (s *TournamentStore) DeleteTournament(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetParticipants replaces the round 1 pool, keeping the given order.
func (s *TournamentStore) SetParticipants(ctx context.Context, tournamentID uuid.UUID, postIDs []uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tournament_participants WHERE tournament_id = ?", tournamentID); err != nil {
		return err
	}
	for i, postID := range postIDs {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO tournament_participants (tournament_id, post_id, position) VALUES (?, ?, ?)",
			tournamentID, postID, i+1)
		if err != nil {
			return err
		}
	}
	return nil
}

// AddParticipant appends a post to the pool. It reports false if the post was already in it.
func (s *TournamentStore) AddParticipant(ctx context.Context, tournamentID, postID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, addParticipantQuery, tournamentID, postID, tournamentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *TournamentStore) GetParticipants(ctx context.Context, tournamentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, s.db, &ids, "SELECT post_id FROM tournament_participants WHERE tournament_id = ? ORDER BY position ASC", tournamentID)
	return ids, err
}

func (s *TournamentStore) AddBye(ctx context.Context, bye bracket.Bye) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `INSERT INTO tournament_byes (tournament_id, round, post_id)
		VALUES (:tournament_id, :round, :post_id)`, bye)
	return mapInsertError(err)
}

// RemoveBye reports whether the bye existed.
func (s *TournamentStore) RemoveBye(ctx context.Context, bye bracket.Bye) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tournament_byes WHERE tournament_id = ? AND round = ? AND post_id = ?",
		bye.TournamentID, bye.Round, bye.PostID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *TournamentStore) GetByes(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Bye, error) {
	var byes []bracket.Bye
	err := sqlx.SelectContext(ctx, s.db, &byes, "SELECT * FROM tournament_byes WHERE tournament_id = ? ORDER BY round ASC, rowid ASC", tournamentID)
	return byes, err
}

func (s *TournamentStore) GetRoundByes(ctx context.Context, tournamentID uuid.UUID, round int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, s.db, &ids, "SELECT post_id FROM tournament_byes WHERE tournament_id = ? AND round = ? ORDER BY rowid ASC", tournamentID, round)
	return ids, err
}

func (s *TournamentStore) DeleteByes(ctx context.Context, tournamentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tournament_byes WHERE tournament_id = ?", tournamentID)
	return err
}
