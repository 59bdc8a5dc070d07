package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/metrics"
	"github.com/AdamBeresnev/post-battles/internal/post"
	"github.com/AdamBeresnev/post-battles/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	defaultTimeThreshold          = 3600
	defaultParticipationThreshold = 50
)

// TournamentService is the progression engine. Every mutation of a tournament runs under that
// tournament's lock and inside one transaction.
type TournamentService struct {
	base
	locks *keyedMutex
}

func NewTournamentService(db *sqlx.DB, opts ...Option) *TournamentService {
	return &TournamentService{base: newBase(db, opts), locks: newKeyedMutex()}
}

type CreateTournamentInput struct {
	Name         string                  `json:"name"`
	Category     *string                 `json:"category,omitempty"`
	Participants []uuid.UUID             `json:"participants"`
	Mode         bracket.ProgressionMode `json:"progressionMode"`
	Threshold    *float64                `json:"threshold,omitempty"`
}

type TournamentView struct {
	Tournament *bracket.Tournament `json:"tournament"`
	Metrics    bracket.Metrics     `json:"metrics"`
}

// ProgressResult carries the champion when the progression finished the tournament.
type ProgressResult struct {
	Tournament *TournamentView `json:"tournament"`
	Winner     *uuid.UUID      `json:"winner,omitempty"`
}

func tournamentKey(id uuid.UUID) string { return "tournament:" + id.String() }

func categoryKey(category string) string { return "category:" + category }

// isRace reports a write that lost against another writer of the same round.
func isRace(err error) bool {
	return errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrDuplicate)
}

func raceError(err error) error {
	if isRace(err) {
		return fmt.Errorf("%w: tournament changed concurrently", ErrConflict)
	}
	return err
}

func (in *CreateTournamentInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			in.Category = nil
		} else {
			in.Category = &category
		}
	}
	if in.Name == "" {
		if in.Category == nil {
			return validationError("name is required")
		}
		in.Name = *in.Category + " Tournament"
	}

	if in.Mode == "" {
		in.Mode = bracket.ProgressionTime
	}
	if !in.Mode.Valid() {
		return validationError("unknown progression mode %q", in.Mode)
	}
	if in.Threshold == nil {
		threshold := float64(defaultTimeThreshold)
		if in.Mode == bracket.ProgressionParticipation {
			threshold = defaultParticipationThreshold
		}
		in.Threshold = &threshold
	}
	switch {
	case *in.Threshold <= 0:
		return validationError("threshold must be positive")
	case in.Mode == bracket.ProgressionParticipation && *in.Threshold > 100:
		return validationError("participation threshold is a percentage, got %v", *in.Threshold)
	}

	if len(in.Participants) < 2 {
		return ErrNotEnoughParticipants
	}
	seen := make(map[uuid.UUID]bool, len(in.Participants))
	for _, id := range in.Participants {
		if seen[id] {
			return validationError("participant %s listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// Create persists a tournament and seeds its first round.
func (s *TournamentService) Create(ctx context.Context, in CreateTournamentInput) (*TournamentView, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.Category != nil {
		defer s.locks.Lock(categoryKey(*in.Category))()
	}

	now := s.now()
	t := &bracket.Tournament{
		ID:        uuid.New(),
		Name:      in.Name,
		Category:  in.Category,
		Status:    bracket.TournamentDraft,
		Mode:      in.Mode,
		Threshold: *in.Threshold,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var out outbox
	var view *TournamentView
	err := s.inTx(ctx, func(q *store.Stores) error {
		existing, err := q.Posts.CountExisting(ctx, in.Participants)
		if err != nil {
			return err
		}
		if existing != len(in.Participants) {
			return ErrPostNotFound
		}

		if err := q.Tournaments.CreateTournament(ctx, t); err != nil {
			return fmt.Errorf("create tournament: %w", err)
		}
		if err := q.Tournaments.SetParticipants(ctx, t.ID, in.Participants); err != nil {
			return fmt.Errorf("set participants: %w", err)
		}
		if err := s.seedRound1(ctx, q, t, in.Participants, 0, now, &out); err != nil {
			return err
		}
		view, err = s.view(ctx, q, t.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, &out)
	s.logger.Info("tournament created", "tournament_id", t.ID, "participants", len(in.Participants), "mode", t.Mode)
	return view, nil
}

// view assembles the tournament with its round metrics. It never mutates.
func (s *TournamentService) view(ctx context.Context, q *store.Stores, id uuid.UUID, now time.Time) (*TournamentView, error) {
	t, matches, err := loadTournament(ctx, q, id)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot(ctx, q, t, roundMatches(matches, t.CurrentRound), now)
	if err != nil {
		return nil, err
	}
	m := snap.Metrics()
	if t.Status != bracket.TournamentOngoing {
		m.State = bracket.RoundClosed
	}
	return &TournamentView{Tournament: t, Metrics: m}, nil
}

// tick evaluates the progression policy and closes the current round when it allows it, then
// returns the state after any advance.
func (s *TournamentService) tick(ctx context.Context, q *store.Stores, id uuid.UUID, now time.Time, out *outbox) (*TournamentView, error) {
	t, matches, err := loadTournament(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if t.IsOngoing() {
		snap, err := snapshot(ctx, q, t, roundMatches(matches, t.CurrentRound), now)
		if err != nil {
			return nil, err
		}
		if snap.Closable() || snap.AllFinished() {
			if err := s.closeRound(ctx, q, t, matches, now, metrics.TriggerAuto, out); err != nil {
				return nil, err
			}
		}
	}
	return s.view(ctx, q, id, now)
}

// Get returns a tournament after letting it progress. Reading can close a round.
func (s *TournamentService) Get(ctx context.Context, id uuid.UUID) (*TournamentView, error) {
	defer s.locks.Lock(tournamentKey(id))()

	var out outbox
	var view *TournamentView
	err := s.inTx(ctx, func(q *store.Stores) error {
		var err error
		view, err = s.tick(ctx, q, id, s.now(), &out)
		return err
	})
	if err != nil {
		return nil, raceError(err)
	}
	s.dispatch(ctx, &out)
	return view, nil
}

// List ticks every tournament, newest first. Each tournament progresses in its own transaction.
func (s *TournamentService) List(ctx context.Context) ([]TournamentView, error) {
	tournaments, err := s.stores.Tournaments.ListTournaments(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]TournamentView, 0, len(tournaments))
	for _, t := range tournaments {
		view, err := s.Get(ctx, t.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *TournamentService) progress(ctx context.Context, id uuid.UUID, trigger string, requireFinished bool) (*ProgressResult, error) {
	defer s.locks.Lock(tournamentKey(id))()

	var out outbox
	var result ProgressResult
	err := s.inTx(ctx, func(q *store.Stores) error {
		now := s.now()
		t, matches, err := loadTournament(ctx, q, id)
		if err != nil {
			return err
		}
		if !t.IsOngoing() {
			return ErrNoActiveRound
		}

		if requireFinished {
			snap, err := snapshot(ctx, q, t, roundMatches(matches, t.CurrentRound), now)
			if err != nil {
				return err
			}
			if !snap.AllFinished() && !snap.Closable() {
				return ErrRoundNotFinished
			}
		}

		if err := s.closeRound(ctx, q, t, matches, now, trigger, &out); err != nil {
			return err
		}
		if result.Tournament, err = s.view(ctx, q, id, now); err != nil {
			return err
		}
		result.Winner = result.Tournament.Tournament.ChampionID
		return nil
	})
	if err != nil {
		return nil, raceError(err)
	}
	s.dispatch(ctx, &out)
	return &result, nil
}

// ProgressRound force closes the current round, finalizing whatever is still open.
func (s *TournamentService) ProgressRound(ctx context.Context, id uuid.UUID) (*ProgressResult, error) {
	return s.progress(ctx, id, metrics.TriggerAdmin, false)
}

// ProgressRoundPublic closes the current round only if it is finished or closable.
func (s *TournamentService) ProgressRoundPublic(ctx context.Context, id uuid.UUID) (*ProgressResult, error) {
	return s.progress(ctx, id, metrics.TriggerPublic, true)
}

// CloseRound closes round of the tournament. It reports false and changes nothing when that
// round is no longer the current one.
func (s *TournamentService) CloseRound(ctx context.Context, id uuid.UUID, round int) (bool, error) {
	defer s.locks.Lock(tournamentKey(id))()

	var out outbox
	closed := false
	err := s.inTx(ctx, func(q *store.Stores) error {
		t, matches, err := loadTournament(ctx, q, id)
		if err != nil {
			return err
		}
		if !t.IsOngoing() || t.CurrentRound != round {
			return nil
		}
		if err := s.closeRound(ctx, q, t, matches, s.now(), metrics.TriggerAuto, &out); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, raceError(err)
	}
	s.dispatch(ctx, &out)
	return closed, nil
}

// Reset wipes every vote, match and bye and seeds round 1 again from the current pool.
func (s *TournamentService) Reset(ctx context.Context, id uuid.UUID) (*TournamentView, error) {
	defer s.locks.Lock(tournamentKey(id))()

	var out outbox
	var view *TournamentView
	err := s.inTx(ctx, func(q *store.Stores) error {
		now := s.now()
		t, err := q.Tournaments.GetTournament(ctx, id)
		if err != nil {
			return notFound(err, ErrTournamentNotFound)
		}
		expected := t.CurrentRound

		if _, err := q.Votes.DeleteByTournament(ctx, id); err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if _, err := q.Matches.DeleteMatches(ctx, id); err != nil {
			return fmt.Errorf("delete matches: %w", err)
		}
		if err := q.Tournaments.DeleteByes(ctx, id); err != nil {
			return fmt.Errorf("delete byes: %w", err)
		}

		participants, err := q.Tournaments.GetParticipants(ctx, id)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			t.Status = bracket.TournamentDraft
			t.CurrentRound = 0
			t.RoundStartedAt = nil
			t.ChampionID = nil
			t.UpdatedAt = now
			if err := q.Tournaments.UpdateTournament(ctx, t, expected); err != nil {
				return err
			}
		} else {
			if err := s.seedRound1(ctx, q, t, participants, expected, now, &out); err != nil {
				return err
			}
			out.broadcast(msgTournamentReset(id))
		}

		view, err = s.view(ctx, q, id, now)
		return err
	})
	if err != nil {
		return nil, raceError(err)
	}

	s.dispatch(ctx, &out)
	s.logger.Info("tournament reset", "tournament_id", id)
	return view, nil
}

// Cancel deletes the tournament together with its bracket and votes.
func (s *TournamentService) Cancel(ctx context.Context, id uuid.UUID) error {
	defer s.locks.Lock(tournamentKey(id))()

	if err := s.stores.Tournaments.DeleteTournament(ctx, id); err != nil {
		return notFound(err, ErrTournamentNotFound)
	}
	s.logger.Info("tournament cancelled", "tournament_id", id)
	return nil
}

// Rebuild refreshes the pool of every tournament, or of one category's, from the posts of its
// category. Tournaments that were never seeded start once they have two participants.
func (s *TournamentService) Rebuild(ctx context.Context, category *string) ([]uuid.UUID, error) {
	var (
		tournaments []bracket.Tournament
		err         error
	)
	if category != nil {
		tournaments, err = s.stores.Tournaments.ListByCategory(ctx, *category)
	} else {
		tournaments, err = s.stores.Tournaments.ListTournaments(ctx)
	}
	if err != nil {
		return nil, err
	}

	updated := make([]uuid.UUID, 0, len(tournaments))
	for _, t := range tournaments {
		if t.Status == bracket.TournamentCancelled {
			continue
		}
		if err := s.rebuildOne(ctx, t.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return updated, err
		}
		updated = append(updated, t.ID)
	}
	return updated, nil
}

func (s *TournamentService) rebuildOne(ctx context.Context, id uuid.UUID) error {
	defer s.locks.Lock(tournamentKey(id))()

	var out outbox
	err := s.inTx(ctx, func(q *store.Stores) error {
		t, err := q.Tournaments.GetTournament(ctx, id)
		if err != nil {
			return notFound(err, ErrTournamentNotFound)
		}
		pool := t.Name
		if t.Category != nil {
			pool = *t.Category
		}
		posts, err := q.Posts.ListIDsByCategory(ctx, pool)
		if err != nil {
			return err
		}
		if err := q.Tournaments.SetParticipants(ctx, id, posts); err != nil {
			return err
		}
		if t.CurrentRound == 0 && len(posts) >= 2 {
			return s.seedRound1(ctx, q, t, posts, 0, s.now(), &out)
		}
		return nil
	})
	if err != nil {
		return raceError(err)
	}
	s.dispatch(ctx, &out)
	return nil
}

// FinishMatch finalizes one match and closes its round when it was the last open match of
// the current round.
func (s *TournamentService) FinishMatch(ctx context.Context, matchID uuid.UUID) (uuid.UUID, error) {
	m, err := s.stores.Matches.GetMatch(ctx, matchID)
	if err != nil {
		return uuid.Nil, notFound(err, ErrMatchNotFound)
	}
	defer s.locks.Lock(tournamentKey(m.TournamentID))()

	var out outbox
	var winner uuid.UUID
	err = s.inTx(ctx, func(q *store.Stores) error {
		now := s.now()
		m, err := q.Matches.GetMatch(ctx, matchID)
		if err != nil {
			return notFound(err, ErrMatchNotFound)
		}
		if winner, err = finalizeMatch(ctx, q, m, now, &out); err != nil {
			return err
		}

		t, matches, err := loadTournament(ctx, q, m.TournamentID)
		if err != nil {
			return err
		}
		if !t.IsOngoing() || m.Round != t.CurrentRound {
			return nil
		}
		for _, rm := range roundMatches(matches, t.CurrentRound) {
			if rm.IsOngoing() {
				return nil
			}
		}
		return s.closeRound(ctx, q, t, matches, now, metrics.TriggerFinish, &out)
	})
	if err != nil {
		return uuid.Nil, raceError(err)
	}
	s.dispatch(ctx, &out)
	return winner, nil
}

// CreateContentItem stores a post and folds it into its category's tournament: a new draft is
// opened when none exists, a draft starts once it has two posts and a tournament still in
// round 1 absorbs the post through a bye, a free participant or a new bye.
func (s *TournamentService) CreateContentItem(ctx context.Context, p *post.Post) error {
	defer s.locks.Lock(categoryKey(p.Category))()

	existing, err := s.stores.Tournaments.FindByCategory(ctx, p.Category)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing != nil {
		defer s.locks.Lock(tournamentKey(existing.ID))()
	}

	var out outbox
	err = s.inTx(ctx, func(q *store.Stores) error {
		now := s.now()
		if err := q.Posts.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		out.notify(msgPostCreated(p.ID), p.AuthorID)

		if existing == nil {
			return s.openCategoryTournament(ctx, q, p.Category, now, &out)
		}
		return s.joinTournament(ctx, q, existing.ID, p.ID, now, &out)
	})
	if err != nil {
		return raceError(err)
	}
	s.dispatch(ctx, &out)
	return nil
}

func (s *TournamentService) openCategoryTournament(ctx context.Context, q *store.Stores, category string, now time.Time, out *outbox) error {
	c := category
	t := &bracket.Tournament{
		ID:        uuid.New(),
		Name:      category + " Tournament",
		Category:  &c,
		Status:    bracket.TournamentDraft,
		Mode:      bracket.ProgressionParticipation,
		Threshold: defaultParticipationThreshold,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.Tournaments.CreateTournament(ctx, t); err != nil {
		return fmt.Errorf("create tournament: %w", err)
	}

	posts, err := q.Posts.ListIDsByCategory(ctx, category)
	if err != nil {
		return err
	}
	if err := q.Tournaments.SetParticipants(ctx, t.ID, posts); err != nil {
		return err
	}
	s.logger.Info("category tournament opened", "tournament_id", t.ID, "category", category)
	if len(posts) < 2 {
		return nil
	}
	return s.seedRound1(ctx, q, t, posts, 0, now, out)
}

func (s *TournamentService) joinTournament(ctx context.Context, q *store.Stores, id, postID uuid.UUID, now time.Time, out *outbox) error {
	t, err := q.Tournaments.GetTournament(ctx, id)
	if err != nil {
		return notFound(err, ErrTournamentNotFound)
	}
	if _, err := q.Tournaments.AddParticipant(ctx, id, postID); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	switch {
	case t.Status == bracket.TournamentDraft && t.CurrentRound == 0:
		participants, err := q.Tournaments.GetParticipants(ctx, id)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			return nil
		}
		return s.seedRound1(ctx, q, t, participants, 0, now, out)
	case t.IsOngoing() && t.CurrentRound == 1:
		return s.lateJoin(ctx, q, t, postID, now, out)
	}
	return nil
}

// lateJoin places a post into a running round 1: against the carried bye if there is one,
// else against a participant that was never placed, else as the new bye.
func (s *TournamentService) lateJoin(ctx context.Context, q *store.Stores, t *bracket.Tournament, postID uuid.UUID, now time.Time, out *outbox) error {
	matches, err := q.Matches.GetRoundMatches(ctx, t.ID, 1)
	if err != nil {
		return err
	}
	byes, err := q.Tournaments.GetRoundByes(ctx, t.ID, 1)
	if err != nil {
		return err
	}

	placed := make(map[uuid.UUID]bool, 2*len(matches)+len(byes))
	for _, m := range matches {
		placed[m.SideA] = true
		placed[m.SideB] = true
	}
	for _, b := range byes {
		placed[b] = true
	}
	if placed[postID] {
		return nil
	}

	var opponent uuid.UUID
	if len(byes) > 0 {
		opponent = byes[0]
		if _, err := q.Tournaments.RemoveBye(ctx, bracket.Bye{TournamentID: t.ID, Round: 1, PostID: opponent}); err != nil {
			return err
		}
	} else {
		participants, err := q.Tournaments.GetParticipants(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, id := range participants {
			if id != postID && !placed[id] {
				opponent = id
				break
			}
		}
	}

	authors, err := q.Posts.AuthorsOf(ctx, []uuid.UUID{postID, opponent})
	if err != nil {
		return err
	}

	if opponent == uuid.Nil {
		if err := q.Tournaments.AddBye(ctx, bracket.Bye{TournamentID: t.ID, Round: 1, PostID: postID}); err != nil {
			return err
		}
		if author, ok := authors[postID]; ok {
			out.notify(msgBye(t.ID, 1), author)
		}
		return nil
	}

	order, err := q.Matches.NextMatchOrder(ctx, t.ID, 1)
	if err != nil {
		return err
	}
	m := bracket.Match{
		ID:           uuid.New(),
		TournamentID: t.ID,
		Round:        1,
		MatchOrder:   order,
		SideA:        opponent,
		SideB:        postID,
		Category:     t.MatchCategory(),
		Status:       bracket.MatchOngoing,
		CreatedAt:    now,
	}
	if err := q.Matches.CreateMatches(ctx, []bracket.Match{m}); err != nil {
		return err
	}
	for _, side := range []uuid.UUID{opponent, postID} {
		if author, ok := authors[side]; ok {
			out.notify(msgInMatch(t.ID, m.ID), author)
		}
	}
	return nil
}
