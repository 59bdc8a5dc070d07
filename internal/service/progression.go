package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/store"
	"github.com/google/uuid"
)

// loadTournament reads a tournament and assembles its participants, rounds and byes.
// The returned matches cover every round.
func loadTournament(ctx context.Context, q *store.Stores, id uuid.UUID) (*bracket.Tournament, []bracket.Match, error) {
	t, err := q.Tournaments.GetTournament(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, ErrTournamentNotFound)
	}

	t.Participants, err = q.Tournaments.GetParticipants(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load participants: %w", err)
	}

	matches, err := q.Matches.GetMatches(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load matches: %w", err)
	}

	byes, err := q.Tournaments.GetByes(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load byes: %w", err)
	}

	t.Rounds = make([][]uuid.UUID, t.CurrentRound)
	t.Byes = make([][]uuid.UUID, t.CurrentRound)
	for i := range t.Rounds {
		t.Rounds[i] = []uuid.UUID{}
		t.Byes[i] = []uuid.UUID{}
	}
	for _, m := range matches {
		if m.Round >= 1 && m.Round <= t.CurrentRound {
			t.Rounds[m.Round-1] = append(t.Rounds[m.Round-1], m.ID)
		}
	}
	for _, b := range byes {
		if b.Round >= 1 && b.Round <= t.CurrentRound {
			t.Byes[b.Round-1] = append(t.Byes[b.Round-1], b.PostID)
		}
	}
	return t, matches, nil
}

func roundMatches(matches []bracket.Match, round int) []bracket.Match {
	var out []bracket.Match
	for _, m := range matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// snapshot gathers what the progression policy needs about the current round.
func snapshot(ctx context.Context, q *store.Stores, t *bracket.Tournament, current []bracket.Match, now time.Time) (bracket.RoundSnapshot, error) {
	snap := bracket.RoundSnapshot{
		Mode:      t.Mode,
		Threshold: t.Threshold,
		StartedAt: t.RoundStartedAt,
		Now:       now,
	}
	if t.CurrentRound < 1 {
		return snap, nil
	}

	ids := make([]uuid.UUID, len(current))
	for i, m := range current {
		ids[i] = m.ID
	}
	counts, err := q.Votes.CountVotesByMatch(ctx, ids)
	if err != nil {
		return snap, fmt.Errorf("count votes: %w", err)
	}
	for _, m := range current {
		c := counts[m.ID]
		snap.Matches = append(snap.Matches, bracket.MatchState{Ongoing: m.IsOngoing(), Votes: c.A + c.B})
	}

	if snap.TotalUsers, err = q.Users.CountUsers(ctx); err != nil {
		return snap, fmt.Errorf("count users: %w", err)
	}
	if snap.DistinctVoters, err = q.Votes.CountRoundVoters(ctx, t.ID, t.CurrentRound); err != nil {
		return snap, fmt.Errorf("count round voters: %w", err)
	}
	return snap, nil
}

// finalizeMatch decides an ongoing match from its tally. Finalizing a finished match returns
// the stored winner and changes nothing.
func finalizeMatch(ctx context.Context, q *store.Stores, m *bracket.Match, now time.Time, out *outbox) (uuid.UUID, error) {
	if !m.IsOngoing() && m.WinnerID != nil {
		return *m.WinnerID, nil
	}

	count, err := q.Votes.CountVotes(ctx, m.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("count votes of match %s: %w", m.ID, err)
	}
	winner := bracket.NewTally(count.A, count.B).Winner(m)

	updated, err := q.Matches.FinishMatch(ctx, m.ID, winner, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("finish match %s: %w", m.ID, err)
	}
	if !updated {
		stored, err := q.Matches.GetMatch(ctx, m.ID)
		if err != nil {
			return uuid.Nil, notFound(err, ErrMatchNotFound)
		}
		*m = *stored
		return *m.WinnerID, nil
	}

	m.Status = bracket.MatchFinished
	m.WinnerID = &winner
	m.FinishedAt = &now

	loser, _ := m.Loser()
	authors, err := q.Posts.AuthorsOf(ctx, []uuid.UUID{winner, loser})
	if err != nil {
		return uuid.Nil, fmt.Errorf("load authors: %w", err)
	}
	if author, ok := authors[winner]; ok {
		out.notify(msgMatchWon(m.ID), author)
	}
	if author, ok := authors[loser]; ok {
		out.notify(msgMatchLost(m.ID), author)
	}
	return winner, nil
}

// placeRound pairs the pool into the given round: creates its matches and carried bye, and queues
// the "you are in a match" notices.
func (s *TournamentService) placeRound(ctx context.Context, q *store.Stores, t *bracket.Tournament, round int, pool []uuid.UUID, now time.Time, out *outbox) error {
	pairing := bracket.Pair(pool, s.shuffle)
	matches := pairing.Matches(t.ID, round, t.MatchCategory(), now)
	if err := q.Matches.CreateMatches(ctx, matches); err != nil {
		return fmt.Errorf("create round %d matches: %w", round, err)
	}
	if pairing.Bye != nil {
		if err := q.Tournaments.AddBye(ctx, bracket.Bye{TournamentID: t.ID, Round: round, PostID: *pairing.Bye}); err != nil {
			return fmt.Errorf("carry bye into round %d: %w", round, err)
		}
	}

	authors, err := q.Posts.AuthorsOf(ctx, pool)
	if err != nil {
		return fmt.Errorf("load authors: %w", err)
	}
	notified := make(map[uuid.UUID]bool)
	for _, m := range matches {
		for _, side := range []uuid.UUID{m.SideA, m.SideB} {
			author, ok := authors[side]
			if !ok || notified[author] {
				continue
			}
			notified[author] = true
			out.notify(msgInMatch(t.ID, m.ID), author)
		}
	}
	if pairing.Bye != nil {
		if author, ok := authors[*pairing.Bye]; ok {
			out.notify(msgBye(t.ID, round), author)
		}
	}
	return nil
}

// seedRound1 starts a tournament that sits at expectedRound (0 for a fresh one) at round 1.
func (s *TournamentService) seedRound1(ctx context.Context, q *store.Stores, t *bracket.Tournament, participants []uuid.UUID, expectedRound int, now time.Time, out *outbox) error {
	if len(participants) < 2 {
		return ErrNotEnoughParticipants
	}
	if err := s.placeRound(ctx, q, t, 1, participants, now, out); err != nil {
		return err
	}

	t.Status = bracket.TournamentOngoing
	t.CurrentRound = 1
	t.RoundStartedAt = &now
	t.ChampionID = nil
	t.UpdatedAt = now
	if err := q.Tournaments.UpdateTournament(ctx, t, expectedRound); err != nil {
		return fmt.Errorf("start tournament %s: %w", t.ID, err)
	}
	return nil
}

// closeRound finalizes every ongoing match of the current round, then either crowns the sole
// survivor or pairs winners and carried byes into the next round.
func (s *TournamentService) closeRound(ctx context.Context, q *store.Stores, t *bracket.Tournament, matches []bracket.Match, now time.Time, trigger string, out *outbox) error {
	round := t.CurrentRound
	current := roundMatches(matches, round)

	pool := make([]uuid.UUID, 0, len(current)+1)
	for i := range current {
		winner, err := finalizeMatch(ctx, q, &current[i], now, out)
		if err != nil {
			return err
		}
		pool = append(pool, winner)
	}

	byes, err := q.Tournaments.GetRoundByes(ctx, t.ID, round)
	if err != nil {
		return fmt.Errorf("load byes: %w", err)
	}
	pool = append(pool, byes...)

	if len(pool) == 0 {
		return ErrNoActiveRound
	}

	voters, err := q.Votes.GetRoundVoters(ctx, t.ID, round)
	if err != nil {
		return fmt.Errorf("load round voters: %w", err)
	}

	if len(pool) == 1 {
		champion := pool[0]
		t.Status = bracket.TournamentFinished
		t.ChampionID = &champion
		t.UpdatedAt = now
		if err := q.Tournaments.UpdateTournament(ctx, t, round); err != nil {
			return fmt.Errorf("finish tournament %s: %w", t.ID, err)
		}

		authors, err := q.Posts.AuthorsOf(ctx, []uuid.UUID{champion})
		if err != nil {
			return fmt.Errorf("load authors: %w", err)
		}
		if author, ok := authors[champion]; ok {
			out.notify(msgChampion(t.ID, champion), author)
		}
		out.closed = append(out.closed, trigger)
		out.finished++
		s.logger.Info("tournament finished", "tournament_id", t.ID, "round", round, "champion_id", champion)
		return nil
	}

	next := round + 1
	if err := s.placeRound(ctx, q, t, next, pool, now, out); err != nil {
		return err
	}
	t.CurrentRound = next
	t.RoundStartedAt = &now
	t.UpdatedAt = now
	if err := q.Tournaments.UpdateTournament(ctx, t, round); err != nil {
		return fmt.Errorf("advance tournament %s: %w", t.ID, err)
	}

	out.notify(msgTournamentAdvanced(t.ID, next), voters...)
	out.broadcast(msgRoundStarted(t.ID, next))
	out.closed = append(out.closed, trigger)
	s.logger.Info("round closed", "tournament_id", t.ID, "round", round, "trigger", trigger, "next_pool", len(pool))
	return nil
}
