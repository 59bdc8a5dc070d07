package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchOngoing  MatchStatus = "ongoing"
	MatchFinished MatchStatus = "finished"
)

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`

	// Position in the tournament for reconstructing the rounds
	Round      int `db:"round" json:"round"`
	MatchOrder int `db:"match_order" json:"matchOrder"`

	SideA    uuid.UUID `db:"post_a_id" json:"postAId"`
	SideB    uuid.UUID `db:"post_b_id" json:"postBId"`
	Category string    `db:"category" json:"category"`

	Status     MatchStatus `db:"status" json:"status"`
	WinnerID   *uuid.UUID  `db:"winner_id" json:"winnerId,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	FinishedAt *time.Time  `db:"finished_at" json:"finishedAt,omitempty"`
}

func (m *Match) IsOngoing() bool {
	return m.Status == MatchOngoing
}

func (m *Match) Has(postID uuid.UUID) bool {
	return m.SideA == postID || m.SideB == postID
}

// Loser is only meaningful once the match is finished.
func (m *Match) Loser() (uuid.UUID, bool) {
	if m.Status != MatchFinished || m.WinnerID == nil {
		return uuid.Nil, false
	}
	if *m.WinnerID == m.SideA {
		return m.SideB, true
	}
	return m.SideA, true
}
