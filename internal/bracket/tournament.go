package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentFinished  TournamentStatus = "finished"
	TournamentCancelled TournamentStatus = "cancelled"
)

type ProgressionMode string

const (
	// Threshold is a number of seconds since the round started.
	ProgressionTime ProgressionMode = "time"
	// Threshold is a percentage of all registered users that must have voted in the round.
	ProgressionParticipation ProgressionMode = "participation"
)

func (m ProgressionMode) Valid() bool {
	return m == ProgressionTime || m == ProgressionParticipation
}

// Category used for matches of tournaments that are not bound to a category.
const MixedCategory = "mixed"

type Tournament struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	Name           string           `db:"name" json:"name"`
	Category       *string          `db:"category" json:"category,omitempty"`
	Status         TournamentStatus `db:"status" json:"status"`
	Mode           ProgressionMode  `db:"progression_mode" json:"progressionMode"`
	Threshold      float64          `db:"threshold" json:"threshold"`
	CurrentRound   int              `db:"current_round" json:"currentRound"`
	RoundStartedAt *time.Time       `db:"round_started_at" json:"roundStartedAt,omitempty"`
	ChampionID     *uuid.UUID       `db:"champion_id" json:"championId,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`

	// Assembled from the participant, match and bye tables
	Participants []uuid.UUID   `db:"-" json:"participants"`
	Rounds       [][]uuid.UUID `db:"-" json:"rounds"`
	Byes         [][]uuid.UUID `db:"-" json:"byes"`
}

// MatchCategory is the category stamped on every match the tournament creates.
func (t *Tournament) MatchCategory() string {
	if t.Category != nil && *t.Category != "" {
		return *t.Category
	}
	return MixedCategory
}

func (t *Tournament) IsOngoing() bool {
	return t.Status == TournamentOngoing && t.CurrentRound >= 1
}

// ByesFor returns the carried participants of a 1-based round.
func (t *Tournament) ByesFor(round int) []uuid.UUID {
	if round < 1 || round > len(t.Byes) {
		return nil
	}
	return t.Byes[round-1]
}

// Bye is one carried participant of a round.
type Bye struct {
	TournamentID uuid.UUID `db:"tournament_id"`
	Round        int       `db:"round"`
	PostID       uuid.UUID `db:"post_id"`
}
