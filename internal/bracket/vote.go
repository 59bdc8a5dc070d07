package bracket

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Choice string

const (
	ChoiceA Choice = "A"
	ChoiceB Choice = "B"
)

func ParseChoice(s string) (Choice, error) {
	switch Choice(strings.ToUpper(strings.TrimSpace(s))) {
	case ChoiceA:
		return ChoiceA, nil
	case ChoiceB:
		return ChoiceB, nil
	}
	return "", fmt.Errorf("choice must be A or B, got %q", s)
}

// Vote is immutable once stored. At most one exists per (voter, match).
type Vote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VoterID   uuid.UUID `db:"voter_id" json:"voterId"`
	MatchID   uuid.UUID `db:"match_id" json:"matchId"`
	Choice    Choice    `db:"choice" json:"choice"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
