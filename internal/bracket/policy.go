package bracket

import (
	"math"
	"time"
)

type RoundState string

const (
	RoundOpen     RoundState = "open"
	RoundClosable RoundState = "closable"
	RoundClosed   RoundState = "closed"
)

// MatchState is what the policy needs to know about one match of the round.
type MatchState struct {
	Ongoing bool
	Votes   int
}

// RoundSnapshot is the live state of a tournament's current round.
type RoundSnapshot struct {
	Mode      ProgressionMode
	Threshold float64
	StartedAt *time.Time
	Now       time.Time

	TotalUsers     int
	DistinctVoters int
	Matches        []MatchState
}

// RequiredVoters is ceil(threshold% of totalUsers) with a floor of 1.
func RequiredVoters(threshold float64, totalUsers int) int {
	required := int(math.Ceil(threshold * float64(totalUsers) / 100))
	if required < 1 {
		return 1
	}
	return required
}

func (s RoundSnapshot) ElapsedSeconds() int64 {
	if s.StartedAt == nil {
		return 0
	}
	return int64(s.Now.Sub(*s.StartedAt) / time.Second)
}

func (s RoundSnapshot) RemainingSeconds() int64 {
	remaining := int64(s.Threshold) - s.ElapsedSeconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s RoundSnapshot) Required() int {
	return RequiredVoters(s.Threshold, s.TotalUsers)
}

func (s RoundSnapshot) ActiveMatches() int {
	n := 0
	for _, m := range s.Matches {
		if m.Ongoing {
			n++
		}
	}
	return n
}

func (s RoundSnapshot) AllFinished() bool {
	return len(s.Matches) > 0 && s.ActiveMatches() == 0
}

// everyOngoingMatchVoted keeps a round from closing while an open match would default to side A
// without a single vote.
func (s RoundSnapshot) everyOngoingMatchVoted() bool {
	for _, m := range s.Matches {
		if m.Ongoing && m.Votes == 0 {
			return false
		}
	}
	return true
}

func (s RoundSnapshot) ConditionMet() bool {
	switch s.Mode {
	case ProgressionTime:
		if s.Threshold <= 0 || s.StartedAt == nil {
			return false
		}
		return float64(s.ElapsedSeconds()) >= s.Threshold
	case ProgressionParticipation:
		return s.DistinctVoters >= s.Required()
	}
	return false
}

func (s RoundSnapshot) Closable() bool {
	if !s.ConditionMet() {
		return false
	}
	if s.Mode == ProgressionParticipation {
		return s.everyOngoingMatchVoted()
	}
	return true
}

func (s RoundSnapshot) State() RoundState {
	if s.Closable() {
		return RoundClosable
	}
	return RoundOpen
}

// Metrics is the progress summary shown next to a tournament.
type Metrics struct {
	Mode             ProgressionMode `json:"mode"`
	State            RoundState      `json:"state"`
	RemainingSeconds *int64          `json:"remainingSeconds,omitempty"`
	TotalSeconds     *int64          `json:"totalSeconds,omitempty"`
	Voters           *int            `json:"voters,omitempty"`
	Required         *int            `json:"required,omitempty"`
	ActiveMatches    int             `json:"currentActive"`
	TotalMatches     int             `json:"currentTotal"`
}

func (s RoundSnapshot) Metrics() Metrics {
	m := Metrics{
		Mode:          s.Mode,
		State:         s.State(),
		ActiveMatches: s.ActiveMatches(),
		TotalMatches:  len(s.Matches),
	}
	switch s.Mode {
	case ProgressionTime:
		remaining := s.RemainingSeconds()
		if s.StartedAt == nil {
			remaining = int64(s.Threshold)
		}
		total := int64(s.Threshold)
		m.RemainingSeconds = &remaining
		m.TotalSeconds = &total
	case ProgressionParticipation:
		voters := s.DistinctVoters
		required := s.Required()
		m.Voters = &voters
		m.Required = &required
	}
	return m
}
