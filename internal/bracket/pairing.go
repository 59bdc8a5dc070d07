package bracket

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// ShuffleFunc has the signature of rand.Shuffle so a seeded *rand.Rand can be injected.
type ShuffleFunc func(n int, swap func(i, j int))

// RandomShuffle is a Fisher-Yates shuffle over the global source.
func RandomShuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

type Pairing struct {
	Pairs [][2]uuid.UUID
	// Set when the pool is odd: the last participant after shuffling advances without a vote
	Bye *uuid.UUID
}

// Pair shuffles the pool and pairs it consecutively: (0,1), (2,3), ...
// The input slice is left untouched.
func Pair(pool []uuid.UUID, shuffle ShuffleFunc) Pairing {
	shuffled := make([]uuid.UUID, len(pool))
	copy(shuffled, pool)
	if shuffle == nil {
		shuffle = RandomShuffle
	}
	shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var p Pairing
	for i := 0; i+1 < len(shuffled); i += 2 {
		p.Pairs = append(p.Pairs, [2]uuid.UUID{shuffled[i], shuffled[i+1]})
	}
	if len(shuffled)%2 == 1 {
		bye := shuffled[len(shuffled)-1]
		p.Bye = &bye
	}
	return p
}

// Matches turns the pairs into ongoing matches of the given round, ordered from 1.
func (p Pairing) Matches(tournamentID uuid.UUID, round int, category string, now time.Time) []Match {
	matches := make([]Match, 0, len(p.Pairs))
	for i, pair := range p.Pairs {
		matches = append(matches, Match{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Round:        round,
			MatchOrder:   i + 1,
			SideA:        pair[0],
			SideB:        pair[1],
			Category:     category,
			Status:       MatchOngoing,
			CreatedAt:    now,
		})
	}
	return matches
}
