package bracket

import (
	"math"

	"github.com/google/uuid"
)

type Tally struct {
	CountA   int `json:"countA"`
	CountB   int `json:"countB"`
	PercentA int `json:"percentA"`
	PercentB int `json:"percentB"`
}

// Percent is x's share of x+y rounded to the nearest integer, 0 when nobody voted.
// Each side is rounded on its own, so PercentA+PercentB is not always 100.
func Percent(x, y int) int {
	total := x + y
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(x) / float64(total)))
}

func NewTally(countA, countB int) Tally {
	return Tally{
		CountA:   countA,
		CountB:   countB,
		PercentA: Percent(countA, countB),
		PercentB: Percent(countB, countA),
	}
}

func (t Tally) Total() int {
	return t.CountA + t.CountB
}

// Winner decides a match from its tally. Ties go to side A.
func (t Tally) Winner(m *Match) uuid.UUID {
	if t.CountA >= t.CountB {
		return m.SideA
	}
	return m.SideB
}
